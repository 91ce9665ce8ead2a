package module

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Pair is a label element and the value container next to it.
type Pair struct {
	Label string
	Value string
}

// Document is a parsed module handbook page.
type Document struct {
	doc     *goquery.Document
	html    string
	pageURL *url.URL
	pairs   []Pair
}

// ParseDocument parses page HTML and indexes its label/value pairs.
func ParseDocument(html, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing module page: %w", err)
	}
	u, _ := url.Parse(pageURL)
	d := &Document{doc: doc, html: html, pageURL: u}
	d.pairs = collectPairs(doc)
	return d, nil
}

// collectPairs walks ca-entry blocks, two-cell table rows and definition
// lists in document order.
func collectPairs(doc *goquery.Document) []Pair {
	var pairs []Pair
	doc.Find("ca-entry, tr, dt").Each(func(_ int, s *goquery.Selection) {
		var label, value string
		switch goquery.NodeName(s) {
		case "ca-entry":
			value = s.Find(".ca-entry-content").First().Text()
			label = s.Find(".ca-entry-label, label").First().Text()
			if strings.TrimSpace(label) == "" {
				label = s.Children().Not(".ca-entry-content").First().Text()
			}
		case "tr":
			cells := s.ChildrenFiltered("th, td")
			if cells.Length() < 2 {
				return
			}
			label, value = cells.Eq(0).Text(), cells.Eq(1).Text()
		case "dt":
			label, value = s.Text(), s.NextFiltered("dd").Text()
		}
		label = normalizeLabel(label)
		if label == "" {
			return
		}
		pairs = append(pairs, Pair{Label: label, Value: strings.TrimSpace(value)})
	})
	return pairs
}

func normalizeLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ":* ")
	return strings.ToLower(s)
}

// Pairs returns the label/value pairs in document order.
func (d *Document) Pairs() []Pair {
	return d.pairs
}

// Lookup returns the value of the first pair whose label matches,
// ignoring case and a trailing colon.
func (d *Document) Lookup(label string) (string, bool) {
	want := normalizeLabel(label)
	for _, p := range d.pairs {
		if p.Label == want {
			return p.Value, true
		}
	}
	return "", false
}

// EntryCount returns the number of ca-entry blocks on the page.
func (d *Document) EntryCount() int {
	return d.doc.Find("ca-entry").Length()
}

// Entry returns the content of the nth (1-based) ca-entry block, falling
// back to the whole block's text.
func (d *Document) Entry(n int) string {
	sel := fmt.Sprintf("ca-entry:nth-of-type(%d)", n)
	if v := strings.TrimSpace(d.doc.Find(sel + " .ca-entry-content").First().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(d.doc.Find(sel).First().Text())
}

// TextBlocks returns the trimmed text of every text-bearing element.
func (d *Document) TextBlocks() []string {
	var out []string
	d.doc.Find("div, span, p, td, th").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// Title returns the readable article title, or "" when none is found.
func (d *Document) Title() string {
	article, err := readability.FromReader(strings.NewReader(d.html), d.pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.Title)
}

// HasBrowserError reports whether the page is an unsupported-browser
// notice instead of module content.
func HasBrowserError(html string) bool {
	lower := strings.ToLower(html)
	for _, phrase := range BrowserErrorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
