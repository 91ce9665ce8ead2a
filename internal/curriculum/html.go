package curriculum

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL is the campus management system root all relative links
// resolve against.
const DefaultBaseURL = "https://campus.tum.de/tumonline"

// ExtractRows reads the curriculum tree rows from a fully expanded
// curriculum page. The header row, invisible rows and rows without a node
// id are dropped.
func ExtractRows(html, baseURL string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing curriculum page: %w", err)
	}

	var rows []Row
	doc.Find("tr.coRow").Each(func(i int, tr *goquery.Selection) {
		if i == 0 || tr.HasClass("invisible") {
			return
		}
		nodeID, _ := tr.Attr("id")
		if !strings.HasPrefix(nodeID, "kn") {
			return
		}

		tds := tr.Find("td")
		cell := func(idx int, selector string) *goquery.Selection {
			return tds.Eq(idx).Find(selector).First()
		}

		href, _ := cell(1, "div > span > a").Attr("href")
		rows = append(rows, Row{
			NodeID:       nodeID,
			AncestorTags: knClasses(tr),
			DisplayName:  strings.TrimSpace(cell(0, "div > span > a:first-of-type > span").Text()),
			Link:         NormalizeLink(baseURL, href),
			CreditsText:  strings.TrimSpace(cell(3, "div > span").Text()),
			GradingFlag:  strings.TrimSpace(cell(4, "div > span").Text()),
		})
	})

	return rows, nil
}

// NormalizeLink resolves a scraped href against the base URL. Empty and
// placeholder hrefs yield "".
func NormalizeLink(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func knClasses(s *goquery.Selection) []string {
	class, _ := s.Attr("class")
	var tags []string
	for _, c := range strings.Fields(class) {
		if strings.HasPrefix(c, "kn") {
			tags = append(tags, c)
		}
	}
	return tags
}
