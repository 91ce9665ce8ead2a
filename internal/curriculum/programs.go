package curriculum

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DegreeProgram is one row of the public degree program list.
type DegreeProgram struct {
	Degree         string `json:"degree"`
	ID             string `json:"id"`
	Curriculum     string `json:"curriculum"`
	FieldOfStudies string `json:"field_of_studies"`
	ECTS           string `json:"ects_credits"`
	Semester       string `json:"semester"`
	CurriculumLink string `json:"curriculum_link"`
	HandbookLink   string `json:"handbook_link"`
}

// ProgramsURL returns the degree program list address for baseURL.
func ProgramsURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") +
		"/wbstpportfolio.wbStpList?pOrgNr=1&pSort=&pLanguageCode=EN&pStpStatus=N&pSjNr=1621"
}

// ExtractPrograms parses the degree program list table.
func ExtractPrograms(html, baseURL string) ([]DegreeProgram, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing program list: %w", err)
	}

	var programs []DegreeProgram
	doc.Find("form > table > tbody > tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		tds := tr.Find("td")
		if tds.Length() < 6 {
			return
		}

		curriculum := tds.Eq(2).Find("div").First()
		spans := curriculum.Find("span")

		programs = append(programs, DegreeProgram{
			Degree:         text(tds.Eq(0)),
			ID:             text(tds.Eq(1)),
			Curriculum:     text(curriculum),
			FieldOfStudies: text(tds.Eq(3)),
			ECTS:           text(tds.Eq(4)),
			Semester:       text(tds.Eq(5)),
			CurriculumLink: spanLink(spans.Eq(0), baseURL),
			HandbookLink:   spanLink(spans.Eq(2), baseURL),
		})
	})

	return programs, nil
}

func spanLink(span *goquery.Selection, baseURL string) string {
	href, ok := span.Find("a").First().Attr("href")
	if !ok {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript") {
		return ""
	}
	return NormalizeLink(baseURL, href)
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
