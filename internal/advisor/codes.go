package advisor

import (
	"regexp"
	"sort"
	"strings"
)

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z]{2}\d{4}\b`),
	regexp.MustCompile(`\b\d{10}\b`),
}

// WS2025 and SS2024 name semesters, not modules.
var semesterPrefixes = map[string]bool{"WS": true, "SS": true}

// ExtractCourseCodes returns the course codes mentioned across texts, in
// order of first appearance.
func ExtractCourseCodes(texts ...string) []string {
	seen := map[string]bool{}
	codes := []string{}
	for _, text := range texts {
		for _, m := range matchAll(text) {
			if !seen[m] {
				seen[m] = true
				codes = append(codes, m)
			}
		}
	}
	return codes
}

// matchAll merges the matches of all patterns by position.
func matchAll(text string) []string {
	type match struct {
		pos  int
		code string
	}
	var found []match
	for _, re := range codePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			code := text[loc[0]:loc[1]]
			if semesterPrefixes[code[:2]] {
				continue
			}
			found = append(found, match{loc[0], code})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	out := make([]string, len(found))
	for i, m := range found {
		out[i] = m.code
	}
	return out
}

var recommendationKeywords = []string{
	"recommend", "suggest", "should i take", "which course", "what course",
}

// IsRecommendation reports whether the question asks for course advice.
func IsRecommendation(question string) bool {
	q := strings.ToLower(question)
	for _, k := range recommendationKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
