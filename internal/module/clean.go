package module

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	digitRun = regexp.MustCompile(`\d+`)
	// A capitalized word optionally followed by more capitalized words,
	// separated by spaces or commas.
	personName = regexp.MustCompile(`\p{Lu}[\p{L}'\-]+(?:,?\s+\p{Lu}[\p{L}'\-]+)*`)
)

// honorifics are dropped from responsible-person values before the name
// shape is matched.
var honorifics = map[string]bool{
	"prof": true, "dr": true, "pd": true, "apl": true, "hon": true,
	"dipl": true, "ing": true, "habil": true, "rer": true, "nat": true,
	"mult": true, "h.c": true, "mr": true, "mrs": true, "ms": true,
}

// ExtractInt returns the first run of decimal digits in raw. Placeholders
// and text without digits yield false.
func ExtractInt(raw string) (int, bool) {
	m := digitRun.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsPlaceholder reports whether raw stands for "not applicable".
func IsPlaceholder(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || s == "-" || s == "--" || s == "n/a"
}

// CleanResponsible strips titles from a person value and keeps the name
// part. Values without a name shape are returned trimmed.
func CleanResponsible(raw string) string {
	raw = strings.TrimSpace(raw)
	var kept []string
	for _, tok := range strings.Fields(raw) {
		key := strings.ToLower(strings.Trim(tok, ".,"))
		if honorifics[key] || strings.HasSuffix(tok, ".") {
			continue
		}
		kept = append(kept, tok)
	}
	if m := personName.FindString(strings.Join(kept, " ")); m != "" {
		return m
	}
	return raw
}

func cleanText(field, raw string) (string, bool) {
	if IsPlaceholder(raw) {
		return "", false
	}
	v := strings.TrimSpace(raw)
	if field == FieldResponsible {
		v = CleanResponsible(v)
	}
	return v, v != ""
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
