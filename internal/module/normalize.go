package module

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize fills rec from doc using, in order, label matching against
// Fields, the ca-entry position layout and a free-text scan for the id and
// name. Fields that already hold a value are never overwritten.
func Normalize(doc *Document, rec *Record) *Record {
	identifiedBefore := rec.Identified()

	for _, f := range Fields {
		for _, label := range f.Labels {
			if v, ok := doc.Lookup(label); ok && rec.Set(f.Name, v) {
				break
			}
		}
	}

	if n := doc.EntryCount(); n >= 2 {
		rec.Set(FieldName, doc.Entry(1))
		rec.Set(FieldModuleID, doc.Entry(2))
		if n >= len(positionalFields) {
			for i, field := range positionalFields[2:] {
				rec.Set(field, doc.Entry(i+3))
			}
		}
	}

	primary := rec.Identified()
	if rec.ModuleID == nil || rec.Name == nil {
		scanFreeText(doc, rec)
	}

	if identifiedBefore && rec.ExtractionMethod != MethodFailed {
		return rec
	}
	switch {
	case primary:
		rec.ExtractionMethod = MethodPrimary
	case rec.Identified():
		rec.ExtractionMethod = MethodFallback
	default:
		rec.ExtractionMethod = MethodFailed
	}
	return rec
}

func scanFreeText(doc *Document, rec *Record) {
	candidates := append([]string{doc.Title()}, doc.TextBlocks()...)
	for _, text := range candidates {
		if text == "" {
			continue
		}
		if rec.ModuleID == nil && looksLikeModuleNumber(text) {
			rec.Set(FieldModuleID, text)
		}
		if rec.Name == nil && looksLikeName(text) {
			rec.Set(FieldName, text)
		}
		if rec.ModuleID != nil && rec.Name != nil {
			return
		}
	}
}

func looksLikeModuleNumber(s string) bool {
	return len(s) >= 6 && len(s) <= 8 && isDigits(s)
}

func looksLikeName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 15 || n > 150 || isDigits(s) {
		return false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "optimiert") || strings.Contains(lower, "error") {
		return false
	}
	return !HasBrowserError(lower)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
