package advisor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

const (
	maxHitContentRunes = 1200
	maxContextRunes    = 6000
)

const chatPrompt = `You are a study advisor for students of the Technical University of Munich (TUM). Answer the student's question using only the course information below. Mention courses by module ID and name, for example "IN2003 Efficient Algorithms and Data Structures". If the course information does not answer the question, say that you could not find matching courses instead of guessing.

Course information:
%s

Question: %s

Answer:`

// buildContext concatenates hit descriptions up to the context budget.
func buildContext(hits []vectorindex.Hit) string {
	if len(hits) == 0 {
		return "(no matching courses found)"
	}
	var b strings.Builder
	used := 0
	for i, h := range hits {
		block := describeHit(i+1, h)
		n := utf8.RuneCountInString(block)
		if used > 0 && used+n > maxContextRunes {
			break
		}
		b.WriteString(block)
		used += n
	}
	return strings.TrimSpace(b.String())
}

func describeHit(n int, h vectorindex.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s %s\n", n, h.ModuleID, h.Name)
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	line("Category", strings.Trim(h.Category+" / "+h.Subcategory, " /"))
	if h.Credits != nil {
		fmt.Fprintf(&b, "Credits: %d ECTS\n", *h.Credits)
	}
	line("Responsible", h.Responsible)
	line("Level", h.ModuleLevel)
	line("Occurrence", h.Occurrence)
	line("Content", truncate(h.Content, maxHitContentRunes))
	line("Learning outcomes", truncate(h.LearningOutcomes, maxHitContentRunes/2))
	line("Assessment", truncate(h.Assessment, maxHitContentRunes/3))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max])) + "..."
}

func renderPrompt(hits []vectorindex.Hit, question string) string {
	return fmt.Sprintf(chatPrompt, buildContext(hits), strings.TrimSpace(question))
}
