// Package question isolates the contest question from a page's visible text.
package question

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Question is the extracted contest question.
type Question struct {
	Raw        string
	Normalized string
}

var (
	labelRe        = regexp.MustCompile(`(?i)Pytanie\s+konkursowe:\s*(.+)`)
	continuationRe = regexp.MustCompile(`(?i)(Podpowiedź\s+na\s+poprzedniej\s+stronie.*)`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Extract finds the contest question in a text snapshot. Rules fire in a
// fixed priority order, so identical input always yields the same result:
//  1. the explicit "Pytanie konkursowe:" label, first line of the capture;
//  2. the continuation hint pointing at the previous page;
//  3. the first line containing a question mark with a plausible length.
//
// Returns nil when nothing matches.
func Extract(text string) *Question {
	if text == "" {
		return nil
	}

	if m := labelRe.FindStringSubmatch(text); m != nil {
		return newQuestion(firstLine(m[1]))
	}

	if m := continuationRe.FindStringSubmatch(text); m != nil {
		return newQuestion(firstLine(m[1]))
	}

	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "?") {
			continue
		}
		s := strings.TrimSpace(line)
		// Character count, not bytes: Polish diacritics are two bytes each.
		if n := utf8.RuneCountInString(s); n >= 5 && n <= 500 {
			return newQuestion(s)
		}
	}

	return nil
}

// NeedsSourcePage reports whether the question signals that the answer
// material lives on the linked article page.
func (q *Question) NeedsSourcePage() bool {
	return continuationRe.MatchString(q.Raw)
}

func newQuestion(raw string) *Question {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &Question{
		Raw:        raw,
		Normalized: spaceRe.ReplaceAllString(raw, " "),
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
