package browser

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/go-rod/rod"
)

// Form-field labels that identify a frame as the contest form rather than
// an ad or a captcha widget.
var frameFormKeywords = []string{
	"imię", "nazwisko", "adres e-mail", "miasto", "twoja odpowiedź", "pytanie konkursowe",
	"first name", "last name", "email", "city", "answer",
}

// frameLooksLikeForm reports whether a frame's text carries the contest
// form's field labels.
func frameLooksLikeForm(text string) bool {
	low := strings.ToLower(text)
	for _, kw := range frameFormKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

// SelectFormScope points element operations at the document holding the
// contest form. The top page wins when it has a form of its own; otherwise
// iframes are checked in document order and the first whose text carries
// the form's field labels is selected. Reports whether a frame was selected; with no match
// the session stays on the top page.
func (s *Session) SelectFormScope(ctx context.Context) (bool, error) {
	s.scope = nil

	if has, _, err := s.page.Context(ctx).Has("form"); err == nil && has {
		return false, nil
	}

	iframes, err := s.page.Context(ctx).Elements("iframe")
	if err != nil {
		return false, fmt.Errorf("listing iframes: %w", err)
	}

	for _, el := range iframes {
		frame, err := el.Frame()
		if err != nil {
			continue
		}
		text, err := frameText(ctx, frame)
		if err != nil {
			continue
		}
		if frameLooksLikeForm(text) {
			log.Printf("form frame selected among %d iframes", len(iframes))
			s.scope = frame
			return true, nil
		}
	}
	return false, nil
}

// InFrame reports whether element operations are currently scoped to an
// iframe document.
func (s *Session) InFrame() bool {
	return s.scope != nil
}

func frameText(ctx context.Context, frame *rod.Page) (string, error) {
	res, err := frame.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      `() => document.body ? document.body.innerText : ''`,
		ByValue: true,
	})
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}
