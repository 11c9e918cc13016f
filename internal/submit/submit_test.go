package submit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/formmap"
	"github.com/mwrobel/pmagent/internal/ledger"
	"github.com/mwrobel/pmagent/internal/resolve"
)

// scriptPage is a scriptable form page.
type scriptPage struct {
	text      string
	url       string
	selectors map[string]bool
	fills     map[string]string
	failFills map[string]bool
	submitOK  bool
	consents  int
	evals     []string
}

func (p *scriptPage) Navigate(context.Context, string, browser.RetryPolicy) error { return nil }
func (p *scriptPage) Text(context.Context) (string, error)                        { return p.text, nil }
func (p *scriptPage) HTML(context.Context) (string, error)                        { return "", nil }
func (p *scriptPage) URL(context.Context) (string, error)                         { return p.url, nil }
func (p *scriptPage) Sleep(context.Context, time.Duration)                        {}
func (p *scriptPage) Screenshot(context.Context) ([]byte, error)                  { return nil, nil }

func (p *scriptPage) Has(_ context.Context, selector string) (bool, error) {
	return p.selectors[selector], nil
}

func (p *scriptPage) Click(_ context.Context, selector string) error {
	if !p.selectors[selector] {
		return fmt.Errorf("no element: %s", selector)
	}
	return nil
}

func (p *scriptPage) Fill(_ context.Context, selector, value string) error {
	if p.failFills[selector] {
		return fmt.Errorf("fill failed: %s", selector)
	}
	if p.fills == nil {
		p.fills = make(map[string]string)
	}
	p.fills[selector] = value
	return nil
}

func (p *scriptPage) Eval(_ context.Context, js string, out any) error {
	p.evals = append(p.evals, js)
	switch v := out.(type) {
	case *int:
		*v = p.consents
	case *bool:
		*v = p.submitOK && strings.Contains(js, "wyślij")
	}
	return nil
}

func warsawDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDetectExpired(t *testing.T) {
	now := warsawDate(2026, time.August, 24)
	cases := []struct {
		name    string
		text    string
		hasForm bool
		want    bool
	}{
		{"closed phrase", "Konkurs zakończony. Zapraszamy wkrótce.", true, true},
		{"deadline phrase", "Czas minął, dziękujemy wszystkim.", true, true},
		{"passed end date", "Odpowiedzi przyjmujemy do 10.08.2026.", true, true},
		{"future end date", "Odpowiedzi przyjmujemy do 31.12.2026.", true, false},
		{"no form no keywords", "Artykuł o mediach bez żadnego formularza.", false, true},
		{"no form but question present", "Pytanie konkursowe: Ile lat?", false, false},
		{"live contest", "Pytanie konkursowe: Ile lat? Wyślij odpowiedź.", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectExpired(tc.text, tc.hasForm, now); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFillRolesIndependently(t *testing.T) {
	page := &scriptPage{failFills: map[string]bool{"#miasto": true}}
	s := New(page, Options{})
	mapping := &formmap.Mapping{Selectors: map[formmap.Role]string{
		formmap.RoleEmail:  "#mail",
		formmap.RoleCity:   "#miasto",
		formmap.RoleAnswer: "#odp",
	}}
	values := map[formmap.Role]string{
		formmap.RoleFirstName: "Jan",
		formmap.RoleEmail:     "jan@example.pl",
		formmap.RoleCity:      "Warszawa",
		formmap.RoleAnswer:    "62",
	}

	stats := s.Fill(context.Background(), mapping, values)

	if !stats[formmap.RoleEmail] || !stats[formmap.RoleAnswer] {
		t.Errorf("expected email and answer filled, got %v", stats)
	}
	if stats[formmap.RoleFirstName] || stats[formmap.RoleLastName] {
		t.Errorf("unmapped roles must report false, got %v", stats)
	}
	if stats[formmap.RoleCity] {
		t.Errorf("failed fill must report false, got %v", stats)
	}
	if page.fills["#odp"] != "62" {
		t.Errorf("expected answer typed into #odp, got %q", page.fills["#odp"])
	}
}

func TestFillStatsString(t *testing.T) {
	stats := FillStats{formmap.RoleEmail: true, formmap.RoleAnswer: true}
	got := stats.String()
	want := "firstName=false lastName=false email=true city=false answer=true"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if (FillStats{}).String() != "" {
		t.Errorf("empty stats must render empty")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		tag       resolve.Strategy
		sent      bool
		confirmed bool
		want      string
	}{
		{resolve.StrategyYears, false, false, ledger.StatusNotSent},
		{resolve.StrategyYears, true, false, ledger.StatusSentUnconfirmed},
		{resolve.StrategyYears, true, true, ledger.StatusSentYears},
		{resolve.StrategyExtract, true, true, ledger.StatusSentExtract},
		{resolve.StrategyTemplate, true, true, ledger.StatusSentTemplate},
		{resolve.StrategyLLM, true, true, ledger.StatusSentLLM},
		{resolve.StrategyManual, true, true, ledger.StatusSent},
		{resolve.StrategyNone, true, true, ledger.StatusSent},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.tag, tc.sent, tc.confirmed); got != tc.want {
			t.Errorf("%s sent=%v confirmed=%v: expected %s, got %s", tc.tag, tc.sent, tc.confirmed, tc.want, got)
		}
	}
}

func TestRunDryRunNeverSubmits(t *testing.T) {
	page := &scriptPage{submitOK: true, consents: 2}
	s := New(page, Options{DryRun: true})
	mapping := &formmap.Mapping{Selectors: map[formmap.Role]string{formmap.RoleAnswer: "#odp"}}

	res := s.Run(context.Background(), mapping, map[formmap.Role]string{formmap.RoleAnswer: "x"}, resolve.StrategyYears)

	if res.Status != ledger.StatusDryFilled {
		t.Errorf("expected DRY_FILLED, got %s", res.Status)
	}
	for _, js := range page.evals {
		if strings.Contains(js, "wyślij") || strings.Contains(js, "forms[0].submit") {
			t.Errorf("dry run must not attempt submission, evaluated: %s", js)
		}
	}
}

func TestRunSentAndConfirmed(t *testing.T) {
	page := &scriptPage{
		submitOK: true,
		text:     "Dziękujemy! Twoje zgłoszenie zostało wysłane.",
	}
	s := New(page, Options{CaptchaMode: "skip"})
	mapping := &formmap.Mapping{Selectors: map[formmap.Role]string{}}

	res := s.Run(context.Background(), mapping, nil, resolve.StrategyYears)
	if res.Status != ledger.StatusSentYears {
		t.Errorf("expected SENT_YEARS, got %s", res.Status)
	}
}

func TestRunSentWithoutConfirmation(t *testing.T) {
	page := &scriptPage{submitOK: true, text: "Trwa przetwarzanie."}
	s := New(page, Options{CaptchaMode: "skip"})

	res := s.Run(context.Background(), &formmap.Mapping{}, nil, resolve.StrategyYears)
	if res.Status != ledger.StatusSentUnconfirmed {
		t.Errorf("expected SENT_UNCONFIRMED, got %s", res.Status)
	}
}

func TestRunNoSubmitControl(t *testing.T) {
	page := &scriptPage{submitOK: false, text: "Formularz."}
	s := New(page, Options{CaptchaMode: "skip"})

	res := s.Run(context.Background(), &formmap.Mapping{}, nil, resolve.StrategyTemplate)
	if res.Status != ledger.StatusNotSent {
		t.Errorf("expected NOT_SENT, got %s", res.Status)
	}
}

func TestDetectChallengeOrderIsStable(t *testing.T) {
	page := &scriptPage{selectors: map[string]bool{
		"iframe[title*='reCAPTCHA'], .grecaptcha-badge": true,
		"iframe[src*='hcaptcha.com'], [data-hcaptcha]":  true,
	}}
	s := New(page, Options{})
	for i := 0; i < 10; i++ {
		if got := s.detectChallenge(context.Background()); got != "recaptcha" {
			t.Fatalf("expected recaptcha to be detected first, got %q", got)
		}
	}
}

func TestConfirmationFromURL(t *testing.T) {
	page := &scriptPage{text: "Strona bez podziękowań.", url: "https://example.pl/konkursy/1/success"}
	s := New(page, Options{})
	if !s.confirmed(context.Background()) {
		t.Error("expected success-shaped URL to count as confirmation")
	}
}

func TestCheckExpired(t *testing.T) {
	page := &scriptPage{text: "Konkurs zakończony.", selectors: map[string]bool{"form": true}}
	s := New(page, Options{})
	expired, err := s.CheckExpired(context.Background())
	if err != nil {
		t.Fatalf("CheckExpired failed: %v", err)
	}
	if !expired {
		t.Error("expected expired contest")
	}
}
