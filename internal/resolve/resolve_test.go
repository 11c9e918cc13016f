package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mwrobel/pmagent/internal/question"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

type fixedOperator struct {
	answer string
	ok     bool
}

func (o *fixedOperator) RequestAnswer(_ context.Context, _ string) (string, bool) {
	return o.answer, o.ok
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func newTestResolver() *Resolver {
	r := New(nil, nil)
	r.Now = fixedNow
	return r
}

func q(t *testing.T, text string) *question.Question {
	t.Helper()
	parsed := question.Extract(text)
	if parsed == nil {
		t.Fatalf("no question extracted from %q", text)
	}
	return parsed
}

func TestResolveYearTable(t *testing.T) {
	tests := []struct {
		question string
		year     int
	}{
		{"w którym roku nakręcono film fantomas?", 1964},
		{"kiedy wystartował discovery channel?", 1985},
		{"tanita tikaram urodziła się...", 1969},
		{"kiedy powstał teatr groteska?", 1945},
		{"new york world opublikował pierwszą krzyżówkę", 1913},
		{"ile lat temu nakręcono nie ma róży bez ognia?", 1974},
		{"pierwszy odcinek w labiryncie", 1988},
	}
	for _, tt := range tests {
		year, ok := ResolveYear(tt.question)
		if !ok {
			t.Errorf("no year for %q", tt.question)
			continue
		}
		if year != tt.year {
			t.Errorf("%q: expected %d, got %d", tt.question, tt.year, year)
		}
	}
}

func TestResolveYearTrailingDigits(t *testing.T) {
	year, ok := ResolveYear("w którym roku (1973) wydano płytę?")
	if !ok || year != 1973 {
		t.Errorf("expected 1973, got %d (ok=%v)", year, ok)
	}

	year, ok = ResolveYear("zespół założony w 1978 wydał debiut w roku 1981")
	if !ok || year != 1981 {
		t.Errorf("expected the last year 1981, got %d (ok=%v)", year, ok)
	}

	if _, ok := ResolveYear("pytanie bez żadnego roku"); ok {
		t.Error("expected no year")
	}
}

func TestYearsAgo(t *testing.T) {
	if got := YearsAgo(1964, fixedNow()); got != 62 {
		t.Errorf("expected 62, got %d", got)
	}
}

func TestResolveYearsStrategy(t *testing.T) {
	r := newTestResolver()
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Ile lat temu nakręcono film Fantomas?"),
	})
	if res.Tag != StrategyYears {
		t.Fatalf("expected YEARS, got %s", res.Tag)
	}
	if res.Answer != "62" {
		t.Errorf("expected 62, got %s", res.Answer)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := newTestResolver()
	in := Input{Question: q(t, "Pytanie konkursowe: Ile lat temu powstał Discovery Channel?")}
	first := r.Resolve(context.Background(), in)
	for i := 0; i < 5; i++ {
		res := r.Resolve(context.Background(), in)
		if res != first {
			t.Fatalf("resolution changed across invocations: %+v vs %+v", res, first)
		}
	}
}

func TestResolveExtractSteps(t *testing.T) {
	html := `<html><body><article>
		<ol>
			<li>Analiza wymagań projektu</li>
			<li>Projekt architektury systemu</li>
			<li>Implementacja i testy modułów</li>
		</ol>
	</article></body></html>`

	r := newTestResolver()
	res := r.Resolve(context.Background(), Input{
		Question:  q(t, "Podpowiedź na poprzedniej stronie — wymień pierwsze trzy kroki"),
		SourceURL: "https://portalmedialny.pl/art/1/a.html",
		LoadSource: func(context.Context) (string, error) {
			return html, nil
		},
	})
	if res.Tag != StrategyExtract {
		t.Fatalf("expected EXTRACT_STEPS, got %s", res.Tag)
	}
	want := "1) Analiza wymagań projektu; 2) Projekt architektury systemu; 3) Implementacja i testy modułów"
	if res.Answer != want {
		t.Errorf("unexpected answer:\n got %s\nwant %s", res.Answer, want)
	}
}

func TestResolveExtractSkippedWithoutHint(t *testing.T) {
	loaded := false
	r := newTestResolver()
	r.Resolve(context.Background(), Input{
		Question:  q(t, "Pytanie konkursowe: Jakieś zwykłe pytanie?"),
		SourceURL: "https://portalmedialny.pl/art/1/a.html",
		LoadSource: func(context.Context) (string, error) {
			loaded = true
			return "", nil
		},
	})
	if loaded {
		t.Error("source page must not be loaded without the previous-page hint")
	}
}

func TestResolveTemplateFallback(t *testing.T) {
	r := newTestResolver()
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Jak wygląda proces testowania aplikacji?"),
	})
	if res.Tag != StrategyTemplate {
		t.Fatalf("expected TEMPLATE_STEPS, got %s", res.Tag)
	}
	if res.Answer == "" || res.Answer[0] != '1' {
		t.Errorf("expected numbered steps, got %q", res.Answer)
	}
}

func TestResolveOracle(t *testing.T) {
	r := New(&mockProvider{response: "  42  "}, nil)
	r.Now = fixedNow
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Coś zupełnie nieznanego?"),
	})
	if res.Tag != StrategyLLM {
		t.Fatalf("expected LLM, got %s", res.Tag)
	}
	if res.Answer != "42" {
		t.Errorf("expected trimmed oracle answer, got %q", res.Answer)
	}
}

func TestResolveOracleContextCutsAtRuneBoundary(t *testing.T) {
	// Page text longer than the context limit, offset so a byte-count cut
	// would land mid-rune.
	html := "<html><body><article><p>x" + strings.Repeat("ą", 2000) + "</p></article></body></html>"
	mock := &mockProvider{response: "odpowiedź"}
	r := New(mock, nil)
	r.Now = fixedNow

	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Coś zupełnie nieznanego?"),
		PageHTML: html,
		PageURL:  "https://portalmedialny.pl/konkursy/3/z.html",
	})
	if res.Tag != StrategyLLM {
		t.Fatalf("expected LLM, got %s", res.Tag)
	}
	if !utf8.ValidString(mock.prompt) {
		t.Error("oracle prompt contains a split multi-byte character")
	}
}

func TestResolveOracleFailureFallsThrough(t *testing.T) {
	r := New(&mockProvider{err: errors.New("transport down")}, nil)
	r.Now = fixedNow
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Coś zupełnie nieznanego?"),
	})
	if res.Tag != StrategyManual {
		t.Fatalf("expected MANUAL after oracle failure, got %s", res.Tag)
	}
	if res.Answer != SentinelUnknown {
		t.Errorf("expected sentinel answer, got %q", res.Answer)
	}
}

func TestResolveOperator(t *testing.T) {
	r := New(nil, &fixedOperator{answer: "ręczna odpowiedź", ok: true})
	r.Now = fixedNow
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Coś zupełnie nieznanego?"),
	})
	if res.Tag != StrategyManual || res.Answer != "ręczna odpowiedź" {
		t.Errorf("unexpected resolution: %+v", res)
	}
}

func TestResolveSentinelWhenNothingMatches(t *testing.T) {
	r := newTestResolver()
	res := r.Resolve(context.Background(), Input{
		Question: q(t, "Pytanie konkursowe: Coś zupełnie nieznanego?"),
	})
	if res.Tag != StrategyManual || res.Answer != SentinelUnknown {
		t.Errorf("expected MANUAL/%s, got %+v", SentinelUnknown, res)
	}
}
