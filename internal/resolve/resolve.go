// Package resolve produces an answer for a contest question through an
// ordered fallback chain: year arithmetic, article step extraction, canned
// templates, the external oracle, and finally manual entry.
package resolve

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/mwrobel/pmagent/internal/llm"
	"github.com/mwrobel/pmagent/internal/question"
)

// Strategy identifies which resolver strategy produced an answer.
type Strategy string

const (
	StrategyYears    Strategy = "YEARS"
	StrategyExtract  Strategy = "EXTRACT_STEPS"
	StrategyTemplate Strategy = "TEMPLATE_STEPS"
	StrategyLLM      Strategy = "LLM"
	StrategyManual   Strategy = "MANUAL"
	StrategyNone     Strategy = "NONE"
)

// SentinelUnknown is recorded when no strategy produced an answer.
const SentinelUnknown = "??"

// Resolution is the outcome of the fallback chain for one candidate.
type Resolution struct {
	Tag    Strategy
	Answer string
}

// Input carries everything the chain may need for one candidate. LoadSource
// fetches the linked article's HTML and is only invoked when the question
// carries the previous-page hint.
type Input struct {
	Question   *question.Question
	PageText   string
	PageHTML   string
	PageURL    string
	SourceURL  string
	LoadSource func(ctx context.Context) (string, error)
}

// Operator is the manual-entry capability. A non-interactive implementation
// returns ok=false immediately.
type Operator interface {
	RequestAnswer(ctx context.Context, q string) (answer string, ok bool)
}

// Resolver runs the ordered fallback chain.
type Resolver struct {
	Oracle   llm.Provider // nil when the oracle is disabled
	Operator Operator     // nil when not interactive
	Now      func() time.Time
}

// New creates a resolver. Either dependency may be nil.
func New(oracle llm.Provider, operator Operator) *Resolver {
	return &Resolver{Oracle: oracle, Operator: operator, Now: time.Now}
}

// Resolve runs the chain and always returns a resolution; when every
// strategy fails the answer is the unknown sentinel with the MANUAL tag.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	q := ""
	if in.Question != nil {
		q = in.Question.Normalized
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}

	// 1. Year arithmetic.
	if year, ok := ResolveYear(q); ok {
		answer := fmt.Sprintf("%d", YearsAgo(year, now()))
		log.Printf("resolved via year table: %d -> %s years ago", year, answer)
		return Resolution{Tag: StrategyYears, Answer: answer}
	}

	// 2. Article step extraction, only when the question points at the
	// previous page and we know which page that is.
	if in.Question != nil && in.Question.NeedsSourcePage() && in.SourceURL != "" && in.LoadSource != nil {
		html, err := in.LoadSource(ctx)
		if err != nil {
			log.Printf("loading source article failed: %v", err)
		} else if steps := ExtractSteps(html, in.SourceURL, 3); len(steps) > 0 {
			return Resolution{Tag: StrategyExtract, Answer: FormatSteps(steps)}
		}
	}

	// 3. Template fallback.
	if steps := TemplateSteps(q); len(steps) > 0 {
		return Resolution{Tag: StrategyTemplate, Answer: FormatSteps(steps)}
	}

	// 4. External oracle. Any failure continues the chain.
	if r.Oracle != nil && r.Oracle.IsConfigured() && q != "" {
		answer, err := r.askOracle(ctx, q, in)
		if err != nil {
			log.Printf("oracle failed: %v", err)
		} else if answer != "" {
			return Resolution{Tag: StrategyLLM, Answer: answer}
		}
	}

	// 5. Manual entry, or the unknown sentinel.
	if r.Operator != nil {
		if answer, ok := r.Operator.RequestAnswer(ctx, q); ok && answer != "" {
			return Resolution{Tag: StrategyManual, Answer: answer}
		}
	}
	return Resolution{Tag: StrategyManual, Answer: SentinelUnknown}
}

// oracleContextLimit bounds how much page text is sent with the question.
const oracleContextLimit = 3000

func (r *Resolver) askOracle(ctx context.Context, q string, in Input) (string, error) {
	prompt := "Jesteś ekspertem od konkursów wiedzy. Odpowiedz krótko i konkretnie na pytanie konkursowe. " +
		"Jeśli pytanie dotyczy roku lub daty, podaj dokładną liczbę. " +
		"Jeśli pytanie prosi o wymienienie kroków, podaj je numerowane.\n\n"

	if in.PageHTML != "" {
		snippet := MainText(in.PageHTML, in.PageURL)
		if len(snippet) > oracleContextLimit {
			// Back up to a rune boundary so the cut never mangles a
			// multi-byte character.
			cut := oracleContextLimit
			for cut > 0 && !utf8.RuneStart(snippet[cut]) {
				cut--
			}
			snippet = snippet[:cut]
		}
		if snippet != "" {
			prompt += "Kontekst z artykułu:\n" + snippet + "\n\n"
		}
	}
	prompt += "Pytanie: " + q + "\n\nOdpowiedź:"

	answer, err := r.Oracle.Generate(ctx, prompt, 500)
	if err != nil {
		return "", err
	}
	return trimAnswer(answer), nil
}
