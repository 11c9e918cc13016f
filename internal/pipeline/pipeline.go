// Package pipeline sequences one run: collect candidates, drop the ones the
// ledger has already sent, then take each survivor through question
// extraction, answer resolution, field mapping and submission, writing
// exactly one ledger row per candidate on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/mwrobel/pmagent/internal/collect"
	"github.com/mwrobel/pmagent/internal/config"
	"github.com/mwrobel/pmagent/internal/ledger"
)

// CandidateSource produces the run's candidate set.
type CandidateSource interface {
	Collect(ctx context.Context) ([]collect.Candidate, error)
}

// Processor takes one candidate from navigation to a terminal status.
type Processor interface {
	Process(ctx context.Context, cand collect.Candidate) Outcome
}

// Outcome is the ledger-facing result of one candidate.
type Outcome struct {
	Question  string
	Answer    string
	Status    string
	FillStats string
}

// Result tallies a run for the CLI summary.
type Result struct {
	Collected int
	Deduped   int
	Processed int
	Sent      int
	Skipped   int
	Errors    int
}

// Pipeline drives candidates sequentially. One browser page is shared by
// the source and the processor, so nothing here runs concurrently.
type Pipeline struct {
	cfg    *config.Config
	db     *ledger.DB
	source CandidateSource
	proc   Processor

	// pace sleeps between candidates. Swapped out in tests.
	pace func(ctx context.Context)
}

// New assembles a pipeline from its parts.
func New(cfg *config.Config, db *ledger.DB, source CandidateSource, proc Processor) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		db:     db,
		source: source,
		proc:   proc,
		pace:   politePause,
	}
}

// politePause waits 15-45 s between candidates.
func politePause(ctx context.Context) {
	d := time.Duration(15+rand.Intn(31)) * time.Second
	log.Printf("pacing: waiting %s before next candidate", d)
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Run executes the pipeline. The error return covers run-level faults
// (ledger unreachable, collection failed); per-candidate faults become
// ERROR ledger rows and never abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r := &Result{}
	maxDaily := p.cfg.Run.MaxDaily

	sentToday, err := p.db.CountSentToday(ledger.NowLocal())
	if err != nil {
		return nil, fmt.Errorf("reading today's count: %w", err)
	}
	if maxDaily > 0 && sentToday >= maxDaily {
		log.Printf("daily quota already reached (%d/%d), not starting", sentToday, maxDaily)
		return r, nil
	}

	candidates, err := p.source.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting candidates: %w", err)
	}
	r.Collected = len(candidates)

	eligible, err := p.filterSent(candidates)
	if err != nil {
		return nil, err
	}
	r.Deduped = len(candidates) - len(eligible)

	if max := p.cfg.Run.MaxCandidates; max > 0 && len(eligible) > max {
		log.Printf("capping %d eligible candidates at %d", len(eligible), max)
		eligible = eligible[:max]
	}

	for i, cand := range eligible {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		if i > 0 {
			p.pace(ctx)
		}
		log.Printf("candidate %d/%d: %s", i+1, len(eligible), cand.FormURL)

		attempt := ledger.Attempt{
			ContestURL: cand.FormURL,
			ArticleURL: cand.SourceArticleURL,
		}

		if over, count := p.quotaReached(maxDaily); over {
			log.Printf("daily quota reached (%d/%d), skipping remaining candidates", count, maxDaily)
			attempt.Status = ledger.StatusSkippedDailyLimit
			p.record(attempt)
			r.Processed++
			r.Skipped++
			continue
		}

		out := p.safeProcess(ctx, cand)
		attempt.Question = out.Question
		attempt.Answer = out.Answer
		attempt.Status = out.Status
		attempt.FillStats = out.FillStats
		p.record(attempt)

		r.Processed++
		switch {
		case ledger.IsSent(out.Status):
			r.Sent++
		case isError(out.Status):
			r.Errors++
		default:
			r.Skipped++
		}
	}

	log.Printf("run complete: %d collected, %d already sent, %d processed, %d sent, %d errors",
		r.Collected, r.Deduped, r.Processed, r.Sent, r.Errors)
	return r, nil
}

// filterSent drops candidates whose form URL already has a sent-family row.
func (p *Pipeline) filterSent(candidates []collect.Candidate) ([]collect.Candidate, error) {
	sent, err := p.db.SentURLs()
	if err != nil {
		return nil, fmt.Errorf("reading sent urls: %w", err)
	}
	var eligible []collect.Candidate
	for _, c := range candidates {
		if sent[c.FormURL] {
			log.Printf("already sent, skipping: %s", c.FormURL)
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}

func (p *Pipeline) quotaReached(maxDaily int) (bool, int) {
	if maxDaily <= 0 {
		return false, 0
	}
	count, err := p.db.CountSentToday(ledger.NowLocal())
	if err != nil {
		log.Printf("quota check failed, proceeding: %v", err)
		return false, 0
	}
	return count >= maxDaily, count
}

// safeProcess isolates a candidate's faults: a panic becomes an ERROR
// outcome instead of taking down the run.
func (p *Pipeline) safeProcess(ctx context.Context, cand collect.Candidate) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("candidate %s panicked: %v", cand.FormURL, rec)
			out = Outcome{Status: ErrorStatus("Panic", fmt.Errorf("%v", rec))}
		}
	}()
	return p.proc.Process(ctx, cand)
}

// record writes the candidate's single ledger row. A failed write is logged;
// there is nowhere else to put it.
func (p *Pipeline) record(a ledger.Attempt) {
	if _, err := p.db.Insert(a); err != nil {
		log.Printf("ledger write failed for %s: %v", a.ContestURL, err)
	}
}

// ErrorStatus builds an ERROR ledger status tagged with the fault kind.
func ErrorStatus(kind string, err error) string {
	return fmt.Sprintf("%s%s: %v", ledger.StatusErrorPrefix, kind, err)
}

func isError(status string) bool {
	return strings.HasPrefix(status, ledger.StatusErrorPrefix)
}
