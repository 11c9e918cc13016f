package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwrobel/pmagent/internal/collect"
	"github.com/mwrobel/pmagent/internal/config"
	"github.com/mwrobel/pmagent/internal/ledger"
)

func openTestDB(t *testing.T) *ledger.DB {
	t.Helper()
	db, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type stubSource struct {
	candidates []collect.Candidate
	calls      int
}

func (s *stubSource) Collect(context.Context) ([]collect.Candidate, error) {
	s.calls++
	return s.candidates, nil
}

type stubProcessor struct {
	outcome func(cand collect.Candidate) Outcome
	seen    []string
}

func (s *stubProcessor) Process(_ context.Context, cand collect.Candidate) Outcome {
	s.seen = append(s.seen, cand.FormURL)
	return s.outcome(cand)
}

func candidates(n int) []collect.Candidate {
	out := make([]collect.Candidate, n)
	for i := range out {
		out[i] = collect.Candidate{FormURL: "https://example.pl/konkursy/" + string(rune('a'+i)) + "/x.html"}
	}
	return out
}

func testPipeline(cfg *config.Config, db *ledger.DB, src CandidateSource, proc Processor) *Pipeline {
	p := New(cfg, db, src, proc)
	p.pace = func(context.Context) {}
	return p
}

func alwaysSent(collect.Candidate) Outcome {
	return Outcome{Question: "q", Answer: "a", Status: ledger.StatusSentYears}
}

func TestRunQuotaCapsSends(t *testing.T) {
	db := openTestDB(t)
	cfg := &config.Config{Run: config.Run{MaxDaily: 3}}
	proc := &stubProcessor{outcome: alwaysSent}
	p := testPipeline(cfg, db, &stubSource{candidates: candidates(5)}, proc)

	r, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Sent != 3 {
		t.Errorf("expected 3 sent, got %d", r.Sent)
	}
	if len(proc.seen) != 3 {
		t.Errorf("expected 3 candidates processed, got %d", len(proc.seen))
	}

	rows, err := db.All()
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected one row per candidate, got %d", len(rows))
	}
	var skipped int
	for _, row := range rows {
		if row.Status == ledger.StatusSkippedDailyLimit {
			skipped++
			if row.Question != "" || row.Answer != "" {
				t.Errorf("quota-skipped rows must not carry fill data: %+v", row)
			}
		}
	}
	if skipped != 2 {
		t.Errorf("expected 2 daily-limit skips, got %d", skipped)
	}
}

func TestRunSkipsAlreadySent(t *testing.T) {
	db := openTestDB(t)
	cands := candidates(2)
	if _, err := db.Insert(ledger.Attempt{ContestURL: cands[0].FormURL, Status: ledger.StatusSentUnconfirmed}); err != nil {
		t.Fatalf("seeding ledger: %v", err)
	}

	cfg := &config.Config{Run: config.Run{MaxDaily: 10}}
	proc := &stubProcessor{outcome: alwaysSent}
	p := testPipeline(cfg, db, &stubSource{candidates: cands}, proc)

	r, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Deduped != 1 || r.Processed != 1 {
		t.Errorf("expected 1 deduped and 1 processed, got %+v", r)
	}
	if len(proc.seen) != 1 || proc.seen[0] != cands[1].FormURL {
		t.Errorf("expected only the unsent candidate, got %v", proc.seen)
	}
}

func TestRunHaltsWhenQuotaAlreadyMet(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Insert(ledger.Attempt{ContestURL: "https://a.pl/konkursy/1/x.html", Status: ledger.StatusSent}); err != nil {
		t.Fatalf("seeding ledger: %v", err)
	}

	src := &stubSource{candidates: candidates(3)}
	cfg := &config.Config{Run: config.Run{MaxDaily: 1}}
	p := testPipeline(cfg, db, src, &stubProcessor{outcome: alwaysSent})

	r, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if src.calls != 0 {
		t.Errorf("expected no collection when quota already met, got %d calls", src.calls)
	}
	if r.Processed != 0 {
		t.Errorf("expected nothing processed, got %d", r.Processed)
	}
}

func TestRunIsolatesPanics(t *testing.T) {
	db := openTestDB(t)
	cands := candidates(2)
	proc := &stubProcessor{outcome: func(cand collect.Candidate) Outcome {
		if cand.FormURL == cands[0].FormURL {
			panic("selector exploded")
		}
		return alwaysSent(cand)
	}}
	cfg := &config.Config{Run: config.Run{MaxDaily: 10}}
	p := testPipeline(cfg, db, &stubSource{candidates: cands}, proc)

	r, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Errors != 1 || r.Sent != 1 {
		t.Errorf("expected 1 error and 1 sent, got %+v", r)
	}

	rows, err := db.All()
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	var errorRow bool
	for _, row := range rows {
		if strings.HasPrefix(row.Status, ledger.StatusErrorPrefix) {
			errorRow = true
			if !strings.Contains(row.Status, "selector exploded") {
				t.Errorf("error status must carry the fault message, got %s", row.Status)
			}
		}
	}
	if !errorRow {
		t.Error("expected an ERROR ledger row for the panicking candidate")
	}
}

func TestRunCapsCandidates(t *testing.T) {
	db := openTestDB(t)
	proc := &stubProcessor{outcome: alwaysSent}
	cfg := &config.Config{Run: config.Run{MaxDaily: 10, MaxCandidates: 2}}
	p := testPipeline(cfg, db, &stubSource{candidates: candidates(4)}, proc)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(proc.seen) != 2 {
		t.Errorf("expected cap at 2 candidates, got %d", len(proc.seen))
	}
}
