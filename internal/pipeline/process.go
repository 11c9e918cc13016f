package pipeline

import (
	"context"
	"log"
	"path/filepath"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/collect"
	"github.com/mwrobel/pmagent/internal/config"
	"github.com/mwrobel/pmagent/internal/formmap"
	"github.com/mwrobel/pmagent/internal/ledger"
	"github.com/mwrobel/pmagent/internal/question"
	"github.com/mwrobel/pmagent/internal/resolve"
	"github.com/mwrobel/pmagent/internal/submit"
)

// sessionExtras are the frame and human-behavior helpers the real browser
// session provides beyond the Page surface.
type sessionExtras interface {
	DismissCookies(ctx context.Context)
	SimulateHuman(ctx context.Context)
	SelectFormScope(ctx context.Context) (bool, error)
	DumpArtifacts(ctx context.Context, dir, label string) error
}

// candidateProcessor is the production Processor: one navigated page per
// candidate, taken through the full extract/resolve/map/submit sequence.
type candidateProcessor struct {
	page         browser.Page
	cfg          *config.Config
	resolver     *resolve.Resolver
	sub          *submit.Submitter
	artifactsDir string
}

// NewProcessor wires the production processor. The resolver's operator may
// be nil for non-interactive runs.
func NewProcessor(page browser.Page, cfg *config.Config, resolver *resolve.Resolver) Processor {
	return &candidateProcessor{
		page:     page,
		cfg:      cfg,
		resolver: resolver,
		sub: submit.New(page, submit.Options{
			DryRun:      cfg.Run.DryRun,
			Interactive: cfg.Run.Interactive,
			CaptchaMode: cfg.Run.CaptchaMode,
		}),
		artifactsDir: filepath.Join(cfg.GetDataDir(), "artifacts"),
	}
}

func (cp *candidateProcessor) Process(ctx context.Context, cand collect.Candidate) Outcome {
	if err := cp.page.Navigate(ctx, cand.FormURL, browser.DefaultRetry); err != nil {
		return Outcome{Status: ErrorStatus("NavigationFailed", err)}
	}

	if s, ok := cp.page.(sessionExtras); ok {
		s.DismissCookies(ctx)
		// Everything from question extraction to the submit click must run
		// against the document holding the form, which some contests embed
		// in an iframe.
		if inFrame, err := s.SelectFormScope(ctx); err != nil {
			log.Printf("form frame selection failed: %v", err)
		} else if inFrame {
			s.DismissCookies(ctx)
		}
		s.SimulateHuman(ctx)
	}

	expired, err := cp.sub.CheckExpired(ctx)
	if err != nil {
		return Outcome{Status: ErrorStatus("PageRead", err)}
	}
	if expired {
		log.Printf("contest expired, skipping")
		return Outcome{Status: ledger.StatusSkippedExpired}
	}

	text, err := cp.page.Text(ctx)
	if err != nil {
		return Outcome{Status: ErrorStatus("PageRead", err)}
	}
	q := question.Extract(text)
	qText := ""
	if q != nil {
		qText = q.Normalized
		log.Printf("question: %s", qText)
	} else {
		log.Printf("no question found on page")
	}

	html, err := cp.page.HTML(ctx)
	if err != nil {
		log.Printf("reading page html failed: %v", err)
	}

	res := cp.resolver.Resolve(ctx, resolve.Input{
		Question:   q,
		PageText:   text,
		PageHTML:   html,
		PageURL:    cand.FormURL,
		SourceURL:  cand.SourceArticleURL,
		LoadSource: cp.sourceLoader(cand),
	})
	log.Printf("answer [%s]: %.120s", res.Tag, res.Answer)

	mapping, err := formmap.Scan(ctx, cp.page)
	if err != nil {
		// Best effort: submission proceeds with zero mapped roles and the
		// fill stats say so.
		log.Printf("field mapping failed: %v", err)
		mapping = &formmap.Mapping{Selectors: map[formmap.Role]string{}}
	}

	result := cp.sub.Run(ctx, mapping, cp.values(res.Answer), res.Tag)

	if cp.cfg.Run.SaveArtifacts {
		if s, ok := cp.page.(sessionExtras); ok {
			if err := s.DumpArtifacts(ctx, cp.artifactsDir, result.Status); err != nil {
				log.Printf("saving artifacts failed: %v", err)
			}
		}
	}

	return Outcome{
		Question:  qText,
		Answer:    res.Answer,
		Status:    result.Status,
		FillStats: result.Stats.String(),
	}
}

// values maps the configured identity plus the resolved answer onto roles.
func (cp *candidateProcessor) values(answer string) map[formmap.Role]string {
	p := cp.cfg.Participant
	return map[formmap.Role]string{
		formmap.RoleFirstName: p.FirstName,
		formmap.RoleLastName:  p.LastName,
		formmap.RoleEmail:     p.Email,
		formmap.RoleCity:      p.City,
		formmap.RoleAnswer:    answer,
	}
}

// sourceLoader fetches the linked article's HTML through the shared page
// and navigates back to the form afterwards. Navigating away discards any
// selected form frame, so the scope is reselected on return.
func (cp *candidateProcessor) sourceLoader(cand collect.Candidate) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if err := cp.page.Navigate(ctx, cand.SourceArticleURL, browser.DefaultRetry); err != nil {
			return "", err
		}
		html, err := cp.page.HTML(ctx)
		if backErr := cp.page.Navigate(ctx, cand.FormURL, browser.DefaultRetry); backErr != nil && err == nil {
			err = backErr
		}
		if s, ok := cp.page.(sessionExtras); ok && err == nil {
			if _, scopeErr := s.SelectFormScope(ctx); scopeErr != nil {
				log.Printf("form frame selection after return failed: %v", scopeErr)
			}
		}
		return html, err
	}
}
