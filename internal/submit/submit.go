// Package submit drives one contest form from a scanned mapping to a ledger
// status: expiry check, field filling, consent checkboxes, verification
// challenges, the submit click and the confirmation check.
package submit

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/formmap"
	"github.com/mwrobel/pmagent/internal/ledger"
	"github.com/mwrobel/pmagent/internal/resolve"
)

// Options carry the run settings the submitter acts on.
type Options struct {
	DryRun      bool
	Interactive bool
	CaptchaMode string
	CaptchaWait time.Duration
}

// Result is the terminal state of one attempt.
type Result struct {
	Status string
	Stats  FillStats
}

// Submitter operates on the already-navigated contest form page.
type Submitter struct {
	page browser.Page
	opts Options
}

func New(page browser.Page, opts Options) *Submitter {
	if opts.CaptchaWait == 0 {
		opts.CaptchaWait = 60 * time.Second
	}
	return &Submitter{page: page, opts: opts}
}

// CheckExpired runs expiry detection against the current page.
func (s *Submitter) CheckExpired(ctx context.Context) (bool, error) {
	text, err := s.page.Text(ctx)
	if err != nil {
		return false, fmt.Errorf("reading page for expiry check: %w", err)
	}
	hasForm, err := s.page.Has(ctx, "form")
	if err != nil {
		return false, fmt.Errorf("checking for form: %w", err)
	}
	return DetectExpired(text, hasForm, ledger.NowLocal()), nil
}

// Run fills the mapped roles with values, accepts consents and, unless dry
// run, handles any challenge, clicks submit and classifies the outcome.
// Expiry must have been checked by the caller; Run assumes a live form.
func (s *Submitter) Run(ctx context.Context, mapping *formmap.Mapping, values map[formmap.Role]string, tag resolve.Strategy) Result {
	stats := s.Fill(ctx, mapping, values)

	if n, err := s.AcceptConsents(ctx); err != nil {
		log.Printf("consent checkboxes failed: %v", err)
	} else if n > 0 {
		log.Printf("ticked %d consent checkboxes", n)
	}

	if s.opts.DryRun {
		log.Printf("dry run, skipping submit")
		return Result{Status: ledger.StatusDryFilled, Stats: stats}
	}

	s.HandleChallenge(ctx)

	sent := s.clickSubmit(ctx)
	s.page.Sleep(ctx, 2*time.Second)
	confirmed := sent && s.confirmed(ctx)

	return Result{Status: StatusFor(tag, sent, confirmed), Stats: stats}
}

// Fill types each mapped role's value. Roles fail independently: a missing
// selector or a failed fill is recorded in the stats and does not stop the
// remaining roles.
func (s *Submitter) Fill(ctx context.Context, mapping *formmap.Mapping, values map[formmap.Role]string) FillStats {
	stats := make(FillStats, len(formmap.Roles))
	for _, role := range formmap.Roles {
		sel := mapping.Selector(role)
		value := values[role]
		if sel == "" || value == "" {
			stats[role] = false
			continue
		}
		if err := s.page.Fill(ctx, sel, value); err != nil {
			log.Printf("filling %s (%s) failed: %v", role, sel, err)
			stats[role] = false
			continue
		}
		stats[role] = true
	}
	return stats
}

const consentJS = `() => {
	const boxes = Array.from(document.querySelectorAll("form input[type='checkbox']"))
		.filter(el => !el.checked && el.offsetWidth > 0 && el.offsetHeight > 0);
	for (const el of boxes) {
		el.click();
		if (!el.checked) {
			el.checked = true;
			el.dispatchEvent(new Event('change', {bubbles: true}));
		}
	}
	return boxes.length;
}`

// AcceptConsents ticks every unchecked visible checkbox inside the form and
// returns how many it ticked.
func (s *Submitter) AcceptConsents(ctx context.Context) (int, error) {
	var n int
	if err := s.page.Eval(ctx, consentJS, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Checked in a fixed order so the reported kind is stable when a page
// carries both widgets.
var challengeChecks = []struct {
	kind     string
	selector string
}{
	{"recaptcha", "iframe[title*='reCAPTCHA'], .grecaptcha-badge"},
	{"hcaptcha", "iframe[src*='hcaptcha.com'], [data-hcaptcha]"},
}

const captchaResponseSelector = "input[name*='h-captcha-response'], input[name*='g-recaptcha-response']"

func (s *Submitter) detectChallenge(ctx context.Context) string {
	for _, c := range challengeChecks {
		if has, err := s.page.Has(ctx, c.selector); err == nil && has {
			return c.kind
		}
	}
	return ""
}

// HandleChallenge applies the configured captcha mode. None of the modes
// guarantee a solved challenge; submission proceeds regardless and the
// outcome shows up as SENT_UNCONFIRMED or NOT_SENT.
func (s *Submitter) HandleChallenge(ctx context.Context) {
	kind := s.detectChallenge(ctx)
	if kind == "" {
		return
	}
	log.Printf("challenge detected: %s (mode %s)", kind, s.opts.CaptchaMode)

	switch s.opts.CaptchaMode {
	case "pause":
		if !s.opts.Interactive {
			log.Printf("pause mode without interactive, continuing unsolved")
			return
		}
		log.Printf("solve the challenge in the browser, waiting up to %s", s.opts.CaptchaWait)
		s.waitForResponse(ctx)
	case "wait":
		if s.waitForResponse(ctx) {
			log.Printf("challenge response present")
		} else {
			log.Printf("challenge wait timed out")
		}
	case "skip":
	}
}

// waitForResponse polls for the challenge response input until it appears or
// the wait budget runs out.
func (s *Submitter) waitForResponse(ctx context.Context) bool {
	deadline := time.Now().Add(s.opts.CaptchaWait)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if has, err := s.page.Has(ctx, captchaResponseSelector); err == nil && has {
			return true
		}
		s.page.Sleep(ctx, 2*time.Second)
	}
	return false
}

// Submit phrases tried against button text before falling back to selectors.
var submitPhrases = []string{
	"wyślij zgłoszenie", "wyślij formularz", "wyślij odpowiedź", "wyślij wiadomość", "wyślij", "zgłoś",
}

var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	".submit",
	".btn-submit",
	".btn-primary[type='submit']",
}

const submitFallbackJS = `() => {
	const btns = Array.from(document.querySelectorAll('button,input[type=submit]'))
		.filter(el => el.offsetWidth > 2 && el.offsetHeight > 2);
	if (btns.length > 0) { btns[btns.length - 1].click(); return true; }
	const forms = Array.from(document.querySelectorAll('form'));
	if (forms.length > 0) { forms[0].submit(); return true; }
	return false;
}`

const submitByTextJS = `(phrase) => {
	const btns = Array.from(document.querySelectorAll("button, input[type='submit'], [role='button']"));
	for (const el of btns) {
		const txt = ((el.innerText || el.value || '')).trim().toLowerCase();
		if (txt.includes(phrase) && el.offsetWidth > 2 && el.offsetHeight > 2) {
			el.click();
			return true;
		}
	}
	return false;
}`

// clickSubmit works down the submit chain: labeled buttons, common submit
// selectors, then the last visible button or a bare form.submit().
func (s *Submitter) clickSubmit(ctx context.Context) bool {
	for _, phrase := range submitPhrases {
		if s.evalClick(ctx, submitByTextJS, phrase) {
			return true
		}
	}
	for _, sel := range submitSelectors {
		has, err := s.page.Has(ctx, sel)
		if err != nil || !has {
			continue
		}
		if err := s.page.Click(ctx, sel); err == nil {
			return true
		}
	}
	return s.evalClick(ctx, submitFallbackJS)
}

func (s *Submitter) evalClick(ctx context.Context, js string, args ...string) bool {
	script := js
	if len(args) > 0 {
		// Bind the phrase into the function since Eval takes no arguments.
		script = fmt.Sprintf(`() => (%s)(%q)`, js, args[0])
	}
	var ok bool
	if err := s.page.Eval(ctx, script, &ok); err != nil {
		return false
	}
	return ok
}

var confirmationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dziękujemy`),
	regexp.MustCompile(`(?i)twoje zgłoszenie zostało wysłane`),
	regexp.MustCompile(`(?i)zgłoszenie przyjęte`),
	regexp.MustCompile(`(?i)wysłano`),
	regexp.MustCompile(`(?i)formularz został wysłany`),
	regexp.MustCompile(`(?i)thank you`),
	regexp.MustCompile(`(?i)submission received`),
	regexp.MustCompile(`(?i)succe(ss|s)`),
	regexp.MustCompile(`(?i)submitted`),
}

var confirmationURLRe = regexp.MustCompile(`(?i)(sent|success|dziekujemy|wyslane|submitted)`)

// confirmed looks for a thank-you phrase in the page text or a
// success-shaped fragment in the current URL.
func (s *Submitter) confirmed(ctx context.Context) bool {
	if text, err := s.page.Text(ctx); err == nil {
		for _, re := range confirmationRes {
			if re.MatchString(text) {
				return true
			}
		}
	}
	if u, err := s.page.URL(ctx); err == nil && confirmationURLRe.MatchString(u) {
		return true
	}
	return false
}

// StatusFor maps the submission outcome and the resolver strategy to a
// ledger status. Confirmation is required for the strategy-specific sent
// variants; without it the status is always SENT_UNCONFIRMED.
func StatusFor(tag resolve.Strategy, sent, confirmed bool) string {
	if !sent {
		return ledger.StatusNotSent
	}
	if !confirmed {
		return ledger.StatusSentUnconfirmed
	}
	switch tag {
	case resolve.StrategyYears:
		return ledger.StatusSentYears
	case resolve.StrategyExtract:
		return ledger.StatusSentExtract
	case resolve.StrategyTemplate:
		return ledger.StatusSentTemplate
	case resolve.StrategyLLM:
		return ledger.StatusSentLLM
	default:
		return ledger.StatusSent
	}
}

// FillStats records per-role fill success for the ledger's diagnostic
// column.
type FillStats map[formmap.Role]bool

// String renders roles in their canonical order.
func (f FillStats) String() string {
	if len(f) == 0 {
		return ""
	}
	parts := make([]string, 0, len(formmap.Roles))
	for _, role := range formmap.Roles {
		parts = append(parts, fmt.Sprintf("%s=%t", role, f[role]))
	}
	return strings.Join(parts, " ")
}
