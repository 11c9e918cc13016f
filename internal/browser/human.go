package browser

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Known consent-button selectors tried before the text-based sweep.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	".fc-cta-consent",
	"button[mode='primary']",
	".cookie-accept",
	"#cookies-accept",
}

const consentSweepJS = `() => {
	const phrases = ['zgadzam się', 'zgadzam sie', 'akceptuję', 'akceptuje', 'zaakceptuj',
		'przejdź do serwisu', 'przejdz do serwisu', 'accept all', 'rozumiem', 'ok'];
	const candidates = Array.from(document.querySelectorAll('button, a, [role="button"]'));
	for (const el of candidates) {
		const txt = (el.innerText || '').trim().toLowerCase();
		if (txt && txt.length < 60 && phrases.some(p => txt === p || txt.startsWith(p))) {
			el.click();
			return true;
		}
	}
	for (const sel of ['#cookie', '.cookie-banner', '.cookies', '[id*="consent"]', '[class*="consent"]']) {
		document.querySelectorAll(sel).forEach(el => {
			const r = el.getBoundingClientRect();
			if (r.height > 40) el.style.display = 'none';
		});
	}
	return false;
}`

// DismissCookies clicks through the consent banner if one is up. A banner
// that cannot be clicked away gets hidden instead so it does not cover form
// controls. Failures are non-fatal.
func (s *Session) DismissCookies(ctx context.Context) {
	for _, sel := range consentSelectors {
		has, err := s.Has(ctx, sel)
		if err != nil || !has {
			continue
		}
		if err := s.Click(ctx, sel); err == nil {
			s.Sleep(ctx, 500*time.Millisecond)
			return
		}
	}

	var clicked bool
	if err := s.Eval(ctx, consentSweepJS, &clicked); err != nil {
		log.Printf("cookie banner sweep failed: %v", err)
		return
	}
	if clicked {
		s.Sleep(ctx, 500*time.Millisecond)
	}
}

const scrollJS = `(y) => { window.scrollBy({top: y, behavior: 'smooth'}); }`

// SimulateHuman skims the page the way a reader would before acting on it:
// a few uneven scrolls down with pauses, a mouse move, then a scroll back
// towards the form.
func (s *Session) SimulateHuman(ctx context.Context) {
	scrolled := 0
	steps := 2 + rand.Intn(3)
	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return
		}
		y := 200 + rand.Intn(500)
		scrolled += y
		_, _ = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
			JS:      scrollJS,
			JSArgs:  []interface{}{y},
			ByValue: true,
		})
		s.Sleep(ctx, time.Duration(400+rand.Intn(900))*time.Millisecond)
	}

	_ = s.page.Context(ctx).Mouse.MoveLinear(
		proto.NewPoint(float64(100+rand.Intn(800)), float64(100+rand.Intn(400))), 5)

	if scrolled > 0 {
		_, _ = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
			JS:      scrollJS,
			JSArgs:  []interface{}{-(scrolled / 2)},
			ByValue: true,
		})
		s.Sleep(ctx, time.Duration(300+rand.Intn(500))*time.Millisecond)
	}
}

// DumpArtifacts writes a screenshot and the page HTML under dir, named by
// label and timestamp, plus the form frame's HTML when one is scoped. Used
// for post-run inspection of submissions.
func (s *Session) DumpArtifacts(ctx context.Context, dir, label string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", stamp, sanitizeLabel(label)))

	if png, err := s.Screenshot(ctx); err == nil {
		if err := os.WriteFile(base+".png", png, 0o644); err != nil {
			return fmt.Errorf("writing screenshot: %w", err)
		}
	}
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing page html: %w", err)
	}
	if s.scope != nil {
		fhtml, err := s.scope.Context(ctx).HTML()
		if err != nil {
			return fmt.Errorf("reading frame html: %w", err)
		}
		if err := os.WriteFile(base+".frame.html", []byte(fhtml), 0o644); err != nil {
			return fmt.Errorf("writing frame html: %w", err)
		}
	}
	return nil
}

// sanitizeLabel keeps filenames safe when the label is a ledger status with
// punctuation or URL fragments in it.
func sanitizeLabel(label string) string {
	out := []rune(label)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	const max = 60
	if len(out) > max {
		out = out[:max]
	}
	return string(out)
}
