// Package browser wraps go-rod behind the small automation surface the rest
// of the agent uses: navigate, read text/HTML, evaluate scripts, click and
// type. One session owns one Chrome and one page reused across candidates.
package browser

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the automation capability consumed by collection and submission.
// Implementations other than Session exist only in tests.
type Page interface {
	Navigate(ctx context.Context, url string, policy RetryPolicy) error
	Text(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Eval(ctx context.Context, js string, out any) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Has(ctx context.Context, selector string) (bool, error)
	Sleep(ctx context.Context, d time.Duration)
	Screenshot(ctx context.Context) ([]byte, error)
}

// RetryPolicy controls navigation retries.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetry matches the site's flakiness in practice: two retries with a
// short pause is enough for transient load failures.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}

// Config holds browser launch settings.
type Config struct {
	Headless          bool
	NavigationTimeout time.Duration
}

// Session owns the Chrome instance and the single reused page. Element
// operations act on scope when a form frame has been selected, otherwise on
// the top page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	scope   *rod.Page
	cfg     Config
}

// target is the document element operations run against.
func (s *Session) target() *rod.Page {
	if s.scope != nil {
		return s.scope
	}
	return s.page
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

var viewports = []proto.EmulationSetDeviceMetricsOverride{
	{Width: 1920, Height: 1080, DeviceScaleFactor: 1},
	{Width: 1366, Height: 768, DeviceScaleFactor: 1},
	{Width: 1536, Height: 864, DeviceScaleFactor: 1},
	{Width: 1440, Height: 900, DeviceScaleFactor: 1},
	{Width: 1680, Height: 1050, DeviceScaleFactor: 1},
	{Width: 2560, Height: 1440, DeviceScaleFactor: 1},
}

const stealthJS = `() => {
	Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
	Object.defineProperty(navigator, 'languages', {get: () => ['pl-PL', 'pl', 'en-US', 'en']});
	Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
	window.chrome = {runtime: {}};
}`

// Launch starts Chrome and opens the single page used for the whole run,
// with a randomized user agent and viewport and the stealth init script.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = 20 * time.Second
	}

	controlURL, err := launcher.New().Headless(cfg.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	ua := userAgents[rand.Intn(len(userAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "pl-PL,pl;q=0.9,en-US;q=0.8,en;q=0.7",
	}); err != nil {
		log.Printf("warning: failed to set user agent: %v", err)
	}

	vp := viewports[rand.Intn(len(viewports))]
	if err := vp.Call(page); err != nil {
		log.Printf("warning: failed to set viewport: %v", err)
	}

	if _, err := page.EvalOnNewDocument(stealthJS); err != nil {
		log.Printf("warning: failed to install stealth script: %v", err)
	}

	log.Printf("browser ready (ua: %.50s..., viewport: %dx%d)", ua, vp.Width, vp.Height)
	return &Session{browser: b, page: page, cfg: cfg}, nil
}

// Close shuts down the browser.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}
