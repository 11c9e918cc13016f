package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

const elementTimeout = 5 * time.Second

// Navigate loads url, retrying per policy. Each attempt waits for the load
// event within the configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string, policy RetryPolicy) error {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetry
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("retrying navigation to %s (attempt %d/%d)", url, attempt, policy.MaxAttempts)
			s.Sleep(ctx, policy.Backoff)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout)
		if err := p.Navigate(url); err != nil {
			lastErr = err
			continue
		}
		if err := p.WaitLoad(); err != nil {
			lastErr = err
			continue
		}
		// New document, any previously selected frame is gone.
		s.scope = nil
		return nil
	}
	return fmt.Errorf("navigating to %s after %d attempts: %w", url, policy.MaxAttempts, lastErr)
}

// Text returns the rendered text of the current document body. When a form
// frame is selected, that frame's body is read.
func (s *Session) Text(ctx context.Context) (string, error) {
	var text string
	if err := s.Eval(ctx, `() => document.body ? document.body.innerText : ''`, &text); err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	return text, nil
}

// HTML returns the serialized DOM of the current document: the selected
// form frame's when one is scoped, otherwise the top page's.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.target().Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("reading page html: %w", err)
	}
	return html, nil
}

// URL returns the top page's current address, which can differ from the
// last navigated URL after redirects or a form submission. Always the top
// page, never a frame's src: confirmation URLs show up in the address bar.
func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page url: %w", err)
	}
	return info.URL, nil
}

// Eval runs a JavaScript function in the page and, when out is non-nil,
// decodes the returned value into it.
func (s *Session) Eval(ctx context.Context, js string, out any) error {
	res, err := s.target().Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding eval result: %w", err)
	}
	return nil
}

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.target().Context(ctx).Timeout(elementTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("finding %s: %w", selector, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scrolling to %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking %s: %w", selector, err)
	}
	return nil
}

const fillFallbackJS = `(sel, value) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	if (el.isContentEditable) {
		el.innerText = value;
	} else {
		el.value = value;
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
}`

// Fill types value into the element character by character with human-like
// pauses. When keyboard input fails (contenteditable widgets, JS-backed
// inputs), it falls back to setting the value directly and firing the
// input and change events frameworks listen for.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.fillByTyping(ctx, selector, value); err == nil {
		return nil
	}

	var ok bool
	res, err := s.target().Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      fillFallbackJS,
		JSArgs:  []interface{}{selector, value},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("filling %s: %w", selector, err)
	}
	raw, _ := res.Value.MarshalJSON()
	_ = json.Unmarshal(raw, &ok)
	if !ok {
		return fmt.Errorf("filling %s: element not found", selector)
	}
	return nil
}

func (s *Session) fillByTyping(ctx context.Context, selector, value string) error {
	el, err := s.target().Context(ctx).Timeout(elementTimeout).Element(selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	// Replace any prefilled content instead of appending to it.
	if err := el.SelectAllText(); err == nil {
		_ = el.Type(input.Backspace)
	}
	for _, r := range value {
		if err := el.Input(string(r)); err != nil {
			return err
		}
		s.Sleep(ctx, time.Duration(30+rand.Intn(90))*time.Millisecond)
	}
	// Tab out so blur-driven validation runs before submission.
	_ = el.Type(input.Tab)
	return nil
}

// Has reports whether the selector matches any element right now, without
// waiting for one to appear.
func (s *Session) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := s.target().Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("checking for %s: %w", selector, err)
	}
	return has, nil
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func (s *Session) Sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("taking screenshot: %w", err)
	}
	return data, nil
}
