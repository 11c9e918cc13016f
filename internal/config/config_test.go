package config

import (
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(""))
	if err != nil {
		t.Fatalf("parse empty config: %v", err)
	}
	if cfg.Run.MaxListingPages != 3 {
		t.Errorf("expected default max_listing_pages 3, got %d", cfg.Run.MaxListingPages)
	}
	if cfg.Run.MaxDaily != 10 {
		t.Errorf("expected default max_daily 10, got %d", cfg.Run.MaxDaily)
	}
	if cfg.Run.CaptchaMode != "wait" {
		t.Errorf("expected default captcha_mode wait, got %s", cfg.Run.CaptchaMode)
	}
	if cfg.Oracle.Provider != "gemini" {
		t.Errorf("expected default oracle provider gemini, got %s", cfg.Oracle.Provider)
	}
	if cfg.URLs.ListURL == "" {
		t.Error("expected a default list_url")
	}
}

func TestParseOverrides(t *testing.T) {
	yaml := `
participant:
  first_name: "Jan"
  email: "jan@example.com"
run:
  max_daily: 3
  dry_run: true
  captcha_mode: "skip"
urls:
  seed_forms:
    - "https://portalmedialny.pl/konkursy/11/test.html"
`
	cfg, err := parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Participant.FirstName != "Jan" {
		t.Errorf("expected first_name Jan, got %s", cfg.Participant.FirstName)
	}
	if cfg.Run.MaxDaily != 3 {
		t.Errorf("expected max_daily 3, got %d", cfg.Run.MaxDaily)
	}
	if !cfg.Run.DryRun {
		t.Error("expected dry_run true")
	}
	if len(cfg.URLs.SeedForms) != 1 {
		t.Errorf("expected 1 seed form, got %d", len(cfg.URLs.SeedForms))
	}
	// Untouched sections keep defaults
	if cfg.Run.MaxListingPages != 3 {
		t.Errorf("expected default max_listing_pages, got %d", cfg.Run.MaxListingPages)
	}
}

func TestParseRejectsBadCaptchaMode(t *testing.T) {
	_, err := parse([]byte("run:\n  captcha_mode: \"solve\"\n"))
	if err == nil {
		t.Fatal("expected error for invalid captcha_mode")
	}
	if !strings.Contains(err.Error(), "captcha_mode") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default.yaml does not parse: %v", err)
	}
	if cfg.Run.CaptchaMode != "wait" {
		t.Errorf("expected wait captcha_mode in defaults, got %s", cfg.Run.CaptchaMode)
	}
}
