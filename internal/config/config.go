package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Participant Participant `yaml:"participant"`
	Run         Run         `yaml:"run"`
	Oracle      Oracle      `yaml:"oracle"`
	URLs        URLs        `yaml:"urls"`
	Output      Output      `yaml:"output"`
}

// Participant is the fixed identity submitted with every form.
type Participant struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	City      string `yaml:"city"`
}

// Run holds per-run behavior settings. Every field has a matching CLI flag.
type Run struct {
	MaxListingPages int    `yaml:"max_listing_pages"`
	MaxCandidates   int    `yaml:"max_candidates"`
	MaxDaily        int    `yaml:"max_daily"`
	Headless        bool   `yaml:"headless"`
	Interactive     bool   `yaml:"interactive"`
	CaptchaMode     string `yaml:"captcha_mode"` // pause, wait, skip
	SaveArtifacts   bool   `yaml:"save_artifacts"`
	DryRun          bool   `yaml:"dry_run"`
}

type Oracle struct {
	Enabled   bool   `yaml:"enabled"`
	Provider  string `yaml:"provider"` // gemini or openai
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type URLs struct {
	ListURL   string   `yaml:"list_url"`
	FeedURL   string   `yaml:"feed_url"`
	SeedForms []string `yaml:"seed_forms"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for pmagent.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "pmagent")
}

// DataDir returns the XDG data directory for pmagent.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "pmagent")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/pmagent/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'pmagent init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Run: Run{
			MaxListingPages: 3,
			MaxCandidates:   10,
			MaxDaily:        10,
			CaptchaMode:     "wait",
		},
		Oracle: Oracle{
			Provider:  "gemini",
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		URLs: URLs{
			ListURL: "https://portalmedialny.pl/konkursy/",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Run.CaptchaMode {
	case "pause", "wait", "skip":
	default:
		return fmt.Errorf("invalid captcha_mode %q (want pause, wait or skip)", c.Run.CaptchaMode)
	}
	if c.Run.MaxDaily < 0 {
		return fmt.Errorf("max_daily must not be negative")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
