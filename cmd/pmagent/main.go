package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mwrobel/pmagent/internal/browser"
	"github.com/mwrobel/pmagent/internal/collect"
	"github.com/mwrobel/pmagent/internal/config"
	"github.com/mwrobel/pmagent/internal/ledger"
	"github.com/mwrobel/pmagent/internal/llm"
	"github.com/mwrobel/pmagent/internal/pipeline"
	"github.com/mwrobel/pmagent/internal/report"
	"github.com/mwrobel/pmagent/internal/resolve"
	"github.com/mwrobel/pmagent/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pmagent",
	Short:   "Contest entry agent for portalmedialny.pl",
	Long:    "pmagent discovers contest forms, resolves quiz answers, fills and submits entries, and keeps an append-only attempt ledger with a daily quota.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func openDB() (*ledger.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return ledger.Open(filepath.Join(dataDir, "ledger.db"))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("pmagent", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/pmagent/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set your participant identity and oracle API key.")
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> resolve -> fill -> submit -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd)

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		session, err := browser.Launch(ctx, browser.Config{Headless: cfg.Run.Headless})
		if err != nil {
			return err
		}
		defer session.Close()

		var oracle llm.Provider
		if cfg.Oracle.Enabled {
			oracle = llm.CreateProvider(cfg.Oracle.Provider, cfg.Oracle.Model, cfg.Oracle.APIKeyEnv)
		}
		var operator resolve.Operator
		if cfg.Run.Interactive {
			operator = pipeline.NewPageOperator(session, os.Stdin)
		}
		resolver := resolve.New(oracle, operator)

		source := collect.New(session, cfg.URLs, cfg.Run.MaxListingPages)
		proc := pipeline.NewProcessor(session, cfg, resolver)

		result, err := pipeline.New(cfg, db, source, proc).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println("\nRun complete:")
		fmt.Printf("  Candidates found: %d\n", result.Collected)
		fmt.Printf("  Already sent: %d\n", result.Deduped)
		fmt.Printf("  Processed: %d\n", result.Processed)
		fmt.Printf("  Sent: %d\n", result.Sent)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		fmt.Printf("  Errors: %d\n", result.Errors)

		reportPath := filepath.Join(cfg.GetDataDir(), "raport.html")
		if err := report.WriteFile(db, reportPath); err != nil {
			log.Printf("writing report failed: %v", err)
		} else {
			fmt.Printf("\nReport: %s\n", reportPath)
		}
		return nil
	},
}

var (
	maxListingPages int
	maxCandidates   int
	maxDaily        int
	headless        bool
	interactive     bool
	captchaMode     string
	saveArtifacts   bool
	dryRun          bool
)

func init() {
	runCmd.Flags().IntVar(&maxListingPages, "max-listing-pages", 0, "Listing pages to paginate")
	runCmd.Flags().IntVar(&maxCandidates, "max-candidates", 0, "Candidate cap per run")
	runCmd.Flags().IntVar(&maxDaily, "max-daily", 0, "Daily send quota (0 = unlimited)")
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run the browser headless")
	runCmd.Flags().BoolVar(&interactive, "interactive", false, "Allow manual answer entry and challenge solving")
	runCmd.Flags().StringVar(&captchaMode, "captcha-mode", "", "Challenge handling: pause, wait, or skip")
	runCmd.Flags().BoolVar(&saveArtifacts, "save-artifacts", false, "Save screenshot and HTML per attempt")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fill forms but never submit")
}

// applyRunFlags overrides config with explicitly set flags only.
func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("max-listing-pages") {
		cfg.Run.MaxListingPages = maxListingPages
	}
	if f.Changed("max-candidates") {
		cfg.Run.MaxCandidates = maxCandidates
	}
	if f.Changed("max-daily") {
		cfg.Run.MaxDaily = maxDaily
	}
	if f.Changed("headless") {
		cfg.Run.Headless = headless
	}
	if f.Changed("interactive") {
		cfg.Run.Interactive = interactive
	}
	if f.Changed("captcha-mode") {
		cfg.Run.CaptchaMode = captchaMode
	}
	if f.Changed("save-artifacts") {
		cfg.Run.SaveArtifacts = saveArtifacts
	}
	if f.Changed("dry-run") {
		cfg.Run.DryRun = dryRun
	}
}

// --- report command ---

var reportPath string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate the HTML report from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		path := reportPath
		if path == "" {
			path = filepath.Join(cfg.GetDataDir(), "raport.html")
		}
		if err := report.WriteFile(db, path); err != nil {
			return err
		}
		fmt.Printf("Report written: %s\n", path)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportPath, "output", "o", "", "Report file path (default <data-dir>/raport.html)")
}

// --- export command ---

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if exportPath == "-" {
			return db.ExportCSV(os.Stdout)
		}

		f, err := os.Create(exportPath)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		if err := db.ExportCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Exported: %s\n", exportPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "raport.csv", "CSV file path, or - for stdout")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger statistics and today's quota usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		sentToday, err := db.CountSentToday(ledger.NowLocal())
		if err != nil {
			return fmt.Errorf("counting today's sends: %w", err)
		}

		fmt.Println("Attempts:")
		fmt.Printf("  Total: %d\n", stats.Total)
		fmt.Printf("  Sent: %d\n", stats.Sent)
		fmt.Printf("  Errors: %d\n", stats.Errors)
		fmt.Printf("  Expired contests: %d\n", stats.Expired)
		fmt.Printf("  Days with activity: %d\n", stats.Days)
		fmt.Println("\nToday:")
		fmt.Printf("  Sent: %d / %d\n", sentToday, cfg.Run.MaxDaily)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Starting server at http://localhost:%d\n", servePort)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}
