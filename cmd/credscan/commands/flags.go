package commands

import (
	"os"
	"time"

	"github.com/dyluth/credscan/internal/config"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/spf13/cobra"
)

// Global flags, shared by every command
var (
	configPath string
	logLevel   string
	logFile    string
	redisURL   string
)

// Scan flags, shared by the root scan and watch
var (
	scanWorkers    int
	scanLang       string
	scanThreshold  float64
	scanResume     bool
	scanOCRTimeout time.Duration
	scanEngine     string
	scanSniff      bool
)

func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ./credscan.yaml, ./credscan.yml or ./credscan.toml)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&logFile, "log-file", "", "Also append JSON log records to this file")
	flags.StringVar(&redisURL, "redis-url", "", "Redis URL of the match ledger (e.g. redis://localhost:6379/0)")
}

func addScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&scanWorkers, "workers", "w", 4, "Concurrent OCR invocations per archive")
	flags.StringVarP(&scanLang, "lang", "l", "eng", "OCR language passed to the engine")
	flags.Float64Var(&scanThreshold, "threshold", 2.0, "Minimum score for a page to be saved")
	flags.BoolVar(&scanResume, "resume", false, "Continue numbering after the matches already in <outdir>")
	flags.DurationVar(&scanOCRTimeout, "ocr-timeout", 2*time.Minute, "Per-page OCR time limit (0 disables)")
	flags.StringVar(&scanEngine, "engine", "tesseract", "OCR engine: tesseract or gosseract")
	flags.BoolVar(&scanSniff, "sniff-content", false, "Detect archives and pages by content when the extension is unknown")
}

// loadConfig layers defaults, config files and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	paths, err := config.Discover(configPath, wd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Fix the config file, or regenerate a default one:\n  credscan init --force"},
		)
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, printer.Error(
			"invalid option",
			err.Error(),
			[]string{"Run 'credscan --help' for the accepted values"},
		)
	}

	return cfg, nil
}

// applyFlags copies flags the user actually set over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("workers") {
		cfg.Scan.Workers = scanWorkers
	}
	if changed("lang") {
		cfg.OCR.Lang = scanLang
	}
	if changed("threshold") {
		cfg.Scoring.Threshold = scanThreshold
	}
	if changed("resume") {
		cfg.Output.Resume = scanResume
	}
	if changed("ocr-timeout") {
		cfg.OCR.Timeout = config.Duration(scanOCRTimeout)
	}
	if changed("engine") {
		cfg.OCR.Engine = scanEngine
	}
	if changed("sniff-content") {
		cfg.Scan.SniffContent = scanSniff
	}
	if changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if changed("log-file") {
		cfg.Log.File = logFile
	}
	if changed("redis-url") {
		cfg.Ledger.RedisURL = redisURL
	}
}
