package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable pointing at an overlay config file.
const EnvConfig = "CREDSCAN_CONFIG"

// DefaultFileNames are looked up in the working directory, in order, when no
// explicit config path is given.
var DefaultFileNames = []string{"credscan.yaml", "credscan.yml", "credscan.toml"}

// Supported OCR engines
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("90s", "2m") in both YAML and TOML.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the top-level credscan configuration file
type Config struct {
	Scan    ScanConfig    `yaml:"scan" toml:"scan"`
	OCR     OCRConfig     `yaml:"ocr" toml:"ocr"`
	Scoring ScoringConfig `yaml:"scoring" toml:"scoring"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Ledger  LedgerConfig  `yaml:"ledger" toml:"ledger"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// ScanConfig controls archive discovery and extraction
type ScanConfig struct {
	Workers      int   `yaml:"workers" toml:"workers"`               // Concurrent OCR invocations per archive
	SniffContent bool  `yaml:"sniff_content" toml:"sniff_content"`   // Fall back to magic bytes for unknown extensions
	MaxPageBytes int64 `yaml:"max_page_bytes" toml:"max_page_bytes"` // Largest entry read into memory
}

// OCRConfig selects and tunes the OCR engine
type OCRConfig struct {
	Engine    string   `yaml:"engine" toml:"engine"`   // tesseract or gosseract
	Command   string   `yaml:"command" toml:"command"` // Executable for the tesseract engine
	Args      []string `yaml:"args,omitempty" toml:"args,omitempty"`
	Timeout   Duration `yaml:"timeout" toml:"timeout"`       // Per page; 0 disables
	RateLimit float64  `yaml:"rate_limit" toml:"rate_limit"` // Engine starts per second; 0 = unlimited
	Lang      string   `yaml:"lang" toml:"lang"`
}

// ScoringConfig holds the match threshold
type ScoringConfig struct {
	Threshold float64 `yaml:"threshold" toml:"threshold"`
}

// OutputConfig controls how matches are numbered
type OutputConfig struct {
	Resume bool `yaml:"resume" toml:"resume"` // Continue after the highest existing sequence
}

// LedgerConfig enables the optional Redis match index
type LedgerConfig struct {
	RedisURL string `yaml:"redis_url" toml:"redis_url"`
}

// WatchConfig tunes watch mode
type WatchConfig struct {
	Settle Duration `yaml:"settle" toml:"settle"` // How long a file must stay unchanged before it is scanned
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers:      4,
			MaxPageBytes: 64 << 20,
		},
		OCR: OCRConfig{
			Engine:  EngineTesseract,
			Command: "tesseract",
			Timeout: Duration(2 * time.Minute),
			Lang:    "eng",
		},
		Scoring: ScoringConfig{Threshold: 2.0},
		Watch:   WatchConfig{Settle: Duration(2 * time.Second)},
		Log:     LogConfig{Level: "warn"},
	}
}

// Validate applies defaults for empty values and rejects invalid ones
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be >= 1, got %d", c.Scan.Workers)
	}

	if c.Scan.MaxPageBytes == 0 {
		c.Scan.MaxPageBytes = 64 << 20
	} else if c.Scan.MaxPageBytes < 0 {
		return fmt.Errorf("scan.max_page_bytes must be positive, got %d", c.Scan.MaxPageBytes)
	}

	if c.OCR.Engine == "" {
		c.OCR.Engine = EngineTesseract
	}
	if c.OCR.Engine != EngineTesseract && c.OCR.Engine != EngineGosseract {
		return fmt.Errorf("invalid ocr.engine: %s (must be '%s' or '%s')", c.OCR.Engine, EngineTesseract, EngineGosseract)
	}

	if c.OCR.Command == "" {
		c.OCR.Command = "tesseract"
	}

	if strings.TrimSpace(c.OCR.Lang) == "" {
		return fmt.Errorf("ocr.lang cannot be empty")
	}

	if c.OCR.Timeout < 0 {
		return fmt.Errorf("ocr.timeout must be >= 0 (0 = no timeout), got %s", c.OCR.Timeout.Std())
	}

	if c.OCR.RateLimit < 0 {
		return fmt.Errorf("ocr.rate_limit must be >= 0 (0 = unlimited), got %g", c.OCR.RateLimit)
	}

	if c.Watch.Settle < 0 {
		return fmt.Errorf("watch.settle must be >= 0, got %s", c.Watch.Settle.Std())
	}

	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Log.Level)
	}

	return nil
}

// Load reads and validates a single config file on top of the defaults
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered decodes each file in order on top of the defaults, so later
// files override keys set by earlier ones, then validates the result.
func LoadLayered(paths ...string) (*Config, error) {
	config := Default()

	for _, path := range paths {
		if err := decodeFile(path, config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Discover returns the config files to layer, lowest precedence first:
// the explicit path (or the first default file found in dir), then the file
// named by CREDSCAN_CONFIG.
func Discover(explicit, dir string) ([]string, error) {
	var paths []string

	if explicit != "" {
		paths = append(paths, explicit)
	} else {
		for _, name := range DefaultFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				paths = append(paths, candidate)
				break
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to check %s: %w", candidate, err)
			}
		}
	}

	if env := os.Getenv(EnvConfig); env != "" {
		paths = append(paths, env)
	}

	return paths, nil
}

func decodeFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, into); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, into); err != nil {
			return fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s (use .yaml, .yml or .toml)", path)
	}

	return nil
}
