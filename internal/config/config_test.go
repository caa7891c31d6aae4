package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())

	assert.Equal(t, 4, config.Scan.Workers)
	assert.False(t, config.Scan.SniffContent)
	assert.Equal(t, int64(64<<20), config.Scan.MaxPageBytes)
	assert.Equal(t, EngineTesseract, config.OCR.Engine)
	assert.Equal(t, "tesseract", config.OCR.Command)
	assert.Equal(t, 2*time.Minute, config.OCR.Timeout.Std())
	assert.Equal(t, "eng", config.OCR.Lang)
	assert.Equal(t, 2.0, config.Scoring.Threshold)
	assert.False(t, config.Output.Resume)
	assert.Empty(t, config.Ledger.RedisURL)
	assert.Equal(t, 2*time.Second, config.Watch.Settle.Std())
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "credscan.yaml", `scan:
  workers: 8
  sniff_content: true
ocr:
  command: /opt/tesseract/bin/tesseract
  args: ["--psm", "6"]
  timeout: 90s
  lang: jpn
scoring:
  threshold: 3.5
ledger:
  redis_url: redis://localhost:6379/0
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, config.Scan.Workers)
	assert.True(t, config.Scan.SniffContent)
	assert.Equal(t, "/opt/tesseract/bin/tesseract", config.OCR.Command)
	assert.Equal(t, []string{"--psm", "6"}, config.OCR.Args)
	assert.Equal(t, 90*time.Second, config.OCR.Timeout.Std())
	assert.Equal(t, "jpn", config.OCR.Lang)
	assert.Equal(t, 3.5, config.Scoring.Threshold)
	assert.Equal(t, "redis://localhost:6379/0", config.Ledger.RedisURL)

	// Unset keys keep their defaults
	assert.Equal(t, EngineTesseract, config.OCR.Engine)
	assert.Equal(t, 2*time.Second, config.Watch.Settle.Std())
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "credscan.toml", `[scan]
workers = 2

[ocr]
engine = "gosseract"
timeout = "0s"
rate_limit = 1.5

[output]
resume = true

[watch]
settle = "500ms"

[log]
level = "debug"
file = "credscan.log"
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, config.Scan.Workers)
	assert.Equal(t, EngineGosseract, config.OCR.Engine)
	assert.Zero(t, config.OCR.Timeout)
	assert.Equal(t, 1.5, config.OCR.RateLimit)
	assert.True(t, config.Output.Resume)
	assert.Equal(t, 500*time.Millisecond, config.Watch.Settle.Std())
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "credscan.log", config.Log.File)
	assert.Equal(t, "eng", config.OCR.Lang)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "invalid YAML",
			file:    "bad.yaml",
			content: "scan:\n  - this is invalid\n    yaml syntax\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "invalid TOML",
			file:    "bad.toml",
			content: "[scan\nworkers = 2\n",
			wantErr: "failed to parse TOML",
		},
		{
			name:    "unsupported extension",
			file:    "credscan.json",
			content: "{}",
			wantErr: "unsupported config format",
		},
		{
			name:    "bad duration",
			file:    "dur.yaml",
			content: "ocr:\n  timeout: soon\n",
			wantErr: "invalid duration",
		},
		{
			name:    "zero workers",
			file:    "workers.yaml",
			content: "scan:\n  workers: 0\n",
			wantErr: "scan.workers must be >= 1",
		},
		{
			name:    "unknown engine",
			file:    "engine.yaml",
			content: "ocr:\n  engine: easyocr\n",
			wantErr: "invalid ocr.engine: easyocr",
		},
		{
			name:    "empty lang",
			file:    "lang.yaml",
			content: "ocr:\n  lang: \"\"\n",
			wantErr: "ocr.lang cannot be empty",
		},
		{
			name:    "negative timeout",
			file:    "timeout.toml",
			content: "[ocr]\ntimeout = \"-1s\"\n",
			wantErr: "ocr.timeout must be >= 0",
		},
		{
			name:    "negative rate limit",
			file:    "rate.yaml",
			content: "ocr:\n  rate_limit: -2\n",
			wantErr: "ocr.rate_limit must be >= 0",
		},
		{
			name:    "bad log level",
			file:    "log.yaml",
			content: "log:\n  level: loud\n",
			wantErr: "invalid log.level: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, tt.file, tt.content)
			config, err := Load(path)
			assert.Error(t, err)
			assert.Nil(t, config)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/credscan.yaml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestValidate_FillsEmptyValues(t *testing.T) {
	config := &Config{
		Scan: ScanConfig{Workers: 1},
		OCR:  OCRConfig{Lang: "eng"},
	}
	require.NoError(t, config.Validate())

	assert.Equal(t, EngineTesseract, config.OCR.Engine)
	assert.Equal(t, "tesseract", config.OCR.Command)
	assert.Equal(t, int64(64<<20), config.Scan.MaxPageBytes)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoadLayered_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.yaml", "scan:\n  workers: 6\nocr:\n  lang: jpn\n")
	overlay := writeConfig(t, dir, "overlay.toml", "[scan]\nworkers = 3\n")

	config, err := LoadLayered(base, overlay)
	require.NoError(t, err)
	assert.Equal(t, 3, config.Scan.Workers)
	assert.Equal(t, "jpn", config.OCR.Lang)

	config, err = LoadLayered()
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestDiscover(t *testing.T) {
	t.Run("explicit path wins over default files", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		dir := t.TempDir()
		writeConfig(t, dir, "credscan.yaml", "")

		paths, err := Discover("/etc/credscan.toml", dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"/etc/credscan.toml"}, paths)
	})

	t.Run("default file in directory", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		dir := t.TempDir()
		toml := writeConfig(t, dir, "credscan.toml", "")

		paths, err := Discover("", dir)
		require.NoError(t, err)
		assert.Equal(t, []string{toml}, paths)
	})

	t.Run("yaml preferred over toml", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		dir := t.TempDir()
		yml := writeConfig(t, dir, "credscan.yaml", "")
		writeConfig(t, dir, "credscan.toml", "")

		paths, err := Discover("", dir)
		require.NoError(t, err)
		assert.Equal(t, []string{yml}, paths)
	})

	t.Run("environment file layered last", func(t *testing.T) {
		dir := t.TempDir()
		yml := writeConfig(t, dir, "credscan.yaml", "")
		t.Setenv(EnvConfig, "/srv/credscan.yaml")

		paths, err := Discover("", dir)
		require.NoError(t, err)
		assert.Equal(t, []string{yml, "/srv/credscan.yaml"}, paths)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		paths, err := Discover("", t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestDuration_MarshalText(t *testing.T) {
	text, err := Duration(90 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 2m ")))
	assert.Equal(t, 2*time.Minute, d.Std())
}
