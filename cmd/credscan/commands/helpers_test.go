package commands

import (
	"bytes"
	"testing"

	"github.com/dyluth/credscan/internal/config"
	"github.com/dyluth/credscan/internal/printer"
	"github.com/dyluth/credscan/internal/testutil"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects printer output for the duration of the test
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()

	prev := color.NoColor
	color.NoColor = true
	out, errOut = new(bytes.Buffer), new(bytes.Buffer)
	restore := printer.SetOutput(out, errOut)
	t.Cleanup(func() {
		restore()
		color.NoColor = prev
	})
	return out, errOut
}

// testConfig returns a validated config whose OCR engine echoes the text
// embedded in synthetic test pages.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.OCR.Command = testutil.EngineScript(t, `tail -c +9`)
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Validate())
	return cfg
}
