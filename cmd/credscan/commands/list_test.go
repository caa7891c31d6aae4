package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/credscan/internal/catalog"
	"github.com/dyluth/credscan/internal/filter"
	"github.com/dyluth/credscan/pkg/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scannedOutput runs a scan over the standard library and returns <outdir>
func scannedOutput(t *testing.T) string {
	t.Helper()
	captureOutput(t)
	outDir := t.TempDir()
	require.NoError(t, scan(context.Background(), testConfig(t), writeLibrary(t), outDir, io.Discard))
	return outDir
}

func TestList_FromOutputDirectory(t *testing.T) {
	outDir := scannedOutput(t)

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		err := list(context.Background(), listOptions{outDir: outDir, format: catalog.OutputFormatDefault}, &buf, io.Discard)
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "SEQ")
		assert.Contains(t, buf.String(), "001")
		assert.Contains(t, buf.String(), "002")
	})

	t.Run("jsonl", func(t *testing.T) {
		var buf bytes.Buffer
		err := list(context.Background(), listOptions{outDir: outDir, format: catalog.OutputFormatJSONL}, &buf, io.Discard)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 2)
	})

	t.Run("filtered by term", func(t *testing.T) {
		var buf bytes.Buffer
		opts := listOptions{
			outDir:   outDir,
			format:   catalog.OutputFormatJSONL,
			criteria: filter.Criteria{Term: "proofread"},
		}
		require.NoError(t, list(context.Background(), opts, &buf, io.Discard))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], `"proofread"`)
	})

	t.Run("filtered by score", func(t *testing.T) {
		var buf bytes.Buffer
		opts := listOptions{
			outDir:   outDir,
			format:   catalog.OutputFormatJSONL,
			criteria: filter.Criteria{MinScore: 100},
		}
		require.NoError(t, list(context.Background(), opts, &buf, io.Discard))
		assert.Empty(t, strings.TrimSpace(buf.String()))
	})

	t.Run("run without ledger", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := list(context.Background(), listOptions{outDir: outDir, runID: "abc"}, io.Discard, io.Discard)
		require.Error(t, err)
		assert.Equal(t, "ledger not configured", err.Error())
		assert.Contains(t, errOut.String(), "--redis-url")
	})
}

func TestList_FromLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/0"
	runID := uuid.New().String()

	client, err := ledger.NewClientFromURL(url, runID)
	require.NoError(t, err)
	defer client.Close()

	for i, text := range []string{"typeset by a", "staff credit page"} {
		require.NoError(t, client.Publish(context.Background(), &ledger.MatchRecord{
			Sequence: i + 1,
			Score:    2,
			Text:     text,
			Found:    []string{"typeset"},
			Archive:  "vol1.cbz",
			Entry:    "p.png",
			File:     fmt.Sprintf("%03d.png", i+1),
		}))
	}

	t.Run("lists the run", func(t *testing.T) {
		var buf bytes.Buffer
		opts := listOptions{format: catalog.OutputFormatJSONL, redisURL: url, runID: runID}
		require.NoError(t, list(context.Background(), opts, &buf, io.Discard))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"archive":"vol1.cbz"`)
		assert.Contains(t, lines[1], `"sequence":2`)
	})

	t.Run("run prefix", func(t *testing.T) {
		var buf bytes.Buffer
		opts := listOptions{format: catalog.OutputFormatJSONL, redisURL: url, runID: runID[:8]}
		require.NoError(t, list(context.Background(), opts, &buf, io.Discard))
		assert.Contains(t, buf.String(), runID)
	})

	t.Run("unknown run", func(t *testing.T) {
		captureOutput(t)

		err := list(context.Background(), listOptions{redisURL: url, runID: uuid.New().String()}, io.Discard, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("missing run lists the known runs", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := list(context.Background(), listOptions{redisURL: url, follow: true}, io.Discard, io.Discard)
		require.Error(t, err)
		assert.Equal(t, "--run is required with --redis-url", err.Error())
		assert.Contains(t, errOut.String(), runID)
	})

	t.Run("configured ledger without run reads sidecars", func(t *testing.T) {
		var buf bytes.Buffer
		opts := listOptions{outDir: t.TempDir(), format: catalog.OutputFormatJSONL, redisURL: url}
		require.NoError(t, list(context.Background(), opts, &buf, io.Discard))
		assert.Empty(t, buf.String())
	})

	t.Run("unreachable ledger", func(t *testing.T) {
		captureOutput(t)

		err := list(context.Background(), listOptions{redisURL: "redis://127.0.0.1:1/0", runID: runID}, io.Discard, io.Discard)
		require.Error(t, err)
		assert.Equal(t, "Redis connection failed", err.Error())
	})
}

func TestGet(t *testing.T) {
	outDir := scannedOutput(t)

	t.Run("prints the sidecar", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, get(context.Background(), outDir, 1, "", "", &buf))

		assert.Contains(t, buf.String(), `"sequence": 1`)
		assert.Contains(t, buf.String(), `"typeset"`)
	})

	t.Run("unknown sequence", func(t *testing.T) {
		_, errOut := captureOutput(t)

		err := get(context.Background(), outDir, 42, "", "", io.Discard)
		require.Error(t, err)
		assert.Equal(t, "match 042 not found", err.Error())
		assert.Contains(t, errOut.String(), "credscan list")
	})

	t.Run("from the ledger", func(t *testing.T) {
		mr := miniredis.RunT(t)
		url := "redis://" + mr.Addr() + "/0"
		runID := uuid.New().String()

		client, err := ledger.NewClientFromURL(url, runID)
		require.NoError(t, err)
		defer client.Close()
		require.NoError(t, client.Publish(context.Background(), &ledger.MatchRecord{
			Sequence: 1, Score: 3, Text: "x typeset", Found: []string{"typeset"}, File: "001.png",
		}))

		var buf bytes.Buffer
		require.NoError(t, get(context.Background(), "", 1, url, runID, &buf))
		assert.Contains(t, buf.String(), runID)

		captureOutput(t)
		err = get(context.Background(), "", 2, url, runID, io.Discard)
		require.Error(t, err)
		assert.Equal(t, "match 002 not found", err.Error())
	})
}
