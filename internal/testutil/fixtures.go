// Package testutil holds shared fixtures for credscan tests: archive builders,
// synthetic pages and fake OCR engine scripts.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// Entry is a file to place inside a test archive
type Entry struct {
	Name string
	Data []byte
}

var headers = map[mediatype.Type]string{
	mediatype.PNG:  "\x89PNG\r\n\x1a\n",
	mediatype.JPEG: "\xff\xd8\xff\xe0JFIF",
	mediatype.GIF:  "GIF89a\x00\x00",
}

// HeaderLen is the length of the fake image header prepended by Page.
// Every header is padded to the same length so fake engines can strip it.
const HeaderLen = 8

// Page builds synthetic image bytes: a real magic header of the given type
// followed by the text the fake OCR engine should "recognise".
func Page(t mediatype.Type, text string) []byte {
	h := headers[t]
	if h == "" {
		h = "\x00\x00\x00\x00\x00\x00\x00\x00"
	}
	return append([]byte(h[:HeaderLen]), text...)
}

// PageText recovers the embedded text from a synthetic page built by Page.
func PageText(data []byte) string {
	if len(data) < HeaderLen {
		return ""
	}
	return string(data[HeaderLen:])
}

// WriteArchive creates a zip archive named name in dir containing entries,
// in the given order, and returns its path.
func WriteArchive(t *testing.T, dir, name string, entries ...Entry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return path
}

// EngineScript writes an executable shell script standing in for the OCR
// binary and returns its path. body runs with the image on stdin.
// Skips the test on platforms without /bin/sh.
func EngineScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-tesseract")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}
