// Package output persists qualifying pages: the raw image plus a JSON sidecar
// holding the score, the recognised text and the matched terms.
//
// The Writer owns the run-wide sequence counter. Numbers are handed out under
// a single mutex at write time, so they follow completion order and remain
// gapless even when a write fails.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/dyluth/credscan/internal/archive"
	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/scorer"
	"github.com/dyluth/credscan/pkg/ledger"
)

// SidecarSuffix is appended to the image file name to form the metadata file.
const SidecarSuffix = ".json"

var (
	// ErrWrite is wrapped by every failed save.
	ErrWrite = errors.New("output write error")

	// ErrNotDirectory is returned by PrepareDir when the path exists but is
	// not a directory.
	ErrNotDirectory = errors.New("output path exists and is not a directory")
)

// sidecarPattern matches persisted sidecars, e.g. 007.jpeg.json.
var sidecarPattern = regexp.MustCompile(`^(\d{3,})\.(png|jpeg|gif)\.json$`)

// Sidecar is the persisted metadata record. Its shape is a stable contract
// with downstream consumers: {"score", "text", "found"}.
//
// Field values match what Python's json.dump produces, but the bytes do
// not. The encoding is compact (no space after ',' or ':'), non-ASCII text
// is written as raw UTF-8 rather than \uXXXX escapes, and integral scores
// are written as 2 rather than 2.0. Consumers must parse the JSON rather
// than compare bytes.
type Sidecar struct {
	Score float64  `json:"score"`
	Text  string   `json:"text"`
	Found []string `json:"found"`
}

// WriteError reports a match that could not be persisted. Neither file of the
// pair is left behind and no sequence number is consumed.
type WriteError struct {
	Entry string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to save %s to %s: %v", e.Entry, e.Path, e.Err)
}

// Is makes errors.Is(err, ErrWrite) true for every WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Publisher receives every record after it is safely on disk.
type Publisher interface {
	Publish(ctx context.Context, rec *ledger.MatchRecord) error
}

// Options configure a Writer.
type Options struct {
	RunID     string
	Resume    bool // continue numbering after existing sidecars in Dir
	Publisher Publisher
	Logger    *slog.Logger
}

// Writer persists matches into a single output directory.
// It is safe for concurrent use; Save calls are serialized.
type Writer struct {
	dir       string
	runID     string
	publisher Publisher
	logger    *slog.Logger

	mu   sync.Mutex
	last int
}

// NewWriter returns a Writer for dir. With Resume set, numbering continues
// after the highest sequence already present in dir.
func NewWriter(dir string, opts Options) (*Writer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w := &Writer{
		dir:       dir,
		runID:     opts.RunID,
		publisher: opts.Publisher,
		logger:    logger,
	}

	if opts.Resume {
		last, err := HighestSequence(dir)
		if err != nil {
			return nil, err
		}
		w.last = last
	}

	return w, nil
}

// Count returns the highest sequence number issued so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Save persists page and its score under the next sequence number and
// returns the resulting record. Both files are fully written, synced and
// closed before Save returns; on failure neither remains and the sequence
// number is not consumed.
func (w *Writer) Save(ctx context.Context, page archive.Page, res scorer.Result, source string) (*ledger.MatchRecord, error) {
	ext := mediatype.Extension(page.ContentType)
	if ext == "" {
		return nil, &WriteError{Entry: page.Name, Path: w.dir, Err: fmt.Errorf("unsupported content type %q", page.ContentType)}
	}

	found := res.Found
	if found == nil {
		found = []string{}
	}
	meta, err := encodeSidecar(Sidecar{Score: res.Score, Text: res.Text, Found: found})
	if err != nil {
		return nil, &WriteError{Entry: page.Name, Path: w.dir, Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.last + 1
	name := FileName(seq, page.ContentType)
	imagePath := filepath.Join(w.dir, name)

	if err := writePair(imagePath, page.Data, meta); err != nil {
		return nil, &WriteError{Entry: page.Name, Path: imagePath, Err: err}
	}
	w.last = seq

	rec := &ledger.MatchRecord{
		RunID:       w.runID,
		Sequence:    seq,
		Score:       res.Score,
		Text:        res.Text,
		Found:       found,
		Archive:     source,
		Entry:       page.Name,
		File:        name,
		CreatedAtMs: time.Now().UnixMilli(),
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, rec); err != nil {
			// Files are the source of truth; a ledger hiccup does not undo them.
			w.logger.Warn("failed to publish match", "sequence", seq, "file", name, "error", err)
		}
	}

	return rec, nil
}

// FileName composes the image file name for a sequence number and type,
// e.g. 001.png or 012.jpeg.
func FileName(seq int, t mediatype.Type) string {
	return fmt.Sprintf("%03d.%s", seq, mediatype.Extension(t))
}

// SidecarName returns the metadata file name for an image file name.
func SidecarName(imageName string) string {
	return imageName + SidecarSuffix
}

// ParseSidecarName extracts the sequence number and image file name from a
// sidecar file name. ok is false for names that are not sidecars.
func ParseSidecarName(name string) (seq int, image string, ok bool) {
	m := sidecarPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return seq, name[:len(name)-len(SidecarSuffix)], true
}

// HighestSequence returns the largest sequence number among the sidecars in
// dir, or 0 if there are none. A missing directory counts as empty.
func HighestSequence(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	highest := 0
	for _, e := range entries {
		if seq, _, ok := ParseSidecarName(e.Name()); ok && seq > highest {
			highest = seq
		}
	}
	return highest, nil
}

// PrepareDir makes sure dir exists, creating it (and parents) if absent.
// Returns ErrNotDirectory if something other than a directory is in the way.
func PrepareDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("failed to stat output directory: %w", err)
	}
}

// DecodeSidecar parses a sidecar file's contents.
func DecodeSidecar(data []byte) (Sidecar, error) {
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return Sidecar{}, fmt.Errorf("invalid sidecar: %w", err)
	}
	if s.Found == nil {
		s.Found = []string{}
	}
	return s, nil
}
