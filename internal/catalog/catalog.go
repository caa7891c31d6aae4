// Package catalog reads back the matches of earlier runs, either from the
// sidecars in an output directory or from the Redis ledger, and renders them
// for the list and get commands.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dyluth/credscan/internal/output"
	"github.com/dyluth/credscan/pkg/ledger"
)

// OutputFormat specifies how to format the match list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated text
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "table", string(OutputFormatDefault):
		return OutputFormatDefault, nil
	case string(OutputFormatJSONL):
		return OutputFormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'table' or 'jsonl')", s)
	}
}

// Entry is one persisted match found in an output directory.
type Entry struct {
	Sequence int            `json:"sequence"`
	Image    string         `json:"image"` // image file name, e.g. 001.png
	Sidecar  output.Sidecar `json:"sidecar"`
	ModTime  time.Time      `json:"modified"`
}

// Record converts the entry into the shape shared with the ledger.
// Archive and entry names are not stored in sidecars and stay empty.
func (e Entry) Record() *ledger.MatchRecord {
	return &ledger.MatchRecord{
		Sequence:    e.Sequence,
		Score:       e.Sidecar.Score,
		Text:        e.Sidecar.Text,
		Found:       e.Sidecar.Found,
		File:        e.Image,
		CreatedAtMs: e.ModTime.UnixMilli(),
	}
}

// NotFoundError reports a sequence number with no persisted match.
type NotFoundError struct {
	Sequence int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("match %03d not found", e.Sequence)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// Load reads every sidecar in dir, sorted by sequence number.
// Malformed sidecars are skipped with a warning written to warn.
func Load(dir string, warn io.Writer) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		seq, image, ok := output.ParseSidecarName(de.Name())
		if !ok || de.IsDir() {
			continue
		}

		entry, err := readEntry(dir, de.Name(), seq, image)
		if err != nil {
			fmt.Fprintf(warn, "⚠️  Skipping malformed sidecar: %s (error: %v)\n", de.Name(), err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})

	return entries, nil
}

// Get loads the match with the given sequence number from dir.
func Get(dir string, seq int) (*Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, de := range dirEntries {
		s, image, ok := output.ParseSidecarName(de.Name())
		if !ok || s != seq {
			continue
		}
		entry, err := readEntry(dir, de.Name(), s, image)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", de.Name(), err)
		}
		return &entry, nil
	}

	return nil, &NotFoundError{Sequence: seq}
}

func readEntry(dir, name string, seq int, image string) (Entry, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	sc, err := output.DecodeSidecar(data)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Sequence: seq, Image: image, Sidecar: sc, ModTime: info.ModTime()}, nil
}

// Records converts entries for formatting and filtering.
func Records(entries []Entry) []*ledger.MatchRecord {
	records := make([]*ledger.MatchRecord, len(entries))
	for i, e := range entries {
		records[i] = e.Record()
	}
	return records
}

// ListFromLedger returns the matches of the client's run, by sequence.
func ListFromLedger(ctx context.Context, client *ledger.Client) ([]*ledger.MatchRecord, error) {
	records, err := client.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return records, nil
}

// GetFromLedger returns a single match of the client's run.
func GetFromLedger(ctx context.Context, client *ledger.Client, seq int) (*ledger.MatchRecord, error) {
	rec, err := client.GetMatch(ctx, seq)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, &NotFoundError{Sequence: seq}
		}
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	return rec, nil
}

// Write renders records in the requested format.
func Write(w io.Writer, records []*ledger.MatchRecord, format OutputFormat, source string) error {
	switch format {
	case OutputFormatDefault:
		FormatTable(w, records, source)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, records); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
