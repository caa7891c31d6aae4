package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/credscan/pkg/ledger"
)

// FormatTable writes records as a formatted table to the provided writer.
// The table includes columns: SEQ, SCORE, FILE, AGE, FOUND and TEXT (truncated).
// Returns the number of records formatted.
func FormatTable(w io.Writer, records []*ledger.MatchRecord, source string) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No matches found in '%s'\n", source)
		return 0
	}

	fmt.Fprintf(w, "Matches in '%s':\n\n", source)

	fmt.Fprintf(w, "%-5s %-6s %-10s %-8s %-28s %s\n",
		"SEQ", "SCORE", "FILE", "AGE", "FOUND", "TEXT")
	fmt.Fprintf(w, "%-5s %-6s %-10s %-8s %-28s %s\n",
		"-----", "------", "----------", "--------", "----------------------------", "----------------------------------------")

	for _, r := range records {
		fmt.Fprintf(w, "%-5s %-6s %-10s %-8s %-28s %s\n",
			fmt.Sprintf("%03d", r.Sequence),
			formatScore(r.Score),
			r.File,
			formatTimestamp(r.CreatedAtMs),
			formatFound(r.Found),
			formatText(r.Text),
		)
	}

	countMsg := "match"
	if len(records) != 1 {
		countMsg = "matches"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(records), countMsg)

	return len(records)
}

// FormatJSONL writes records as line-delimited JSON (JSONL) to the provided writer.
// Each record is written as a single JSON object on its own line.
func FormatJSONL(w io.Writer, records []*ledger.MatchRecord) error {
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal match to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}

	return nil
}

// FormatSingleJSON writes a single value as pretty-printed JSON.
// Used by get to display a complete record.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal match to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatScore drops a trailing ".0" so whole scores read as integers.
func formatScore(score float64) string {
	return fmt.Sprintf("%g", score)
}

// formatFound joins found terms, truncated to the column width.
func formatFound(found []string) string {
	if len(found) == 0 {
		return "-"
	}
	s := strings.Join(found, ",")
	if len(s) > 28 {
		return s[:25] + "..."
	}
	return s
}

// formatText collapses recognised text onto one line with max 40 characters.
// Empty text returns "-".
func formatText(text string) string {
	line := strings.Join(strings.Fields(text), " ")
	if line == "" {
		return "-"
	}
	if len(line) > 40 {
		return line[:37] + "..."
	}
	return line
}

// formatTimestamp formats Unix timestamp in milliseconds to human-readable time.
// Shows relative time like "2m ago", "1h ago", etc.
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
