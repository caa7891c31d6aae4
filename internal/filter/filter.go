package filter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dyluth/credscan/pkg/ledger"
)

// Criteria defines filtering criteria for saved matches.
// All filters are ANDed together - a match must satisfy ALL criteria to pass.
type Criteria struct {
	MinScore float64 // Lowest score to keep, 0 = no filter
	Term     string  // Lexicon term that must be among the found terms, empty = no filter
	SinceMs  int64   // Unix timestamp in milliseconds, 0 = no filter
	UntilMs  int64   // Unix timestamp in milliseconds, 0 = no filter
}

// Matches returns true if the record matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(rec *ledger.MatchRecord) bool {
	if c.MinScore > 0 && rec.Score < c.MinScore {
		return false
	}

	// Term filtering - case-insensitive exact match against found terms
	if c.Term != "" {
		term := strings.ToLower(strings.TrimSpace(c.Term))
		if !slices.Contains(rec.Found, term) {
			return false
		}
	}

	// Time filtering - check CreatedAtMs field
	if c.SinceMs > 0 && rec.CreatedAtMs < c.SinceMs {
		return false
	}
	if c.UntilMs > 0 && rec.CreatedAtMs > c.UntilMs {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.MinScore > 0 ||
		c.Term != "" ||
		c.SinceMs > 0 ||
		c.UntilMs > 0
}

// Apply returns the records that match, preserving order.
func (c *Criteria) Apply(records []*ledger.MatchRecord) []*ledger.MatchRecord {
	if !c.HasFilters() {
		return records
	}
	var kept []*ledger.MatchRecord
	for _, rec := range records {
		if c.Matches(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// ParseTime parses a time specification into a Unix timestamp (milliseconds).
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m", relative to now ("1h" = one hour ago)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
func ParseTime(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
func ParseRange(since, until string, now time.Time) (sinceMs, untilMs int64, err error) {
	if since != "" {
		sinceMs, err = ParseTime(since, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMs, err = ParseTime(until, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMs > 0 && untilMs > 0 && sinceMs >= untilMs {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMs, untilMs, nil
}
