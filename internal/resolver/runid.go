// Package resolver expands short run ID prefixes into full run IDs.
package resolver

import (
	"context"
	"fmt"
	"strings"
)

// MinShortIDLength is the minimum accepted length of a run ID prefix.
const MinShortIDLength = 6

// RunLister lists the run IDs known to the match ledger.
type RunLister interface {
	Runs(ctx context.Context) ([]string, error)
}

// ResolveRunID resolves id to a full run ID.
// A full UUID must exist in the ledger; a shorter id must be at least
// MinShortIDLength characters and the prefix of exactly one run.
func ResolveRunID(ctx context.Context, lister RunLister, id string) (string, error) {
	isFull := len(id) == 36 && strings.Count(id, "-") == 4
	if !isFull && len(id) < MinShortIDLength {
		return "", fmt.Errorf("short run ID must be at least %d characters (got %d)", MinShortIDLength, len(id))
	}

	runs, err := lister.Runs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}

	var matches []string
	for _, run := range runs {
		if run == id {
			return run, nil
		}
		if !isFull && strings.HasPrefix(run, id) {
			matches = append(matches, run)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: id}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: id, Matches: matches}
	}
}

// NotFoundError indicates no run matched the ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no runs found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several runs matched the prefix.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous run ID '%s' matches %d runs", e.ShortID, len(e.Matches))
}

// FormatAmbiguous lists the matching run IDs (up to 10, then "...and N more").
func FormatAmbiguous(err *AmbiguousError) string {
	var b strings.Builder
	shown := min(len(err.Matches), 10)
	for _, m := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", m)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
