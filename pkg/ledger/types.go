package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// MatchRecord is one persisted credit page.
// Records are immutable once written.
type MatchRecord struct {
	RunID       string   `json:"run_id"`
	Sequence    int      `json:"sequence"` // 1-based, gapless within a run
	Score       float64  `json:"score"`
	Text        string   `json:"text"`  // lowercased recognised text
	Found       []string `json:"found"` // lexicon terms, lexicon order
	Archive     string   `json:"archive"`
	Entry       string   `json:"entry"` // entry name inside the archive
	File        string   `json:"file"`  // image file name in the output directory
	CreatedAtMs int64    `json:"created_at_ms"`
}

// Validate checks that the record can be stored.
func (r *MatchRecord) Validate() error {
	if _, err := uuid.Parse(r.RunID); err != nil {
		return fmt.Errorf("invalid run ID: not a valid UUID")
	}

	if r.Sequence < 1 {
		return fmt.Errorf("invalid sequence: must be >= 1, got %d", r.Sequence)
	}

	if r.Score < 0 {
		return fmt.Errorf("invalid score: must be >= 0, got %g", r.Score)
	}

	if r.File == "" {
		return fmt.Errorf("file cannot be empty")
	}

	return nil
}
