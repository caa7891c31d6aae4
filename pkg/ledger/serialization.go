package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordToHash converts a MatchRecord to a Redis hash.
// The found list is JSON-encoded into a single field.
func RecordToHash(r *MatchRecord) (map[string]interface{}, error) {
	found := r.Found
	if found == nil {
		found = []string{}
	}
	foundJSON, err := json.Marshal(found)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal found terms: %w", err)
	}

	return map[string]interface{}{
		"run_id":        r.RunID,
		"sequence":      r.Sequence,
		"score":         strconv.FormatFloat(r.Score, 'g', -1, 64),
		"text":          r.Text,
		"found":         string(foundJSON),
		"archive":       r.Archive,
		"entry":         r.Entry,
		"file":          r.File,
		"created_at_ms": r.CreatedAtMs,
	}, nil
}

// HashToRecord converts a Redis hash back into a MatchRecord.
func HashToRecord(hash map[string]string) (*MatchRecord, error) {
	seq, err := strconv.Atoi(hash["sequence"])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence field: %w", err)
	}

	score, err := strconv.ParseFloat(hash["score"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid score field: %w", err)
	}

	found := []string{}
	if raw := hash["found"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &found); err != nil {
			return nil, fmt.Errorf("failed to unmarshal found: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &MatchRecord{
		RunID:       hash["run_id"],
		Sequence:    seq,
		Score:       score,
		Text:        hash["text"],
		Found:       found,
		Archive:     hash["archive"],
		Entry:       hash["entry"],
		File:        hash["file"],
		CreatedAtMs: createdAtMs,
	}, nil
}
