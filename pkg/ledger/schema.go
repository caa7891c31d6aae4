package ledger

import "fmt"

// Redis key pattern helpers
//
// Key pattern: credscan:{run_id}:{entity}[:{id}]

// RunsKey returns the key of the set of all known run IDs.
func RunsKey() string {
	return "credscan:runs"
}

// MatchKey returns the Redis key for a single match.
// Pattern: credscan:{run_id}:match:{seq}
func MatchKey(runID string, seq int) string {
	return fmt.Sprintf("credscan:%s:match:%d", runID, seq)
}

// MatchIndexKey returns the key of the sorted set indexing a run's matches.
// Pattern: credscan:{run_id}:matches
func MatchIndexKey(runID string) string {
	return fmt.Sprintf("credscan:%s:matches", runID)
}

// MatchEventsChannel returns the Pub/Sub channel for match events.
// Pattern: credscan:{run_id}:match_events
func MatchEventsChannel(runID string) string {
	return fmt.Sprintf("credscan:%s:match_events", runID)
}
