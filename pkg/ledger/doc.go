// Package ledger publishes persisted credit-page matches to Redis so that
// downstream tools can index or follow a scan while it runs.
//
// # Overview
//
// The output directory is the source of truth for a scan. The ledger is an
// optional secondary index: every match the output writer persists is
// mirrored as a MatchRecord, keyed by run and sequence number, and announced
// on a Pub/Sub channel.
//
// # Redis Schema
//
// All keys are namespaced by run ID so several scans can share a server:
//
//	credscan:runs                      SET of run IDs
//	credscan:{run_id}:match:{seq}      HASH, one per persisted match
//	credscan:{run_id}:matches          ZSET, member = seq, score = match score
//	credscan:{run_id}:match_events     Pub/Sub channel, full record as JSON
//
// # Usage Example
//
//	client, err := ledger.NewClient(&redis.Options{Addr: "localhost:6379"}, runID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	rec := &ledger.MatchRecord{RunID: runID, Sequence: 1, Score: 2, File: "001.png"}
//	if err := client.Publish(ctx, rec); err != nil {
//		log.Fatal(err)
//	}
package ledger
