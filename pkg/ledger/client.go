package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides run-scoped Redis operations for the match ledger.
// It is safe for concurrent use.
type Client struct {
	rdb   *redis.Client
	runID string
}

// NewClient creates a ledger client for the given run.
// Returns an error if runID is empty.
func NewClient(redisOpts *redis.Options, runID string) (*Client, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	return &Client{
		rdb:   redis.NewClient(redisOpts),
		runID: runID,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a ledger client.
func NewClientFromURL(url, runID string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, runID)
}

// RunID returns the run this client writes to.
func (c *Client) RunID() string {
	return c.runID
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Publish stores a match and announces it on the run's event channel.
// The hash, index entry and run membership are written in one transaction;
// the event is published after they commit.
func (c *Client) Publish(ctx context.Context, r *MatchRecord) error {
	if r.RunID == "" {
		r.RunID = c.runID
	}
	if r.RunID != c.runID {
		return fmt.Errorf("record belongs to run %s, client is bound to %s", r.RunID, c.runID)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid match record: %w", err)
	}

	hash, err := RecordToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize match: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, MatchKey(c.runID, r.Sequence), hash)
		pipe.ZAdd(ctx, MatchIndexKey(c.runID), redis.Z{Score: float64(r.Sequence), Member: strconv.Itoa(r.Sequence)})
		pipe.SAdd(ctx, RunsKey(), c.runID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write match to Redis: %w", err)
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal match for event: %w", err)
	}
	if err := c.rdb.Publish(ctx, MatchEventsChannel(c.runID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish match event: %w", err)
	}

	return nil
}

// GetMatch retrieves a match by sequence number.
// Returns (nil, redis.Nil) if it does not exist; use IsNotFound to check.
func (c *Client) GetMatch(ctx context.Context, seq int) (*MatchRecord, error) {
	hashData, err := c.rdb.HGetAll(ctx, MatchKey(c.runID, seq)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read match from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	rec, err := HashToRecord(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize match: %w", err)
	}
	return rec, nil
}

// ListMatches returns every match of the run ordered by sequence number.
func (c *Client) ListMatches(ctx context.Context) ([]*MatchRecord, error) {
	members, err := c.rdb.ZRange(ctx, MatchIndexKey(c.runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read match index: %w", err)
	}

	records := make([]*MatchRecord, 0, len(members))
	for _, m := range members {
		seq, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt match index entry %q: %w", m, err)
		}
		rec, err := c.GetMatch(ctx, seq)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Runs lists every run ID that has published at least one match.
func (c *Client) Runs(ctx context.Context) ([]string, error) {
	runs, err := c.rdb.SMembers(ctx, RunsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	sort.Strings(runs)
	return runs, nil
}

// Subscription delivers match events for one run.
// Caller must call Close() when done.
type Subscription struct {
	events <-chan *MatchRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of match events. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan *MatchRecord {
	return s.events
}

// Errors returns non-fatal decoding errors. The subscription continues after
// an error; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeMatches follows new matches of this run as they are published.
// Delivery is at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeMatches(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, MatchEventsChannel(c.runID))

	// Wait for the subscription to be confirmed so no event published after
	// this call returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to match events: %w", err)
	}

	eventsChan := make(chan *MatchRecord, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var rec MatchRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal match event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &rec:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound reports whether err is a Redis "key not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
