package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session snapshots inside a shared Redis database.
const keyPrefix = "knowbot:session:"

// RedisStore is a Redis-backed implementation of Store[S].
//
// Each session is one JSON document under "knowbot:session:<id>", written
// with a single SET, which gives per-key atomicity: concurrent runs against
// the same session id race last-put-wins but can never leave a torn
// snapshot. Unrelated session ids never contend.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type RedisStore[S any] struct {
	client    *redis.Client
	summarize SummaryFunc[S]
}

// NewRedisStore creates a Redis-backed store from a redis URL
// (e.g. "redis://localhost:6379/0"). The connection is verified with a ping
// so that a misconfigured backend is detected at startup rather than on the
// first checkpoint.
func NewRedisStore[S any](url string, summarize SummaryFunc[S]) (*RedisStore[S], error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisStore[S]{client: client, summarize: summarize}, nil
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient[S any](client *redis.Client, summarize SummaryFunc[S]) *RedisStore[S] {
	return &RedisStore[S]{client: client, summarize: summarize}
}

// Put overwrites the session's snapshot with a single SET.
func (r *RedisStore[S]) Put(ctx context.Context, sessionID string, state S) error {
	snap := snapshot[S]{
		SessionID: sessionID,
		UpdatedAt: time.Now().UTC(),
		State:     state,
	}
	if r.summarize != nil {
		snap.Summary = r.summarize(state)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+sessionID, data, 0).Err()
}

// Get returns the latest snapshot or ErrNotFound. A document that fails to
// decode against the canonical schema is treated as absent.
func (r *RedisStore[S]) Get(ctx context.Context, sessionID string) (S, error) {
	var zero S

	data, err := r.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}

	var snap snapshot[S]
	if err := json.Unmarshal(data, &snap); err != nil {
		return zero, ErrNotFound
	}
	return snap.State, nil
}

// ListSessions scans the key namespace and returns all parseable sessions,
// newest first. Undecodable snapshots are skipped.
func (r *RedisStore[S]) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	sessions := make([]SessionInfo, 0)

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var snap snapshot[S]
			if err := json.Unmarshal(data, &snap); err != nil {
				continue
			}
			sessions = append(sessions, SessionInfo{
				SessionID:   snap.SessionID,
				Summary:     snap.Summary,
				LastUpdated: snap.UpdatedAt,
			})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastUpdated.After(sessions[j].LastUpdated)
	})
	return sessions, nil
}

// Forget deletes the session's snapshot and reports whether one existed.
func (r *RedisStore[S]) Forget(ctx context.Context, sessionID string) (bool, error) {
	deleted, err := r.client.Del(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// ClearAll deletes every snapshot in the namespace.
func (r *RedisStore[S]) ClearAll(ctx context.Context) (bool, error) {
	var cleared bool

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return cleared, err
		}
		if len(keys) > 0 {
			deleted, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return cleared, err
			}
			cleared = cleared || deleted > 0
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return cleared, nil
}

// Close releases the underlying client.
func (r *RedisStore[S]) Close() error {
	return r.client.Close()
}
