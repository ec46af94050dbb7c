// Package store provides session-keyed persistence for pipeline state.
//
// Every session owns exactly one snapshot, the latest checkpoint; prior
// snapshots are not retained. Implementations must make Put atomic with
// respect to a single session id (a reader never observes a torn snapshot)
// and must not block unrelated session ids.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested session id has no snapshot.
var ErrNotFound = errors.New("not found")

// SummaryFunc extracts a human-readable summary from a state snapshot, used
// to populate SessionInfo without the store knowing the state type. May be
// nil, in which case listings carry an empty summary.
type SummaryFunc[S any] func(state S) string

// SessionInfo describes one known session for listing purposes.
type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	Summary     string    `json:"summary"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store persists one state snapshot per session id.
//
// Implementations can use:
//   - In-memory storage (process-local fallback, see memory.go)
//   - Redis (redis.go)
//   - SQLite (sqlite.go) or MySQL (mysql.go)
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type Store[S any] interface {
	// Put overwrites the session's single latest snapshot.
	// Must be atomic for a single session id: concurrent writers may race
	// (last put wins) but a partial snapshot must never be observable.
	Put(ctx context.Context, sessionID string, state S) error

	// Get returns the latest snapshot for a session, or ErrNotFound for an
	// unknown id. Snapshots that fail to decode against the canonical
	// schema are treated as absent.
	Get(ctx context.Context, sessionID string) (S, error)

	// ListSessions enumerates all known sessions ordered by LastUpdated
	// descending. Entries whose snapshot cannot be parsed are skipped
	// rather than failing the whole listing.
	ListSessions(ctx context.Context) ([]SessionInfo, error)

	// Forget deletes the session's snapshot. The id remains valid for
	// future use. Reports whether any snapshot existed.
	Forget(ctx context.Context, sessionID string) (bool, error)

	// ClearAll deletes every snapshot. Reports whether any existed.
	ClearAll(ctx context.Context) (bool, error)
}

// snapshot is the canonical serialization envelope shared by the durable
// backends. State snapshots are validated against this schema on read; a
// document that fails to decode is treated as absent, never field-sniffed.
type snapshot[S any] struct {
	SessionID string    `json:"session_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
	State     S         `json:"state"`
}
