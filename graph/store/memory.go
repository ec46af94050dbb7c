package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemStore is the process-local, non-persistent implementation of Store[S].
//
// It is the fallback used when no durable backend is configured or reachable,
// and the default store for tests. Data does not survive process restart and,
// matching the fallback contract, ListSessions always returns an empty
// listing even when snapshots exist.
//
// MemStore is safe for concurrent use. Snapshots are stored as JSON so that
// Get returns a copy decoded through the canonical schema, never an aliased
// value a caller could mutate behind the store's back.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	updated   map[string]time.Time
}

// NewMemStore creates a new in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		snapshots: make(map[string][]byte),
		updated:   make(map[string]time.Time),
	}
}

// Put overwrites the session's snapshot. The JSON encoding happens outside
// the lock; the map assignment inside it is the atomic commit point.
func (m *MemStore[S]) Put(_ context.Context, sessionID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = data
	m.updated[sessionID] = time.Now().UTC()
	return nil
}

// Get returns the latest snapshot or ErrNotFound.
func (m *MemStore[S]) Get(_ context.Context, sessionID string) (S, error) {
	var zero S

	m.mu.RLock()
	data, exists := m.snapshots[sessionID]
	m.mu.RUnlock()
	if !exists {
		return zero, ErrNotFound
	}

	var state S
	if err := json.Unmarshal(data, &state); err != nil {
		// Undecodable snapshot is treated as absent.
		return zero, ErrNotFound
	}
	return state, nil
}

// ListSessions always returns an empty listing: the in-memory store is the
// non-durable fallback, which advertises no sessions.
func (m *MemStore[S]) ListSessions(_ context.Context) ([]SessionInfo, error) {
	return []SessionInfo{}, nil
}

// Forget deletes the session's snapshot and reports whether one existed.
func (m *MemStore[S]) Forget(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.snapshots[sessionID]
	delete(m.snapshots, sessionID)
	delete(m.updated, sessionID)
	return existed, nil
}

// ClearAll deletes every snapshot.
func (m *MemStore[S]) ClearAll(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed := len(m.snapshots) > 0
	m.snapshots = make(map[string][]byte)
	m.updated = make(map[string]time.Time)
	return existed, nil
}
