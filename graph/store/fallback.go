package store

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Fallback wraps a durable Store and degrades to a process-local MemStore
// when the durable backend fails.
//
// A persistence failure is recovered, not propagated: the first failing
// operation logs a warning, flips the store into degraded mode, and is
// retried against the in-memory replacement. Once degraded the store stays
// degraded for the life of the process, so a flapping backend cannot split
// snapshots across two homes mid-run. The degradation is transparent to the
// engine, which only sees the Store interface.
//
// In degraded mode data does not survive restart and ListSessions returns
// empty, per the MemStore contract.
type Fallback[S any] struct {
	durable  Store[S]
	mem      *MemStore[S]
	log      *zap.Logger
	degraded atomic.Bool
}

// NewFallback wraps durable with an in-memory fallback. If durable is nil
// (no backend configured) the store starts degraded. The logger may be nil.
func NewFallback[S any](durable Store[S], log *zap.Logger) *Fallback[S] {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fallback[S]{
		durable: durable,
		mem:     NewMemStore[S](),
		log:     log,
	}
	if durable == nil {
		f.degraded.Store(true)
		log.Warn("no durable session store configured, using in-memory fallback")
	}
	return f
}

// Degraded reports whether the store has fallen back to memory.
func (f *Fallback[S]) Degraded() bool {
	return f.degraded.Load()
}

func (f *Fallback[S]) degrade(op string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.log.Warn("session store unreachable, degrading to in-memory fallback",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// Put writes through to the durable store, degrading on failure.
func (f *Fallback[S]) Put(ctx context.Context, sessionID string, state S) error {
	if !f.degraded.Load() {
		err := f.durable.Put(ctx, sessionID, state)
		if err == nil {
			return nil
		}
		f.degrade("put", err)
	}
	return f.mem.Put(ctx, sessionID, state)
}

// Get reads from the durable store, degrading on failure. ErrNotFound is a
// normal answer, not a backend failure.
func (f *Fallback[S]) Get(ctx context.Context, sessionID string) (S, error) {
	if !f.degraded.Load() {
		state, err := f.durable.Get(ctx, sessionID)
		if err == nil || err == ErrNotFound {
			return state, err
		}
		f.degrade("get", err)
	}
	return f.mem.Get(ctx, sessionID)
}

// ListSessions enumerates durable sessions; in degraded mode the listing is
// always empty.
func (f *Fallback[S]) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	if !f.degraded.Load() {
		sessions, err := f.durable.ListSessions(ctx)
		if err == nil {
			return sessions, nil
		}
		f.degrade("list_sessions", err)
	}
	return f.mem.ListSessions(ctx)
}

// Forget deletes one session, degrading on failure.
func (f *Fallback[S]) Forget(ctx context.Context, sessionID string) (bool, error) {
	if !f.degraded.Load() {
		existed, err := f.durable.Forget(ctx, sessionID)
		if err == nil {
			return existed, nil
		}
		f.degrade("forget", err)
	}
	return f.mem.Forget(ctx, sessionID)
}

// ClearAll deletes every session, degrading on failure.
func (f *Fallback[S]) ClearAll(ctx context.Context) (bool, error) {
	if !f.degraded.Load() {
		existed, err := f.durable.ClearAll(ctx)
		if err == nil {
			return existed, nil
		}
		f.degrade("clear_all", err)
	}
	return f.mem.ClearAll(ctx)
}
