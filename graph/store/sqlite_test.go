package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore[memState] {
	t.Helper()
	st, err := NewSQLiteStore[memState](filepath.Join(t.TempDir(), "sessions.db"), func(s memState) string {
		return s.Query
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteTestStore(t)

	want := memState{Query: "hello", History: []string{"a", "b"}, Count: 3}
	if err := st.Put(ctx, "s1", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != want.Query || got.Count != want.Count || len(got.History) != 2 {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	if _, err := st.Get(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorePutUpserts(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteTestStore(t)

	_ = st.Put(ctx, "s1", memState{Count: 1})
	_ = st.Put(ctx, "s1", memState{Count: 2})

	got, err := st.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Count)
	}

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1 row per session id", len(sessions))
	}
}

func TestSQLiteStoreListSessions(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteTestStore(t)

	_ = st.Put(ctx, "older", memState{Query: "first"})
	_ = st.Put(ctx, "newer", memState{Query: "second"})

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].SessionID != "newer" {
		t.Errorf("order = [%s %s], want newest first", sessions[0].SessionID, sessions[1].SessionID)
	}
	if sessions[1].Summary != "first" {
		t.Errorf("Summary = %q, want summarize func applied", sessions[1].Summary)
	}
}

func TestSQLiteStoreForgetAndClear(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteTestStore(t)

	_ = st.Put(ctx, "s1", memState{})
	_ = st.Put(ctx, "s2", memState{})

	existed, err := st.Forget(ctx, "s1")
	if err != nil || !existed {
		t.Fatalf("Forget() = %v, %v, want true, nil", existed, err)
	}
	existed, _ = st.Forget(ctx, "s1")
	if existed {
		t.Error("Forget() twice = true, want false")
	}

	existed, err = st.ClearAll(ctx)
	if err != nil || !existed {
		t.Fatalf("ClearAll() = %v, %v, want true, nil", existed, err)
	}
	sessions, _ := st.ListSessions(ctx)
	if len(sessions) != 0 {
		t.Errorf("sessions after ClearAll = %d, want 0", len(sessions))
	}
}
