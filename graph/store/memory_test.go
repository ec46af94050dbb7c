package store

import (
	"context"
	"errors"
	"testing"
)

type memState struct {
	Query   string   `json:"query,omitempty"`
	History []string `json:"history,omitempty"`
	Count   int      `json:"count,omitempty"`
}

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()

	want := memState{Query: "hello", History: []string{"a", "b"}, Count: 2}
	if err := mem.Put(ctx, "s1", want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := mem.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Query != want.Query || got.Count != want.Count || len(got.History) != 2 {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestMemStoreGetUnknown(t *testing.T) {
	mem := NewMemStore[memState]()
	_, err := mem.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()

	_ = mem.Put(ctx, "s1", memState{Count: 1})
	_ = mem.Put(ctx, "s1", memState{Count: 2})

	got, err := mem.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2 (latest snapshot wins)", got.Count)
	}
}

func TestMemStoreForget(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()
	_ = mem.Put(ctx, "s1", memState{Count: 1})

	existed, err := mem.Forget(ctx, "s1")
	if err != nil || !existed {
		t.Fatalf("Forget() = %v, %v, want true, nil", existed, err)
	}
	if _, err := mem.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Forget error = %v, want ErrNotFound", err)
	}

	existed, err = mem.Forget(ctx, "s1")
	if err != nil || existed {
		t.Errorf("Forget() again = %v, %v, want false, nil", existed, err)
	}
}

func TestMemStoreClearAll(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()
	_ = mem.Put(ctx, "s1", memState{})
	_ = mem.Put(ctx, "s2", memState{})

	existed, err := mem.ClearAll(ctx)
	if err != nil || !existed {
		t.Fatalf("ClearAll() = %v, %v, want true, nil", existed, err)
	}
	if _, err := mem.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("s1 survived ClearAll")
	}

	existed, _ = mem.ClearAll(ctx)
	if existed {
		t.Errorf("ClearAll() on empty store = true, want false")
	}
}

func TestMemStoreListSessionsAlwaysEmpty(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()
	_ = mem.Put(ctx, "s1", memState{})

	sessions, err := mem.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("ListSessions() = %d entries, want 0 (non-durable fallback advertises none)", len(sessions))
	}
}

func TestMemStoreGetCopies(t *testing.T) {
	ctx := context.Background()
	mem := NewMemStore[memState]()
	_ = mem.Put(ctx, "s1", memState{History: []string{"a"}})

	first, _ := mem.Get(ctx, "s1")
	first.History[0] = "mutated"

	second, _ := mem.Get(ctx, "s1")
	if second.History[0] != "a" {
		t.Errorf("caller mutation leaked into the store")
	}
}
