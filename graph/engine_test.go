package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/knowbot-ai/knowbot/graph/emit"
	"github.com/knowbot-ai/knowbot/graph/store"
)

// testState is a minimal state record for engine tests: Trace records node
// visits (append-only), Value is replace-when-set.
type testState struct {
	Trace []string `json:"trace,omitempty"`
	Value string   `json:"value,omitempty"`
}

func testReducer(prev, delta testState) testState {
	out := prev
	if len(delta.Trace) > 0 {
		out.Trace = append(append([]string{}, prev.Trace...), delta.Trace...)
	}
	if delta.Value != "" {
		out.Value = delta.Value
	}
	return out
}

func visit(name string, route Next) NodeFunc[testState] {
	return func(ctx context.Context, s testState) NodeResult[testState] {
		return NodeResult[testState]{
			Delta: testState{Trace: []string{name}},
			Route: route,
		}
	}
}

func newTestEngine(t *testing.T) (*Engine[testState], *store.MemStore[testState]) {
	t.Helper()
	mem := store.NewMemStore[testState]()
	return New(testReducer, mem, nil, Options{MaxSteps: 25}), mem
}

func TestEngineRunLinear(t *testing.T) {
	engine, mem := newTestEngine(t)

	mustAdd(t, engine, "a", visit("a", Next{}))
	mustAdd(t, engine, "b", visit("b", Next{}))
	mustAdd(t, engine, "c", visit("c", Stop()))
	mustStart(t, engine, "a")
	mustConnect(t, engine, "a", "b", nil)
	mustConnect(t, engine, "b", "c", nil)

	final, err := engine.Run(context.Background(), "s1", testState{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(final.Trace) != len(want) {
		t.Fatalf("trace = %v, want %v", final.Trace, want)
	}
	for i, name := range want {
		if final.Trace[i] != name {
			t.Errorf("trace[%d] = %q, want %q", i, final.Trace[i], name)
		}
	}

	// Every node checkpointed; the stored snapshot is the final state.
	stored, err := mem.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(stored.Trace) != 3 {
		t.Errorf("stored trace = %v, want 3 entries", stored.Trace)
	}
}

func TestEngineConditionalEdges(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{
			name:  "guarded edge taken when predicate matches",
			value: "left",
			want:  []string{"start", "left"},
		},
		{
			name:  "unconditional default when predicate fails",
			value: "anything-else",
			want:  []string{"start", "right"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)
			mustAdd(t, engine, "start", NodeFunc[testState](func(ctx context.Context, s testState) NodeResult[testState] {
				return NodeResult[testState]{Delta: testState{Trace: []string{"start"}, Value: tt.value}}
			}))
			mustAdd(t, engine, "left", visit("left", Stop()))
			mustAdd(t, engine, "right", visit("right", Stop()))
			mustStart(t, engine, "start")
			mustConnect(t, engine, "start", "left", func(s testState) bool { return s.Value == "left" })
			mustConnect(t, engine, "start", "right", nil)

			final, err := engine.Run(context.Background(), "s1", testState{})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(final.Trace) != len(tt.want) || final.Trace[len(final.Trace)-1] != tt.want[len(tt.want)-1] {
				t.Errorf("trace = %v, want %v", final.Trace, tt.want)
			}
		})
	}
}

func TestEngineGoto(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustAdd(t, engine, "a", visit("a", Goto("c")))
	mustAdd(t, engine, "b", visit("b", Stop()))
	mustAdd(t, engine, "c", visit("c", Stop()))
	mustStart(t, engine, "a")
	mustConnect(t, engine, "a", "b", nil)

	final, err := engine.Run(context.Background(), "s1", testState{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(final.Trace) != 2 || final.Trace[1] != "c" {
		t.Errorf("trace = %v, want [a c] (Goto overrides edges)", final.Trace)
	}
}

func TestEngineMaxSteps(t *testing.T) {
	mem := store.NewMemStore[testState]()
	engine := New(testReducer, mem, nil, Options{MaxSteps: 3})

	mustAdd(t, engine, "loop", visit("loop", Next{}))
	mustStart(t, engine, "loop")
	mustConnect(t, engine, "loop", "loop", nil)

	_, err := engine.Run(context.Background(), "s1", testState{})
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Code != "MAX_STEPS_EXCEEDED" {
		t.Fatalf("Run() error = %v, want MAX_STEPS_EXCEEDED", err)
	}
}

func TestEngineNoRoute(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustAdd(t, engine, "a", visit("a", Next{}))
	mustStart(t, engine, "a")

	_, err := engine.Run(context.Background(), "s1", testState{})
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Code != "NO_ROUTE" {
		t.Fatalf("Run() error = %v, want NO_ROUTE", err)
	}
}

func TestEngineValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func() *Engine[testState]
		code  string
	}{
		{
			name: "missing reducer",
			setup: func() *Engine[testState] {
				e := New[testState](nil, store.NewMemStore[testState](), nil, Options{})
				_ = e.Add("a", visit("a", Stop()))
				_ = e.StartAt("a")
				return e
			},
			code: "MISSING_REDUCER",
		},
		{
			name: "missing store",
			setup: func() *Engine[testState] {
				e := New(testReducer, nil, nil, Options{})
				_ = e.Add("a", visit("a", Stop()))
				_ = e.StartAt("a")
				return e
			},
			code: "MISSING_STORE",
		},
		{
			name: "missing start node",
			setup: func() *Engine[testState] {
				e := New(testReducer, store.NewMemStore[testState](), nil, Options{})
				_ = e.Add("a", visit("a", Stop()))
				return e
			},
			code: "NO_START_NODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup().Run(context.Background(), "s1", testState{})
			var engErr *EngineError
			if !errors.As(err, &engErr) || engErr.Code != tt.code {
				t.Fatalf("Run() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestEngineAddDuplicate(t *testing.T) {
	engine, _ := newTestEngine(t)
	mustAdd(t, engine, "a", visit("a", Stop()))
	if err := engine.Add("a", visit("a", Stop())); err == nil {
		t.Fatal("Add() duplicate = nil, want error")
	}
}

func TestEngineRunStreamOrder(t *testing.T) {
	engine, _ := newTestEngine(t)

	mustAdd(t, engine, "a", visit("a", Next{}))
	mustAdd(t, engine, "b", visit("b", Stop()))
	mustStart(t, engine, "a")
	mustConnect(t, engine, "a", "b", nil)

	steps, err := engine.RunStream(context.Background(), "s1", testState{})
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}

	var got []Step[testState]
	for step := range steps {
		got = append(got, step)
	}
	if len(got) != 2 {
		t.Fatalf("steps = %d, want 2", len(got))
	}
	if got[0].NodeID != "a" || got[1].NodeID != "b" {
		t.Errorf("step order = [%s %s], want [a b]", got[0].NodeID, got[1].NodeID)
	}
	// Each step carries the merged state at that point.
	if len(got[0].State.Trace) != 1 || len(got[1].State.Trace) != 2 {
		t.Errorf("step states not cumulative: %v, %v", got[0].State.Trace, got[1].State.Trace)
	}
}

func TestEngineRunStreamError(t *testing.T) {
	mem := store.NewMemStore[testState]()
	engine := New(testReducer, mem, nil, Options{MaxSteps: 2})

	mustAdd(t, engine, "loop", visit("loop", Next{}))
	mustStart(t, engine, "loop")
	mustConnect(t, engine, "loop", "loop", nil)

	steps, err := engine.RunStream(context.Background(), "s1", testState{})
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}

	var last Step[testState]
	for step := range steps {
		last = step
	}
	if last.Err == nil {
		t.Fatal("last step Err = nil, want MAX_STEPS_EXCEEDED")
	}
}

type recordingEmitter struct {
	events []emit.Event
}

func (r *recordingEmitter) Emit(event emit.Event) { r.events = append(r.events, event) }

func TestEngineAnnotateEvents(t *testing.T) {
	mem := store.NewMemStore[testState]()
	recorder := &recordingEmitter{}
	engine := New(testReducer, mem, recorder, Options{MaxSteps: 25})
	engine.AnnotateEvents(func(prev, next testState) map[string]interface{} {
		if next.Value == "failed" && prev.Value != "failed" {
			return map[string]interface{}{"error": next.Value}
		}
		return nil
	})

	mustAdd(t, engine, "work", NodeFunc[testState](func(ctx context.Context, s testState) NodeResult[testState] {
		return NodeResult[testState]{Delta: testState{Trace: []string{"work"}, Value: "failed"}}
	}))
	mustAdd(t, engine, "done", visit("done", Stop()))
	mustStart(t, engine, "work")
	mustConnect(t, engine, "work", "done", nil)

	if _, err := engine.Run(context.Background(), "s1", testState{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(recorder.events) != 2 {
		t.Fatalf("events = %d, want one per node", len(recorder.events))
	}
	if got := recorder.events[0].Meta["error"]; got != "failed" {
		t.Errorf("work event error meta = %v, want annotation from the hook", got)
	}
	// Value stays "failed" afterwards, so the annotation fires only once.
	if _, ok := recorder.events[1].Meta["error"]; ok {
		t.Error("done event carries error meta, want it on the failing node only")
	}
	if got := recorder.events[1].Meta["terminal"]; got != true {
		t.Errorf("done event terminal meta = %v, want true", got)
	}
	if _, ok := recorder.events[0].Meta["terminal"]; ok {
		t.Error("work event carries terminal meta, want it on the last node only")
	}
}

func mustAdd(t *testing.T, e *Engine[testState], id string, n Node[testState]) {
	t.Helper()
	if err := e.Add(id, n); err != nil {
		t.Fatalf("Add(%s) error = %v", id, err)
	}
}

func mustStart(t *testing.T, e *Engine[testState], id string) {
	t.Helper()
	if err := e.StartAt(id); err != nil {
		t.Fatalf("StartAt(%s) error = %v", id, err)
	}
}

func mustConnect(t *testing.T, e *Engine[testState], from, to string, when Predicate[testState]) {
	t.Helper()
	if err := e.Connect(from, to, when); err != nil {
		t.Fatalf("Connect(%s, %s) error = %v", from, to, err)
	}
}
