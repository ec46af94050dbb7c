package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func sampleEvent() Event {
	return Event{
		SessionID: "s1",
		Step:      3,
		NodeID:    "retrieve",
		Msg:       "node completed",
		Meta:      map[string]interface{}{"duration_ms": int64(42)},
	}
}

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	NewLogEmitter(&buf, false).Emit(sampleEvent())

	got := buf.String()
	for _, want := range []string{"[node completed]", "session=s1", "step=3", "node=retrieve", "duration_ms"} {
		if !strings.Contains(got, want) {
			t.Errorf("text output %q missing %q", got, want)
		}
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogEmitter(&buf, true).Emit(sampleEvent())

	got := buf.String()
	if !strings.HasPrefix(got, "{") || !strings.Contains(got, `"node":"retrieve"`) {
		t.Errorf("json output = %q, want one JSONL object with node field", got)
	}
}

// capture records events for assertions.
type capture struct {
	events []Event
}

func (c *capture) Emit(event Event) { c.events = append(c.events, event) }

func TestMultiFansOut(t *testing.T) {
	a, b := &capture{}, &capture{}
	m := Multi{a, nil, b}

	m.Emit(sampleEvent())

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("fan-out counts = %d, %d, want 1, 1", len(a.events), len(b.events))
	}
}

func TestPromEmitterMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	emitter := NewPromEmitter(registry)

	emitter.Emit(sampleEvent())

	failure := sampleEvent()
	failure.Meta["error"] = "boom"
	emitter.Emit(failure)

	revision := sampleEvent()
	revision.NodeID = "critique"
	revision.Meta["revision"] = true
	emitter.Emit(revision)

	terminal := sampleEvent()
	terminal.NodeID = "finalize"
	terminal.Meta["terminal"] = true
	emitter.Emit(terminal)

	if got := testutil.ToFloat64(emitter.stages.WithLabelValues("retrieve")); got != 2 {
		t.Errorf("stages{retrieve} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(emitter.stageErrors.WithLabelValues("retrieve")); got != 1 {
		t.Errorf("stage errors{retrieve} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(emitter.revisions); got != 1 {
		t.Errorf("revisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(emitter.runs); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"knowbot_runs_total",
		"knowbot_stages_total",
		"knowbot_stage_latency_ms",
		"knowbot_stage_errors_total",
		"knowbot_revisions_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered after emit", want)
		}
	}
}
