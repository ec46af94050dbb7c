package emit

// Event represents an observability event emitted during workflow execution.
//
// Events provide insight into per-session pipeline behavior: stage
// completions, errors, and execution timing. They are distinct from the
// caller-facing event stream, which carries a projection of the state record;
// emit events are operational telemetry only.
type Event struct {
	// SessionID identifies the session whose run emitted this event.
	SessionID string

	// Step is the sequential step number in the run (1-indexed).
	Step int

	// NodeID identifies which node emitted this event.
	NodeID string

	// Msg is a short description of the event (e.g. "node completed").
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys: "duration_ms", "error".
	Meta map[string]interface{}
}
