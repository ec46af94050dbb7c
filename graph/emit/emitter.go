// Package emit provides observability events for pipeline execution.
package emit

// Emitter receives and processes observability events from workflow execution.
//
// Emitters enable pluggable observability backends: structured logs, metrics,
// in-memory capture for tests.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: may be called concurrently from multiple sessions
//   - Resilient: handle failures gracefully (never crash the workflow)
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	// Emit must not panic; errors should be handled internally.
	Emit(event Event)
}

// Multi fans a single event out to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
