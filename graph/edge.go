// Package graph provides the sequential graph execution engine that drives
// the knowbot request pipeline.
package graph

// Edge represents a connection between two nodes in the workflow graph.
//
// Edges define the control flow between nodes. They can be:
// - Unconditional: always traverse (When = nil).
// - Conditional: only traverse if the predicate returns true (When != nil).
//
// At runtime the engine evaluates a node's outgoing edges in registration
// order and follows the first match, so guarded edges placed before an
// unconditional edge act as router functions with a default branch.
//
// Type parameter S is the state type used for predicate evaluation.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional predicate that determines if this edge should be
	// traversed. If nil, the edge is unconditional.
	When Predicate[S]
}

// Predicate evaluates state to determine if an edge should be traversed.
//
// Predicates must be pure functions of the state record (deterministic, no
// side effects). Common patterns:
// - Boolean flag: state.NeedsRevision.
// - Presence: state.Error != "".
// - Tagged value: state.Routing.Tool == ToolTranslate.
type Predicate[S any] func(state S) bool
