package graph

import "context"

// Node represents one stage of a workflow graph.
// It receives state of type S, performs computation, and returns a NodeResult.
//
// Nodes are pure transformations over the shared state record: they must not
// mutate their input and return only the fields they change via Delta. The
// engine merges the Delta into the current state with the configured Reducer.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	// It returns a NodeResult containing the partial state update, an
	// optional routing decision, and any configuration-level error.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult represents the output of a node execution.
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node.
	// It is merged with the current state using the configured reducer.
	Delta S

	// Route specifies the next step in workflow execution.
	// Use Stop() for terminal nodes or Goto(id) for explicit routing.
	// A zero Route defers to the graph's edge table.
	Route Next

	// Err contains a configuration-level error that halts the workflow.
	// Domain failures should travel inside Delta instead so the engine
	// can still route the run to its terminal stage.
	Err error
}

// Next specifies the next step in workflow execution after a node completes.
//
// Routing modes:
//   - Terminal: stop execution (Route.Terminal = true)
//   - Single: go to a specific node (Route.To = "nodeID")
//   - Zero value: fall back to edge-based routing
type Next struct {
	// To specifies the next single node to execute.
	To string

	// Terminal indicates workflow execution should stop.
	Terminal bool
}

// Stop returns a Next that terminates workflow execution.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the specified node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	routeNode := NodeFunc[State](func(ctx context.Context, s State) NodeResult[State] {
//	    return NodeResult[State]{Delta: State{Summary: "updated"}}
//	})
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// Reducer merges a partial state update (delta) into the previous state and
// returns the result. Reducers must be deterministic and must never discard
// append-only fields from prev.
type Reducer[S any] func(prev, delta S) S
