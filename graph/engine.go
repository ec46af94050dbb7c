package graph

import (
	"context"
	"sync"
	"time"

	"github.com/knowbot-ai/knowbot/graph/emit"
	"github.com/knowbot-ai/knowbot/graph/store"
)

// Engine orchestrates stateful workflow execution with per-session checkpointing.
//
// The Engine is the core runtime that:
//   - Manages workflow graph topology (nodes and edges)
//   - Executes nodes strictly sequentially
//   - Merges partial state updates via the reducer
//   - Persists a checkpoint after every node via the store
//   - Emits observability events via the emitter
//   - Enforces the MaxSteps execution bound
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	engine := New(reducer, store.NewMemStore[State](), emit.NewLogEmitter(os.Stdout, false), Options{MaxSteps: 25})
//	engine.Add("route", routeNode)
//	engine.StartAt("route")
//	final, err := engine.Run(ctx, "session-1", State{Query: "hello"})
type Engine[S any] struct {
	mu sync.RWMutex

	// reducer merges partial state updates deterministically
	reducer Reducer[S]

	// nodes maps node IDs to Node implementations
	nodes map[string]Node[S]

	// edges defines transitions between nodes, evaluated in order
	edges []Edge[S]

	// startNode is the entry point for workflow execution
	startNode string

	// store persists the per-session state checkpoint
	store store.Store[S]

	// emitter receives observability events
	emitter emit.Emitter

	// annotate contributes extra event metadata from state transitions
	annotate func(prev, next S) map[string]interface{}

	opts Options
}

// Options configures Engine execution behavior.
type Options struct {
	// MaxSteps limits workflow execution to prevent infinite loops.
	// If 0, no limit is enforced (use with caution).
	MaxSteps int
}

// Step is one element of a streaming run: the node that just completed and
// the full merged state after its delta was applied. A non-nil Err marks an
// aborted run; it is always the last element before the channel closes.
type Step[S any] struct {
	NodeID string
	State  S
	Err    error
}

// New creates a new Engine with the given configuration.
//
// The constructor does not validate all parameters to allow flexible
// initialization; validation occurs when Run or RunStream is called. The
// emitter may be nil, in which case events are skipped.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts Options) *Engine[S] {
	return &Engine[S]{
		reducer: reducer,
		nodes:   make(map[string]Node[S]),
		edges:   make([]Edge[S], 0),
		store:   st,
		emitter: emitter,
		opts:    opts,
	}
}

// Add registers a node in the workflow graph.
//
// Node IDs must be unique within the workflow. Returns an error if the ID is
// empty, the node is nil, or a node with this ID already exists.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{
			Message: "duplicate node ID: " + nodeID,
			Code:    "DUPLICATE_NODE",
		}
	}

	e.nodes[nodeID] = node
	return nil
}

// StartAt sets the entry point for workflow execution.
// The node must have been registered via Add.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{
			Message: "start node does not exist: " + nodeID,
			Code:    "NODE_NOT_FOUND",
		}
	}

	e.startNode = nodeID
	return nil
}

// Connect creates an edge between two nodes.
//
// A nil predicate makes the edge unconditional. Outgoing edges are evaluated
// in the order they were connected and the first match wins, so a guarded
// edge registered before an unconditional one implements conditional routing
// with a default branch.
//
// Node existence is not validated (lazy validation) to allow flexible graph
// construction order.
func (e *Engine[S]) Connect(from, to string, predicate Predicate[S]) error {
	if from == "" {
		return &EngineError{Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &EngineError{Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: predicate})
	return nil
}

// AnnotateEvents registers a hook that adds metadata to every emitted event,
// computed from the state before and after the node ran. The engine itself
// is generic and cannot see inside S; the hook is how a workflow surfaces
// domain transitions (a recorded failure, a triggered retry) to emitters.
func (e *Engine[S]) AnnotateEvents(fn func(prev, next S) map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.annotate = fn
}

// Run executes the workflow from the start node to a terminal node and
// returns the final state.
//
// After every node the merged state is checkpointed under sessionID, so a
// caller that abandons the run leaves the session resumable at the last
// completed node. Only configuration errors (missing reducer/store/start
// node, unknown node, no matching edge, MaxSteps exceeded) are returned as
// Go errors; domain failures are expected to travel inside the state record.
func (e *Engine[S]) Run(ctx context.Context, sessionID string, initial S) (S, error) {
	return e.run(ctx, sessionID, initial, nil)
}

// RunStream executes the identical algorithm as Run but delivers a Step for
// every completed node on the returned channel, in execution order, before
// continuing to the next node. The channel is closed after the terminal
// node's step (or after a final Step carrying Err on an aborted run).
//
// Configuration errors detectable before execution are returned immediately.
func (e *Engine[S]) RunStream(ctx context.Context, sessionID string, initial S) (<-chan Step[S], error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	steps := make(chan Step[S])
	go func() {
		defer close(steps)
		_, err := e.run(ctx, sessionID, initial, func(nodeID string, state S) bool {
			select {
			case steps <- Step[S]{NodeID: nodeID, State: state}:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil {
			select {
			case steps <- Step[S]{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return steps, nil
}

// validate checks the engine configuration required before any run.
func (e *Engine[S]) validate() error {
	if e.reducer == nil {
		return &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if e.startNode == "" {
		return &EngineError{Message: "start node not set (call StartAt before Run)", Code: "NO_START_NODE"}
	}

	e.mu.RLock()
	_, exists := e.nodes[e.startNode]
	e.mu.RUnlock()
	if !exists {
		return &EngineError{Message: "start node does not exist: " + e.startNode, Code: "NODE_NOT_FOUND"}
	}
	return nil
}

// run is the shared execution loop behind Run and RunStream. observe, when
// non-nil, is invoked after each node's checkpoint; returning false abandons
// the run (the session stays at its last checkpoint).
func (e *Engine[S]) run(ctx context.Context, sessionID string, initial S, observe func(nodeID string, state S) bool) (S, error) {
	var zero S

	if err := e.validate(); err != nil {
		return zero, err
	}

	currentState := initial
	currentNode := e.startNode
	step := 0

	for {
		step++

		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			return zero, &EngineError{
				Message: "workflow exceeded MaxSteps limit",
				Code:    "MAX_STEPS_EXCEEDED",
			}
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[currentNode]
		e.mu.RUnlock()
		if !exists {
			return zero, &EngineError{
				Message: "node not found during execution: " + currentNode,
				Code:    "NODE_NOT_FOUND",
			}
		}

		started := time.Now()
		result := nodeImpl.Run(ctx, currentState)
		if result.Err != nil {
			return zero, result.Err
		}

		prevState := currentState
		currentState = e.reducer(currentState, result.Delta)

		if err := e.store.Put(ctx, sessionID, currentState); err != nil {
			return zero, &EngineError{
				Message: "failed to checkpoint state: " + err.Error(),
				Code:    "STORE_ERROR",
			}
		}

		if e.emitter != nil {
			meta := map[string]interface{}{
				"duration_ms": time.Since(started).Milliseconds(),
			}
			if e.annotate != nil {
				for k, v := range e.annotate(prevState, currentState) {
					meta[k] = v
				}
			}
			if result.Route.Terminal {
				meta["terminal"] = true
			}
			e.emitter.Emit(emit.Event{
				SessionID: sessionID,
				Step:      step,
				NodeID:    currentNode,
				Msg:       "node completed",
				Meta:      meta,
			})
		}

		if observe != nil && !observe(currentNode, currentState) {
			return zero, ctx.Err()
		}

		if result.Route.Terminal {
			return currentState, nil
		}
		if result.Route.To != "" {
			currentNode = result.Route.To
			continue
		}

		nextNode := e.evaluateEdges(currentNode, currentState)
		if nextNode == "" {
			return zero, &EngineError{
				Message: "no valid route from node: " + currentNode,
				Code:    "NO_ROUTE",
			}
		}
		currentNode = nextNode
	}
}

// evaluateEdges finds the first matching edge from the given node.
//
//  1. If an edge has a nil predicate (unconditional), it always matches.
//  2. If an edge predicate returns true for the current state, it matches.
//  3. First matching edge wins (priority order).
//
// Returns empty string if no edges match.
func (e *Engine[S]) evaluateEdges(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}

// EngineError represents an error from Engine operations.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
