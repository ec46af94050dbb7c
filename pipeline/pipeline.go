package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/graph/emit"
	"github.com/knowbot-ai/knowbot/graph/store"
	"github.com/knowbot-ai/knowbot/model"
	"github.com/knowbot-ai/knowbot/retrieval"
)

// Stage names, part of the wire contract with event stream consumers.
const (
	StageCompaction = "compaction"
	StageRoute      = "route"
	StagePlan       = "plan"
	StageRetrieve   = "retrieve"
	StageTranslate  = "translate"
	StageGenerate   = "generate"
	StageCritique   = "critique"
	StageFinalize   = "finalize"
	// StageError marks the terminal event of an aborted stream.
	StageError = "error"
)

// Deps are the collaborators the pipeline is built from, constructed once at
// startup and reused read-only by all sessions. Model and Store are required;
// a nil retrieval collaborator makes the corresponding tool fail at run time
// with a configuration error in the state record.
type Deps struct {
	Model      model.ChatModel
	Store      store.Store[State]
	Emitter    emit.Emitter
	Searcher   retrieval.Searcher
	Crawler    retrieval.Crawler
	Vectors    retrieval.VectorStore
	Calculator retrieval.Calculator
	Logger     *zap.Logger
}

// Pipeline is the assembled workflow plus its session operations.
type Pipeline struct {
	engine *graph.Engine[State]
	store  store.Store[State]
	cfg    Config
	log    *zap.Logger
}

// RunOptions carries per-run caller preferences.
type RunOptions struct {
	// GlobalTargetLanguage, when set, translates the final answer for the
	// whole session regardless of which tool handled the query.
	GlobalTargetLanguage string
}

// Result is the blocking run's reply shape.
type Result struct {
	FinalAnswer     string `json:"final_answer"`
	Intent          string `json:"intent,omitempty"`
	RoutingDecision string `json:"routing_decision,omitempty"`
	Citations       []int  `json:"citations,omitempty"`
	Error           string `json:"error,omitempty"`
}

// New assembles the pipeline graph. Only configuration problems (missing
// model or store) fail construction; runs themselves always yield a
// well-formed final state.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Model == nil {
		return nil, errors.New("pipeline: model is required")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	engine := graph.New(Reduce, deps.Store, deps.Emitter, graph.Options{MaxSteps: cfg.MaxSteps})
	engine.AnnotateEvents(eventMeta)
	if err := buildGraph(engine, cfg, deps); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	return &Pipeline{
		engine: engine,
		store:  deps.Store,
		cfg:    cfg,
		log:    deps.Logger,
	}, nil
}

// buildGraph registers the stages and their edges.
//
// Edge order matters: every stage's first outgoing edge routes to finalize
// when an error has been recorded, so a failed stage short-circuits the rest
// of the pipeline while finalize still surfaces a best-effort answer.
func buildGraph(engine *graph.Engine[State], cfg Config, deps Deps) error {
	stages := map[string]graph.Node[State]{
		StageCompaction: &compactStage{llm: deps.Model, cfg: cfg},
		StageRoute:      &routeStage{llm: deps.Model, cfg: cfg},
		StagePlan:       &planStage{llm: deps.Model, cfg: cfg},
		StageRetrieve: &retrieveStage{
			searcher:   deps.Searcher,
			crawler:    deps.Crawler,
			vectors:    deps.Vectors,
			calculator: deps.Calculator,
			cfg:        cfg,
		},
		StageTranslate: &translateStage{llm: deps.Model, cfg: cfg},
		StageGenerate:  &generateStage{llm: deps.Model, cfg: cfg},
		StageCritique:  &criticStage{llm: deps.Model, cfg: cfg},
		StageFinalize:  &finalizeStage{llm: deps.Model, cfg: cfg},
	}
	for id, node := range stages {
		if err := engine.Add(id, node); err != nil {
			return err
		}
	}
	if err := engine.StartAt(StageCompaction); err != nil {
		return err
	}

	errSet := func(s State) bool { return s.Error != "" }
	wantsTranslate := func(s State) bool {
		return s.Routing != nil && s.Routing.Tool == ToolTranslate
	}
	wantsRevision := func(s State) bool { return s.NeedsRevision }

	type edge struct {
		from, to string
		when     graph.Predicate[State]
	}
	edges := []edge{
		{StageCompaction, StageFinalize, errSet},
		{StageCompaction, StageRoute, nil},
		{StageRoute, StageFinalize, errSet},
		{StageRoute, StagePlan, nil},
		{StagePlan, StageFinalize, errSet},
		{StagePlan, StageRetrieve, nil},
		{StageRetrieve, StageFinalize, errSet},
		{StageRetrieve, StageTranslate, wantsTranslate},
		{StageRetrieve, StageGenerate, nil},
		{StageTranslate, StageFinalize, nil},
		{StageGenerate, StageFinalize, errSet},
		{StageGenerate, StageCritique, nil},
		{StageCritique, StageFinalize, errSet},
		{StageCritique, StageGenerate, wantsRevision},
		{StageCritique, StageFinalize, nil},
	}
	for _, e := range edges {
		if err := engine.Connect(e.from, e.to, e.when); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one blocking query against a session and returns the result
// once the pipeline reaches its terminal stage.
func (p *Pipeline) Run(ctx context.Context, sessionID, query string, opts RunOptions) (Result, error) {
	initial, err := p.seed(ctx, sessionID, query, opts)
	if err != nil {
		return Result{}, err
	}

	final, err := p.engine.Run(ctx, sessionID, initial)
	if err != nil {
		return Result{}, err
	}
	return resultOf(final), nil
}

// RunStream executes the identical pipeline but delivers one Event per
// completed stage, in execution order. On success the last event is the
// finalize stage's projection; on an engine abort the last event carries the
// error. The channel closes when the run ends or ctx is cancelled.
func (p *Pipeline) RunStream(ctx context.Context, sessionID, query string, opts RunOptions) (<-chan Event, error) {
	initial, err := p.seed(ctx, sessionID, query, opts)
	if err != nil {
		return nil, err
	}

	steps, err := p.engine.RunStream(ctx, sessionID, initial)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for step := range steps {
			var ev Event
			if step.Err != nil {
				ev = Event{Stage: StageError, State: Projection{Error: step.Err.Error()}}
			} else {
				ev = project(step.NodeID, step.State)
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// seed loads the session's checkpoint (absent means a fresh session) and
// prepares the run's initial state.
func (p *Pipeline) seed(ctx context.Context, sessionID, query string, opts RunOptions) (State, error) {
	if sessionID == "" {
		return State{}, errors.New("pipeline: session id is required")
	}
	if query == "" {
		return State{}, errors.New("pipeline: query is required")
	}

	prev, err := p.store.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return State{}, fmt.Errorf("pipeline: load session %s: %w", sessionID, err)
	}

	p.log.Debug("run seeded",
		zap.String("session_id", sessionID),
		zap.Int("history_len", len(prev.ChatHistory)),
	)
	return seedRun(prev, query, opts.GlobalTargetLanguage), nil
}

func resultOf(final State) Result {
	res := Result{
		FinalAnswer: final.FinalAnswer,
		Citations:   final.Citations,
		Error:       final.Error,
	}
	if final.Plan != nil {
		res.Intent = final.Plan.Intent
	}
	if final.Routing != nil {
		res.RoutingDecision = string(final.Routing.Tool)
	}
	return res
}

// Sessions lists all known sessions, newest first.
func (p *Pipeline) Sessions(ctx context.Context) ([]store.SessionInfo, error) {
	return p.store.ListSessions(ctx)
}

// SessionState fetches a session's latest checkpoint.
func (p *Pipeline) SessionState(ctx context.Context, sessionID string) (State, error) {
	return p.store.Get(ctx, sessionID)
}

// Forget deletes one session's checkpoint; the id may be reused afterwards.
func (p *Pipeline) Forget(ctx context.Context, sessionID string) (bool, error) {
	return p.store.Forget(ctx, sessionID)
}

// ClearAll deletes every session checkpoint.
func (p *Pipeline) ClearAll(ctx context.Context) (bool, error) {
	return p.store.ClearAll(ctx)
}

// StateSummary is the store.SummaryFunc for listings: the rolling summary if
// one exists, else the first user turn truncated.
func StateSummary(s State) string {
	if s.Summary != "" {
		return truncate(s.Summary, 120)
	}
	for _, turn := range s.ChatHistory {
		if turn.Role == "user" {
			return truncate(turn.Content, 120)
		}
	}
	return truncate(s.Query, 120)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
