package pipeline

// Projection is the fixed, small view of state exposed on the event stream.
// It deliberately never includes chat history or retrieved context, which are
// internal and unbounded.
type Projection struct {
	DraftAnswer     string `json:"draft_answer,omitempty"`
	FinalAnswer     string `json:"final_answer,omitempty"`
	RoutingDecision string `json:"routing_decision,omitempty"`
	Intent          string `json:"intent,omitempty"`
	Summary         string `json:"summary,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Event is one element of the streaming run: the stage that just completed
// and the projected state after its update was merged. Stage names are stable
// wire identifiers.
type Event struct {
	Stage string     `json:"stage"`
	State Projection `json:"state"`
}

// eventMeta flags telemetry-worthy transitions for the emitters: the stage
// that first records a failure carries an "error" key, and a stage that
// triggers a revision cycle carries "revision". Emitters use these to route
// log levels and drive counters.
func eventMeta(prev, next State) map[string]interface{} {
	meta := map[string]interface{}{}
	if next.Error != "" && prev.Error == "" {
		meta["error"] = next.Error
	}
	if next.RevisionCount > prev.RevisionCount {
		meta["revision"] = true
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// project builds the event for one completed stage.
func project(stage string, s State) Event {
	p := Projection{
		DraftAnswer: s.DraftAnswer,
		FinalAnswer: s.FinalAnswer,
		Summary:     s.Summary,
		Error:       s.Error,
	}
	if s.Routing != nil {
		p.RoutingDecision = string(s.Routing.Tool)
	}
	if s.Plan != nil {
		p.Intent = s.Plan.Intent
	}
	return Event{Stage: stage, State: p}
}
