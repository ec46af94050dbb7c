// Package pipeline implements the staged question-answering workflow: a query
// is compacted against prior history, routed to a tool, planned, grounded with
// retrieved context, answered, reviewed with a bounded revision loop, and
// finalized. Stages run on the graph engine with one shared State record.
package pipeline

import (
	"sort"
)

// Tool identifies which retrieval capability a query is routed to. Tool names
// are stable wire identifiers.
type Tool string

const (
	ToolWebSearch         Tool = "web_search"
	ToolTargetedCrawl     Tool = "targeted_crawl"
	ToolInternalRetrieval Tool = "internal_retrieval"
	ToolCalculator        Tool = "calculator"
	ToolTranslate         Tool = "translate"
)

// DefaultTool is substituted when routing produces an unknown or unusable
// classification.
const DefaultTool = ToolWebSearch

// validTools is the closed set of routable tools.
var validTools = map[Tool]bool{
	ToolWebSearch:         true,
	ToolTargetedCrawl:     true,
	ToolInternalRetrieval: true,
	ToolCalculator:        true,
	ToolTranslate:         true,
}

// Turn is one chat message in a session's history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RoutingDecision records which tool the router selected and the payload
// fields relevant to that tool.
type RoutingDecision struct {
	Tool           Tool   `json:"tool"`
	Reasoning      string `json:"reasoning,omitempty"`
	TargetURL      string `json:"target_url,omitempty"`
	SearchQuery    string `json:"search_query,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// Plan is the planner's decomposition of the query.
type Plan struct {
	Intent    string   `json:"intent"`
	Steps     []string `json:"steps,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// Critique is the reviewer's verdict on a draft answer.
type Critique struct {
	NeedsCorrection bool     `json:"needs_correction"`
	Issues          []string `json:"issues,omitempty"`
	CorrectionPlan  string   `json:"correction_plan,omitempty"`
}

// State is the record threaded through every stage. Stages receive it by
// value and return only the fields they change; Reduce merges those partial
// updates.
type State struct {
	Query                string           `json:"query,omitempty"`
	ChatHistory          []Turn           `json:"chat_history,omitempty"`
	Summary              string           `json:"summary,omitempty"`
	Routing              *RoutingDecision `json:"routing_decision,omitempty"`
	Plan                 *Plan            `json:"plan,omitempty"`
	RetrievedContext     []string         `json:"retrieved_context,omitempty"`
	DraftAnswer          string           `json:"draft_answer,omitempty"`
	Critique             *Critique        `json:"critique,omitempty"`
	NeedsRevision        bool             `json:"needs_revision,omitempty"`
	RevisionCount        int              `json:"revision_count,omitempty"`
	FinalAnswer          string           `json:"final_answer,omitempty"`
	Citations            []int            `json:"citations,omitempty"`
	TargetLanguage       string           `json:"target_language,omitempty"`
	GlobalTargetLanguage string           `json:"global_target_language,omitempty"`
	Error                string           `json:"error,omitempty"`

	// TurnsRecorded guards the history append so re-finalizing an already
	// finalized run never duplicates the turn pair. Cleared when a new run
	// is seeded.
	TurnsRecorded bool `json:"turns_recorded,omitempty"`
}

// Reduce merges a stage's partial update into the previous state.
//
// Merge rules per field:
//   - Query is set once and immutable after.
//   - ChatHistory is append-only: delta turns are concatenated, never
//     replacing prior turns.
//   - Error is first-write-wins; a later stage cannot clear it.
//   - NeedsRevision is taken from the delta only when the delta carries a
//     Critique, since the critique stage is its sole writer and must be able
//     to reset it to false.
//   - RevisionCount is monotonically non-decreasing (max of both sides).
//   - Slices and pointers replace wholesale when present; strings replace
//     when non-empty.
func Reduce(prev, delta State) State {
	out := prev

	if out.Query == "" {
		out.Query = delta.Query
	}
	if len(delta.ChatHistory) > 0 {
		history := make([]Turn, 0, len(prev.ChatHistory)+len(delta.ChatHistory))
		history = append(history, prev.ChatHistory...)
		history = append(history, delta.ChatHistory...)
		out.ChatHistory = history
	}
	if delta.Summary != "" {
		out.Summary = delta.Summary
	}
	if delta.Routing != nil {
		out.Routing = delta.Routing
	}
	if delta.Plan != nil {
		out.Plan = delta.Plan
	}
	if delta.RetrievedContext != nil {
		out.RetrievedContext = delta.RetrievedContext
	}
	if delta.DraftAnswer != "" {
		out.DraftAnswer = delta.DraftAnswer
	}
	if delta.Critique != nil {
		out.Critique = delta.Critique
		out.NeedsRevision = delta.NeedsRevision
	}
	if delta.RevisionCount > out.RevisionCount {
		out.RevisionCount = delta.RevisionCount
	}
	if delta.FinalAnswer != "" {
		out.FinalAnswer = delta.FinalAnswer
	}
	if delta.Citations != nil {
		out.Citations = delta.Citations
	}
	if delta.TargetLanguage != "" {
		out.TargetLanguage = delta.TargetLanguage
	}
	if delta.GlobalTargetLanguage != "" {
		out.GlobalTargetLanguage = delta.GlobalTargetLanguage
	}
	if out.Error == "" {
		out.Error = delta.Error
	}
	if delta.TurnsRecorded {
		out.TurnsRecorded = true
	}

	return out
}

// seedRun prepares a persisted session state for a fresh run: conversation
// fields (history, summary) carry over, everything run-scoped is reset.
func seedRun(prev State, query, globalTargetLanguage string) State {
	return State{
		Query:                query,
		ChatHistory:          prev.ChatHistory,
		Summary:              prev.Summary,
		GlobalTargetLanguage: globalTargetLanguage,
	}
}

// normalizeCitations converts one-based source references into a sorted,
// deduplicated zero-based index list.
func normalizeCitations(refs []int) []int {
	seen := make(map[int]bool)
	out := make([]int, 0, len(refs))
	for _, n := range refs {
		idx := n - 1
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
