package pipeline

import (
	"context"
	"fmt"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// criticStage reviews the draft against the retrieved context and decides
// whether to send it back for revision.
//
// A revision is requested only while the revision count is below the ceiling,
// which is what bounds the generate/critique cycle. A reviewer failure is
// deliberately not a run failure: the draft is simply accepted as-is.
type criticStage struct {
	llm model.ChatModel
	cfg Config
}

const criticPromptFmt = `You are a strict reviewer. Check the draft answer against the sources for factual errors, unsupported claims, wrong citations, and failure to address the query.

Sources:
%s
User query: %s

Draft answer:
%s

Reply with JSON only: {"needs_correction": true/false, "issues": ["..."], "correction_plan": "..."}`

func (c *criticStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	prompt := fmt.Sprintf(criticPromptFmt, contextBlock(s.RetrievedContext), s.Query, s.DraftAnswer)

	critique, err := model.CompleteAs[Critique](ctx, c.llm, prompt)
	if err != nil {
		// Accept the draft rather than fail the run.
		return graph.NodeResult[State]{Delta: State{
			Critique:      &Critique{NeedsCorrection: false},
			NeedsRevision: false,
		}}
	}

	needsRevision := critique.NeedsCorrection && s.RevisionCount < c.cfg.RevisionLimit
	revisionCount := s.RevisionCount
	if needsRevision {
		revisionCount++
	}

	return graph.NodeResult[State]{Delta: State{
		Critique:      &critique,
		NeedsRevision: needsRevision,
		RevisionCount: revisionCount,
	}}
}
