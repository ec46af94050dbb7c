package pipeline

import (
	"context"
	"fmt"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// planStage derives the user's intent and an ordered step list before
// retrieval, so the generator works from an explicit decomposition instead of
// the raw query.
type planStage struct {
	llm model.ChatModel
	cfg Config
}

const planPromptFmt = `You are a planner for a research assistant. Work out what the user actually wants and the steps to answer it.

%sUser query: %s

Reply with JSON only: {"intent": "one sentence", "steps": ["...", "..."], "reasoning": "..."}`

func (p *planStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	prompt := fmt.Sprintf(planPromptFmt, conversationContext(s, p.cfg.RecentWindow), s.Query)

	plan, err := model.CompleteAs[Plan](ctx, p.llm, prompt)
	if err != nil {
		return graph.NodeResult[State]{Delta: State{Error: fmt.Sprintf("planning failed: %v", err)}}
	}
	return graph.NodeResult[State]{Delta: State{Plan: &plan}}
}
