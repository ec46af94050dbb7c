package pipeline

import (
	"context"
	"strings"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// compactStage maintains a rolling summary of the conversation so prompts
// stay bounded as history grows.
//
// Below CompactionThreshold turns it is a no-op. At or above it, all but the
// newest KeepRecent turns are summarized together with the previous summary.
// At or above HierarchicalThreshold the older turns are first split into
// ChunkSize chunks summarized independently, and the chunk summaries are then
// folded with the previous summary into one combined summary, so the work per
// run stays proportional to the chunk count rather than total history length.
//
// Summarization is best-effort: if the model call fails the previous summary
// is kept and the run continues, since the answer never depends on the
// summary being fresh.
type compactStage struct {
	llm model.ChatModel
	cfg Config
}

func (c *compactStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if len(s.ChatHistory) < c.cfg.CompactionThreshold {
		return graph.NodeResult[State]{}
	}

	keep := c.cfg.KeepRecent
	if keep >= len(s.ChatHistory) {
		// A threshold below the keep window would slice out of range.
		keep = 0
	}
	older := s.ChatHistory[:len(s.ChatHistory)-keep]

	var summary string
	var err error
	if len(s.ChatHistory) >= c.cfg.HierarchicalThreshold {
		summary, err = c.hierarchical(ctx, s.Summary, older)
	} else {
		summary, err = c.fold(ctx, s.Summary, renderTurns(older))
	}
	if err != nil {
		return graph.NodeResult[State]{}
	}

	return graph.NodeResult[State]{Delta: State{Summary: summary}}
}

// fold combines the previous summary and a rendered transcript into one
// updated summary.
func (c *compactStage) fold(ctx context.Context, prevSummary, transcript string) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize the following conversation into a concise summary that preserves all facts, decisions, and open questions. Reply with the summary text only.\n\n")
	if prevSummary != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(prevSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	b.WriteString(transcript)

	summary, err := c.llm.Complete(ctx, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// hierarchical summarizes older turns chunk by chunk, then folds the chunk
// summaries with the previous summary.
func (c *compactStage) hierarchical(ctx context.Context, prevSummary string, older []Turn) (string, error) {
	var parts []string
	for start := 0; start < len(older); start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > len(older) {
			end = len(older)
		}
		part, err := c.fold(ctx, "", renderTurns(older[start:end]))
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return c.fold(ctx, prevSummary, strings.Join(parts, "\n\n"))
}
