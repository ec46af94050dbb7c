package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// citationRe matches inline source references like [Source 2] or [Doc 2].
var citationRe = regexp.MustCompile(`\[(?:Source|Doc)\s+(\d+)\]`)

// generateStage synthesizes the draft answer. On first entry it works from
// the query, plan, and retrieved context; on re-entry through the revision
// loop it instead rewrites the existing draft against the critique, without
// recomputing retrieval.
type generateStage struct {
	llm model.ChatModel
	cfg Config
}

const generatePromptFmt = `You are a research assistant. Answer the user's query using only the numbered sources below. Cite every fact you use inline as [Source N]. If the sources do not contain the answer, say so.

%sIntent: %s

Sources:
%s
User query: %s

Answer:`

const revisePromptFmt = `Your previous answer was reviewed and needs correction. Rewrite it, fixing every listed issue. Keep the [Source N] citations accurate.

Previous answer:
%s

Issues:
%s

Correction plan: %s

Sources:
%s
User query: %s

Revised answer:`

func (g *generateStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	var prompt string
	if s.NeedsRevision && s.Critique != nil {
		prompt = fmt.Sprintf(revisePromptFmt,
			s.DraftAnswer,
			"- "+strings.Join(s.Critique.Issues, "\n- "),
			s.Critique.CorrectionPlan,
			contextBlock(s.RetrievedContext),
			s.Query,
		)
	} else {
		intent := ""
		if s.Plan != nil {
			intent = s.Plan.Intent
		}
		prompt = fmt.Sprintf(generatePromptFmt,
			conversationContext(s, g.cfg.RecentWindow),
			intent,
			contextBlock(s.RetrievedContext),
			s.Query,
		)
	}

	draft, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return graph.NodeResult[State]{Delta: State{Error: fmt.Sprintf("generation failed: %v", err)}}
	}
	draft = strings.TrimSpace(draft)

	return graph.NodeResult[State]{Delta: State{
		DraftAnswer: draft,
		Citations:   extractCitations(draft),
	}}
}

// extractCitations pulls the zero-based source indices referenced by the
// draft's inline [Source N] markers.
func extractCitations(draft string) []int {
	var refs []int
	for _, match := range citationRe.FindAllStringSubmatch(draft, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		refs = append(refs, n)
	}
	return normalizeCitations(refs)
}
