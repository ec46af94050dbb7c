package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// translateStage produces the final answer directly when the router selected
// the translate tool, bypassing generation and critique. The text to
// translate is the draft answer when one exists, else the retrieved context,
// else the query itself.
type translateStage struct {
	llm model.ChatModel
	cfg Config
}

func (t *translateStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	lang := s.TargetLanguage
	if lang == "" && s.Routing != nil {
		lang = s.Routing.TargetLanguage
	}
	if lang == "" {
		lang = t.cfg.DefaultLanguage
	}

	translated, err := translateText(ctx, t.llm, t.sourceText(s), lang)
	if err != nil {
		return graph.NodeResult[State]{Delta: State{Error: fmt.Sprintf("translation failed: %v", err)}}
	}

	return graph.NodeResult[State]{Delta: State{
		FinalAnswer:    translated,
		TargetLanguage: lang,
	}}
}

func (t *translateStage) sourceText(s State) string {
	if s.DraftAnswer != "" {
		return s.DraftAnswer
	}
	if len(s.RetrievedContext) > 0 && s.Routing != nil && s.Routing.Tool != ToolTranslate {
		return strings.Join(s.RetrievedContext, "\n\n")
	}
	return s.Query
}

// translateText is the shared translation call, also used by the finalize
// stage for the whole-answer translation pass.
func translateText(ctx context.Context, llm model.ChatModel, text, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text to %s. Preserve meaning, tone, and formatting. Reply with the translation only.\n\n%s",
		language, text,
	)
	translated, err := llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(translated), nil
}
