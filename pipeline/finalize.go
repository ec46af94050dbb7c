package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// fallbackAnswer is surfaced when neither a final answer nor a draft exists,
// so terminal state always carries a non-empty answer even after a failure.
const fallbackAnswer = "I apologize, but I couldn't generate an answer."

// finalizeStage is the terminal stage. It settles the final answer, applies
// the session-wide translation pass when one is requested, and records the
// (user, assistant) turn pair. It is the only stage that grows chat history.
type finalizeStage struct {
	llm model.ChatModel
	cfg Config
}

func (f *finalizeStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	answer := f.settle(s)

	if lang := s.GlobalTargetLanguage; wantsGlobalTranslation(lang, s.TargetLanguage) {
		if translated, err := translateText(ctx, f.llm, answer, lang); err == nil {
			answer = translated
		}
		// A failed translation pass keeps the untranslated answer; the run
		// still succeeds.
	}

	delta := State{FinalAnswer: answer}
	if !s.TurnsRecorded {
		delta.ChatHistory = []Turn{
			{Role: "user", Content: s.Query},
			{Role: "assistant", Content: answer},
		}
		delta.TurnsRecorded = true
	}

	return graph.NodeResult[State]{Delta: delta, Route: graph.Stop()}
}

// settle picks the final answer: the translate stage's output when present,
// else the draft with its citation annotation, else the fallback string.
func (f *finalizeStage) settle(s State) string {
	if s.FinalAnswer != "" {
		return s.FinalAnswer
	}
	if s.DraftAnswer != "" {
		if len(s.Citations) > 0 {
			return fmt.Sprintf("%s\n\nCitations: %v", s.DraftAnswer, s.Citations)
		}
		return s.DraftAnswer
	}
	return fallbackAnswer
}

// wantsGlobalTranslation reports whether the session-wide target language
// requires a translation pass on top of whatever language was already
// applied.
func wantsGlobalTranslation(global, applied string) bool {
	if global == "" {
		return false
	}
	switch strings.ToLower(global) {
	case "english", "none", "en":
		return false
	}
	return !strings.EqualFold(global, applied)
}
