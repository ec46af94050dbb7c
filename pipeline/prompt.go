package pipeline

import (
	"fmt"
	"strings"
)

// conversationContext renders the summary plus the most recent turns for
// inclusion in a stage prompt. Returns "" when the session has no history.
func conversationContext(s State, recentWindow int) string {
	var b strings.Builder

	if s.Summary != "" {
		b.WriteString("Conversation summary so far:\n")
		b.WriteString(s.Summary)
		b.WriteString("\n\n")
	}

	recent := s.ChatHistory
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	return b.String()
}

// contextBlock numbers the retrieved chunks for citation, one-based so the
// model can reference them as [Source N].
func contextBlock(chunks []string) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[Source %d] %s\n\n", i+1, chunk)
	}
	return b.String()
}

// renderTurns prints turns one per line for summarization prompts.
func renderTurns(turns []Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	return b.String()
}
