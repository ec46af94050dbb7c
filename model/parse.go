package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// CompleteAs runs the prompt and decodes the model's reply into T. Models
// routinely wrap JSON in markdown fences or emit slightly malformed output
// (trailing commas, single quotes, unquoted keys), so the reply is stripped
// and repaired before decoding.
func CompleteAs[T any](ctx context.Context, m ChatModel, prompt string) (T, error) {
	var out T

	raw, err := m.Complete(ctx, prompt)
	if err != nil {
		return out, err
	}

	if err := DecodeJSON(raw, &out); err != nil {
		return out, fmt.Errorf("model %s: %w", m.Name(), err)
	}
	return out, nil
}

// DecodeJSON extracts a JSON document from raw model text and unmarshals it
// into v, repairing malformed JSON when a strict parse fails.
func DecodeJSON(raw string, v interface{}) error {
	text := StripFences(raw)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StripFences removes a surrounding markdown code fence (``` or ```json) from
// model output, returning the inner text trimmed.
func StripFences(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", empty).
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
