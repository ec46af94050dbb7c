// Package model defines the chat-model abstraction the pipeline stages talk
// to, plus helpers for coercing model output into typed values. Provider
// adapters live in the subpackages openai, anthropic, and google.
package model

import "context"

// ChatModel is a single-turn text completion interface. Implementations send
// one prompt and return the raw assistant text.
type ChatModel interface {
	// Complete sends the prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name returns the configured model identifier, e.g. "gpt-4o-mini".
	Name() string
}

// Embedder converts text into a dense vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
