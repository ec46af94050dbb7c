// Package google adapts the Gemini SDK to the model.ChatModel and
// model.Embedder interfaces.
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Model is a ChatModel backed by the Gemini generateContent API.
type Model struct {
	client *genai.Client
	model  string
}

// New creates a Gemini-backed chat model, e.g. with "gemini-2.0-flash".
func New(ctx context.Context, apiKey, model string) (*Model, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}
	return &Model{client: client, model: model}, nil
}

func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.GenerativeModel(m.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("google completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("google completion: empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

func (m *Model) Name() string { return m.model }

// Close releases the underlying gRPC connection.
func (m *Model) Close() error { return m.client.Close() }

// Embedder produces Gemini embeddings for vector retrieval.
type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates a Gemini embedder; "text-embedding-004" produces
// 768-dimensional vectors.
func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}
	return &Embedder{client: client, model: model}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("google embedding: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("google embedding: empty response")
	}
	return res.Embedding.Values, nil
}

func (e *Embedder) Close() error { return e.client.Close() }
