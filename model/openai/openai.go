// Package openai adapts the official OpenAI Go SDK to the model.ChatModel
// interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Model is a ChatModel backed by the OpenAI chat completions API.
type Model struct {
	client      *openai.Client
	model       string
	temperature float64
}

// Option configures a Model.
type Option func(*Model)

// WithTemperature sets the sampling temperature (default 0.7).
func WithTemperature(t float64) Option {
	return func(m *Model) { m.temperature = t }
}

// New creates an OpenAI-backed chat model. The model name is any chat
// completions model, e.g. "gpt-4o-mini".
func New(apiKey, model string, opts ...Option) *Model {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	m := &Model{
		client:      &client,
		model:       model,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(m.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return completion.Choices[0].Message.Content, nil
}

func (m *Model) Name() string { return m.model }
