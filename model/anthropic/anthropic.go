// Package anthropic adapts the official Anthropic Go SDK to the
// model.ChatModel interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Model is a ChatModel backed by the Anthropic messages API.
type Model struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// Option configures a Model.
type Option func(*Model)

// WithMaxTokens sets the completion token ceiling (default 4096).
func WithMaxTokens(n int64) Option {
	return func(m *Model) { m.maxTokens = n }
}

// New creates an Anthropic-backed chat model, e.g. with
// "claude-sonnet-4-5".
func New(apiKey, model string, opts ...Option) *Model {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	m := &Model{
		client:    &client,
		model:     model,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (m *Model) Name() string { return m.model }
