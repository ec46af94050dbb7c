package model

import (
	"context"
	"sync"
)

// Mock is a scripted ChatModel for tests. Replies are returned in order; the
// last reply repeats once the script is exhausted. A nil Err field means every
// call succeeds.
type Mock struct {
	mu      sync.Mutex
	Replies []string
	Err     error
	Prompts []string
	calls   int
}

// NewMock returns a Mock that answers with the given replies in sequence.
func NewMock(replies ...string) *Mock {
	return &Mock{Replies: replies}
}

func (m *Mock) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	idx := m.calls - 1
	if idx >= len(m.Replies) {
		idx = len(m.Replies) - 1
	}
	return m.Replies[idx], nil
}

func (m *Mock) Name() string { return "mock" }

// Calls reports how many times Complete was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEmbedder returns a fixed vector for every input.
type MockEmbedder struct {
	Vector []float32
	Err    error
}

func (m *MockEmbedder) Embed(context.Context, string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
