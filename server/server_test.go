package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/knowbot-ai/knowbot/graph/store"
	"github.com/knowbot-ai/knowbot/model"
	"github.com/knowbot-ai/knowbot/pipeline"
	"github.com/knowbot-ai/knowbot/retrieval"
)

const (
	routeJSON = `{"tool": "calculator", "search_query": "12*8", "reasoning": "math"}`
	planJSON  = `{"intent": "compute", "steps": ["evaluate"], "reasoning": ""}`
	okJSON    = `{"needs_correction": false}`
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	llm := model.NewMock(routeJSON, planJSON, "It is 96 [Source 1].", okJSON)
	p, err := pipeline.New(pipeline.Config{}, pipeline.Deps{
		Model:      llm,
		Store:      store.NewMemStore[pipeline.State](),
		Calculator: retrieval.NewExprCalculator(),
	})
	if err != nil {
		t.Fatalf("pipeline.New() error = %v", err)
	}
	return New(p, nil, nil)
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test(%s) error = %v", path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &decoded)
	return resp.StatusCode, decoded
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestQueryEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, body := postJSON(t, s, "/api/query", map[string]string{
		"query":      "What is 12*8?",
		"session_id": "s1",
	})
	if status != 200 {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	answer, _ := body["final_answer"].(string)
	if !strings.Contains(answer, "96") {
		t.Errorf("final_answer = %q, want it to contain 96", answer)
	}
	if body["routing_decision"] != "calculator" {
		t.Errorf("routing_decision = %v, want calculator", body["routing_decision"])
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing query", body: map[string]string{"session_id": "s1"}},
		{name: "missing session", body: map[string]string{"query": "q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := postJSON(t, s, "/api/query", tt.body)
			if status != 400 {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Run once to create the session.
	status, _ := postJSON(t, s, "/api/query", map[string]string{
		"query":      "What is 12*8?",
		"session_id": "s1",
	})
	if status != 200 {
		t.Fatalf("seed run status = %d", status)
	}

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/sessions/s1", nil))
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("get session status = %d, want 200", resp.StatusCode)
	}
	var session struct {
		ChatHistory []pipeline.Turn `json:"chat_history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	resp.Body.Close()
	if len(session.ChatHistory) != 2 {
		t.Errorf("chat_history = %d turns, want 2", len(session.ChatHistory))
	}

	// Forget it, then it is gone.
	resp, err = s.App().Test(httptest.NewRequest("DELETE", "/api/sessions/s1", nil))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("delete session: %v, status %d", err, resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/sessions/s1", nil))
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("get after forget status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamEndpoint(t *testing.T) {
	s := newTestServer(t)

	payload, _ := json.Marshal(map[string]string{
		"query":      "What is 12*8?",
		"session_id": "s1",
	})
	req := httptest.NewRequest("POST", "/api/stream", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want SSE", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	text := string(body)

	for _, want := range []string{`"type":"start"`, `"type":"stage"`, `"stage":"finalize"`, `"type":"complete"`} {
		if !strings.Contains(text, want) {
			t.Errorf("stream missing %s in:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "96") {
		t.Errorf("stream missing final answer content")
	}
}
