package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/model"
)

// routeStage classifies the query into a RoutingDecision. It always produces
// a usable decision: out-of-enum tools, a crawl without a valid URL, or a
// missing search query are all repaired locally instead of failing the run.
type routeStage struct {
	llm model.ChatModel
	cfg Config
}

type routeReply struct {
	Tool           string `json:"tool"`
	Reasoning      string `json:"reasoning"`
	TargetURL      string `json:"target_url"`
	SearchQuery    string `json:"search_query"`
	TargetLanguage string `json:"target_language"`
}

const routePromptFmt = `You are a routing classifier for a research assistant. Pick exactly one tool for the user's query:
- "web_search": general questions needing current or factual information (set "search_query" to an effective search phrase)
- "targeted_crawl": the query names a specific URL to read or summarize (set "target_url")
- "internal_retrieval": questions about the internal knowledge base
- "calculator": arithmetic to evaluate (set "search_query" to the bare expression)
- "translate": explicit requests to translate text (set "target_language")

%sUser query: %s

Reply with JSON only: {"tool": "...", "reasoning": "...", "target_url": "", "search_query": "", "target_language": ""}`

func (r *routeStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	prompt := fmt.Sprintf(routePromptFmt, conversationContext(s, r.cfg.RecentWindow), s.Query)

	reply, err := model.CompleteAs[routeReply](ctx, r.llm, prompt)
	if err != nil {
		return graph.NodeResult[State]{Delta: State{Error: fmt.Sprintf("routing failed: %v", err)}}
	}

	decision := r.repair(reply, s.Query)
	return graph.NodeResult[State]{Delta: State{
		Routing:        decision,
		TargetLanguage: decision.TargetLanguage,
	}}
}

// repair coerces a raw classification into a valid decision.
func (r *routeStage) repair(reply routeReply, query string) *RoutingDecision {
	decision := &RoutingDecision{
		Tool:           Tool(strings.ToLower(strings.TrimSpace(reply.Tool))),
		Reasoning:      reply.Reasoning,
		TargetURL:      strings.TrimSpace(reply.TargetURL),
		SearchQuery:    strings.TrimSpace(reply.SearchQuery),
		TargetLanguage: strings.TrimSpace(reply.TargetLanguage),
	}

	if !validTools[decision.Tool] {
		decision.Tool = DefaultTool
	}
	if decision.Tool == ToolTargetedCrawl && !validURL(decision.TargetURL) {
		decision.Tool = DefaultTool
	}
	if decision.SearchQuery == "" {
		decision.SearchQuery = query
	}
	if decision.Tool == ToolTranslate && decision.TargetLanguage == "" {
		decision.TargetLanguage = r.cfg.DefaultLanguage
	}
	return decision
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
