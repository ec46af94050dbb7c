package pipeline

import (
	"context"
	"fmt"

	"github.com/knowbot-ai/knowbot/graph"
	"github.com/knowbot-ai/knowbot/retrieval"
)

// retrieveStage executes the routed tool and populates the retrieved context.
// A tool that runs but finds nothing still yields a deterministic placeholder
// entry, so downstream stages can tell "found nothing" from "not yet run".
type retrieveStage struct {
	searcher   retrieval.Searcher
	crawler    retrieval.Crawler
	vectors    retrieval.VectorStore
	calculator retrieval.Calculator
	cfg        Config
}

func (r *retrieveStage) Run(ctx context.Context, s State) graph.NodeResult[State] {
	if s.Routing == nil {
		return graph.NodeResult[State]{Delta: State{Error: "retrieval: no routing decision"}}
	}

	chunks, err := r.retrieve(ctx, s)
	if err != nil {
		return graph.NodeResult[State]{Delta: State{Error: fmt.Sprintf("retrieval failed: %v", err)}}
	}
	return graph.NodeResult[State]{Delta: State{RetrievedContext: chunks}}
}

func (r *retrieveStage) retrieve(ctx context.Context, s State) ([]string, error) {
	switch s.Routing.Tool {
	case ToolWebSearch:
		if r.searcher == nil {
			return nil, fmt.Errorf("web search is not configured")
		}
		results, err := r.searcher.Search(ctx, s.Routing.SearchQuery, r.cfg.SearchResults)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return []string{"No search results found."}, nil
		}
		chunks := make([]string, 0, len(results))
		for _, hit := range results {
			chunks = append(chunks, fmt.Sprintf("%s\nSource: %s", hit.Content, hit.URL))
		}
		return chunks, nil

	case ToolTargetedCrawl:
		if r.crawler == nil {
			return nil, fmt.Errorf("crawling is not configured")
		}
		// Page content is passed through verbatim, even when empty the
		// entry itself is still present.
		content, err := r.crawler.Crawl(ctx, s.Routing.TargetURL)
		if err != nil {
			return nil, err
		}
		return []string{content}, nil

	case ToolInternalRetrieval:
		if r.vectors == nil {
			return nil, fmt.Errorf("internal retrieval is not configured")
		}
		docs, err := r.vectors.Similar(ctx, s.Routing.SearchQuery, r.cfg.VectorTopK)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return []string{"No matching documents found."}, nil
		}
		chunks := make([]string, 0, len(docs))
		for _, doc := range docs {
			chunks = append(chunks, fmt.Sprintf("%s\nSource: %s", doc.Text, doc.Source))
		}
		return chunks, nil

	case ToolCalculator:
		if r.calculator == nil {
			return nil, fmt.Errorf("calculator is not configured")
		}
		result, err := r.calculator.Evaluate(s.Routing.SearchQuery)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("Calculation result: %s", result)}, nil

	case ToolTranslate:
		// No evidence gathering; the translate stage works straight from
		// the query or draft.
		return []string{"No retrieval performed for translation requests."}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", s.Routing.Tool)
	}
}
