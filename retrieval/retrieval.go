// Package retrieval bundles the evidence-gathering tools the pipeline routes
// queries to: web search, page crawling, vector similarity search, and
// arithmetic evaluation.
package retrieval

import "context"

// SearchResult is a single web search hit.
type SearchResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Document is a chunk returned from the vector store.
type Document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Searcher runs a web search and returns the top hits.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Crawler fetches a URL and returns its content as markdown text.
type Crawler interface {
	Crawl(ctx context.Context, url string) (string, error)
}

// VectorStore retrieves the k documents most similar to the query.
type VectorStore interface {
	Similar(ctx context.Context, query string, k int) ([]Document, error)
}

// Calculator evaluates an arithmetic expression.
type Calculator interface {
	Evaluate(expression string) (string, error)
}
