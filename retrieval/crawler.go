package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// maxCrawlBytes caps how much of a page body is read before conversion.
const maxCrawlBytes = 2 << 20

// HTTPCrawler fetches pages over HTTP and converts the HTML to markdown so
// the generator can cite readable text instead of raw markup.
type HTTPCrawler struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPCrawler creates a crawler with a 30s request timeout.
func NewHTTPCrawler() *HTTPCrawler {
	return &HTTPCrawler{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "knowbot/1.0",
	}
}

func (c *HTTPCrawler) Crawl(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("crawl %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawl %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawl %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBytes))
	if err != nil {
		return "", fmt.Errorf("crawl %s: %w", url, err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("crawl %s: convert: %w", url, err)
	}
	return markdown, nil
}
