// Package knowledge queries the external knowledge-base search service.
package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
)

// Snippet is one knowledge-base hit.
type Snippet struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []Snippet `json:"results"`
}

// Client talks to the knowledge-base search endpoint. Searches are best
// effort: the chat path logs and ignores failures rather than failing the
// turn.
type Client struct {
	baseURL string
	limit   int
	http    *http.Client
}

// NewClient creates a knowledge client. limit caps hits per query; zero
// selects 3.
func NewClient(baseURL string, timeout time.Duration, limit int) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if limit <= 0 {
		limit = 3
	}
	return &Client{
		baseURL: baseURL,
		limit:   limit,
		http:    &http.Client{Timeout: timeout},
	}
}

// Search runs one query and returns the matching snippets.
func (c *Client) Search(ctx context.Context, query string) ([]Snippet, error) {
	u := fmt.Sprintf("%s/api/search?q=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), c.limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Results, nil
}
