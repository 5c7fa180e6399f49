// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/content-engine/internal/httputil"
	"github.com/pdiddy/content-engine/pkg/types"
)

// Hit is one web search result.
type Hit struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	PublishedAt string  `json:"published_at"`
	Authority   float64 `json:"authority"`
	Credibility float64 `json:"credibility"`
}

type searchResponse struct {
	Results []Hit `json:"results"`
}

// WebSearchConnector queries a JSON web search API.
type WebSearchConnector struct {
	Client   *httputil.Client
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Kind returns SourceWebSearch.
func (c *WebSearchConnector) Kind() types.SourceKind { return types.SourceWebSearch }

// Name returns the connector identifier.
func (c *WebSearchConnector) Name() string { return "web_search" }

// Fetch runs the query against the search API and returns the snippets as passages.
func (c *WebSearchConnector) Fetch(ctx context.Context, q types.Query, limit int) types.SourceResult {
	return Guard(ctx, c.Kind(), c.Name(), c.Timeout, limit, func(ctx context.Context) ([]types.Passage, error) {
		hits, err := c.Search(ctx, q.Text, limit)
		if err != nil {
			return nil, err
		}
		passages := make([]types.Passage, 0, len(hits))
		for i, h := range hits {
			if h.Snippet == "" {
				continue
			}
			passages = append(passages, types.Passage{
				Content:   h.Snippet,
				Origin:    h.origin(),
				Relevance: hitRelevance(h, i, len(hits)),
			})
		}
		return passages, nil
	})
}

// Search calls the API and returns the raw hits. The deep research
// connector uses it to find seed pages.
func (c *WebSearchConnector) Search(ctx context.Context, text string, limit int) ([]Hit, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("web search endpoint not configured")
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{
		"q":     {text},
		"limit": {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing web search response: %w", err)
	}
	if len(sr.Results) > limit {
		sr.Results = sr.Results[:limit]
	}
	return sr.Results, nil
}

func (h Hit) origin() types.Origin {
	o := types.Origin{
		Title:       h.Title,
		URL:         h.URL,
		Source:      "web_search",
		Authority:   h.Authority,
		Credibility: h.Credibility,
	}
	if h.PublishedAt != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, h.PublishedAt); err == nil {
				o.PublishedAt = t
				break
			}
		}
	}
	return o
}

// hitRelevance prefers the API score when it lies in (0,1] and otherwise
// falls back to position: 1.0 for the first hit down to 0.1 for the last.
func hitRelevance(h Hit, i, total int) float64 {
	if h.Score > 0 && h.Score <= 1 {
		return h.Score
	}
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}
