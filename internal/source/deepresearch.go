// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/internal/httputil"
	"github.com/pdiddy/content-engine/pkg/types"
)

// maxPageBytes caps how much of a page body is read.
const maxPageBytes = 2 << 20

// minParagraphRunes drops navigation fragments and captions.
const minParagraphRunes = 40

// Seeder finds pages worth reading for a query. *WebSearchConnector implements it.
type Seeder interface {
	Search(ctx context.Context, text string, limit int) ([]Hit, error)
}

// DeepResearchConnector finds seed pages through a Seeder, fetches them
// concurrently, and keeps the paragraphs most related to the query.
type DeepResearchConnector struct {
	Seeder            Seeder
	Client            *httputil.Client
	MaxPages          int
	Concurrency       int
	ParagraphsPerPage int
	Timeout           time.Duration
}

// Kind returns SourceDeepResearch.
func (c *DeepResearchConnector) Kind() types.SourceKind { return types.SourceDeepResearch }

// Name returns the connector identifier.
func (c *DeepResearchConnector) Name() string { return "deep_research" }

// Fetch reads the seed pages and returns their most relevant paragraphs.
// The call fails only when no page could be read.
func (c *DeepResearchConnector) Fetch(ctx context.Context, q types.Query, limit int) types.SourceResult {
	return Guard(ctx, c.Kind(), c.Name(), c.Timeout, limit, func(ctx context.Context) ([]types.Passage, error) {
		maxPages := c.MaxPages
		if maxPages <= 0 {
			maxPages = 3
		}
		seeds, err := c.Seeder.Search(ctx, q.Text, maxPages)
		if err != nil {
			return nil, fmt.Errorf("finding seed pages: %w", err)
		}
		if len(seeds) == 0 {
			return nil, fmt.Errorf("no seed pages for query")
		}

		queryTokens := classify.Tokens(q.Text)
		perPage := make([][]types.Passage, len(seeds))

		var (
			mu       sync.Mutex
			failures []string
		)

		g, gctx := errgroup.WithContext(ctx)
		conc := c.Concurrency
		if conc <= 0 {
			conc = 3
		}
		g.SetLimit(conc)

		for i, seed := range seeds {
			g.Go(func() error {
				paragraphs, err := c.readPage(gctx, seed.URL)
				if err != nil {
					mu.Lock()
					failures = append(failures, fmt.Sprintf("%s: %v", seed.URL, err))
					mu.Unlock()
					return nil
				}
				perPage[i] = rankParagraphs(paragraphs, queryTokens, seed, c.ParagraphsPerPage)
				return nil
			})
		}
		g.Wait()

		if len(failures) == len(seeds) {
			return nil, fmt.Errorf("all %d pages failed: %s", len(seeds), strings.Join(failures, "; "))
		}

		// Seed order is kept so the result does not depend on fetch timing.
		var passages []types.Passage
		for _, p := range perPage {
			passages = append(passages, p...)
		}
		return passages, nil
	})
}

func (c *DeepResearchConnector) readPage(ctx context.Context, pageURL string) ([]string, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("seed has no url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.Client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return ExtractParagraphs(io.LimitReader(resp.Body, maxPageBytes))
}

// rankParagraphs scores each paragraph by the share of query tokens it
// contains and keeps the best n with a non-zero score.
func rankParagraphs(paragraphs []string, queryTokens map[string]struct{}, seed Hit, n int) []types.Passage {
	if n <= 0 {
		n = 2
	}
	type scored struct {
		text  string
		score float64
		index int
	}
	var candidates []scored
	for i, p := range paragraphs {
		score := overlap(queryTokens, classify.Tokens(p))
		if score == 0 {
			continue
		}
		candidates = append(candidates, scored{text: p, score: score, index: i})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	origin := seed.origin()
	origin.Source = "deep_research"
	out := make([]types.Passage, len(candidates))
	for i, cand := range candidates {
		out[i] = types.Passage{Content: cand.text, Origin: origin, Relevance: cand.score}
	}
	return out
}

func overlap(query, text map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := text[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// skipElements hold no readable body text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"header": true, "footer": true, "aside": true, "form": true, "svg": true,
}

// blockElements end a paragraph.
var blockElements = map[string]bool{
	"p": true, "li": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"blockquote": true, "td": true, "div": true, "section": true, "article": true,
}

// ExtractParagraphs returns the visible text blocks of an HTML document,
// skipping scripts, styles, and page chrome. Blocks shorter than a short
// sentence are dropped.
func ExtractParagraphs(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var (
		out []string
		buf strings.Builder
	)
	flush := func() {
		text := strings.Join(strings.Fields(buf.String()), " ")
		buf.Reset()
		if len([]rune(text)) >= minParagraphRunes {
			out = append(out, text)
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		isBlock := n.Type == html.ElementNode && blockElements[n.Data]
		if isBlock {
			flush()
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if isBlock {
			flush()
		}
	}
	walk(doc)
	flush()
	return out, nil
}
