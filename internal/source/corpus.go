// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex finds passages by embedding similarity. *corpus.Store implements it.
type VectorIndex interface {
	Nearest(ctx context.Context, vec []float32, limit int, minSimilarity float64) ([]types.Passage, error)
}

// KeywordIndex finds passages by full-text search. *corpus.Store implements it.
type KeywordIndex interface {
	Search(ctx context.Context, text string, limit int) ([]types.Passage, error)
}

// VectorConnector embeds the query and searches the corpus by cosine similarity.
type VectorConnector struct {
	Embedder      Embedder
	Index         VectorIndex
	MinSimilarity float64
	Timeout       time.Duration
}

// Kind returns SourceVector.
func (c *VectorConnector) Kind() types.SourceKind { return types.SourceVector }

// Name returns the connector identifier.
func (c *VectorConnector) Name() string { return "vector" }

// Fetch returns the corpus passages nearest to the query embedding.
func (c *VectorConnector) Fetch(ctx context.Context, q types.Query, limit int) types.SourceResult {
	return Guard(ctx, c.Kind(), c.Name(), c.Timeout, limit, func(ctx context.Context) ([]types.Passage, error) {
		vec, err := c.Embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		return c.Index.Nearest(ctx, vec, limit, c.MinSimilarity)
	})
}

// KeywordConnector runs full-text search over the corpus. It reports the
// web search kind so offline deployments can fill that slot.
type KeywordConnector struct {
	Index   KeywordIndex
	Timeout time.Duration
}

// Kind returns SourceWebSearch.
func (c *KeywordConnector) Kind() types.SourceKind { return types.SourceWebSearch }

// Name returns the connector identifier.
func (c *KeywordConnector) Name() string { return "keyword" }

// Fetch returns the best full-text matches for the query.
func (c *KeywordConnector) Fetch(ctx context.Context, q types.Query, limit int) types.SourceResult {
	return Guard(ctx, c.Kind(), c.Name(), c.Timeout, limit, func(ctx context.Context) ([]types.Passage, error) {
		return c.Index.Search(ctx, q.Text, limit)
	})
}
