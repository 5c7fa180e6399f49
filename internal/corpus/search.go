// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Search runs an FTS5 keyword query and returns up to limit passages ranked
// by bm25. Relevance is position based: 1.0 for the best hit, falling
// linearly to 0.1 for the last.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]types.Passage, error) {
	match := ftsQuery(text)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+`
		FROM passages_fts
		JOIN passages p ON p.rowid = passages_fts.rowid
		WHERE passages_fts MATCH ?
		ORDER BY passages_fts.rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	passages := make([]types.Passage, len(entries))
	for i, e := range entries {
		passages[i] = types.Passage{
			Content:   e.Content,
			Origin:    e.origin(),
			Relevance: positionRelevance(i, len(entries)),
		}
	}
	return passages, nil
}

// Nearest returns up to limit passages whose stored embedding is most
// similar to vec. Passages below minSimilarity are dropped; relevance is the
// cosine similarity clamped to [0,1].
func (s *Store) Nearest(ctx context.Context, vec []float32, limit int, minSimilarity float64) ([]types.Passage, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM passages p WHERE p.embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		entry Entry
		sim   float64
	}
	var hits []scored
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		sim := Cosine(vec, e.Embedding)
		if sim < minSimilarity {
			continue
		}
		hits = append(hits, scored{entry: e, sim: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].entry.ID < hits[j].entry.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	passages := make([]types.Passage, len(hits))
	for i, h := range hits {
		passages[i] = types.Passage{
			Content:   h.entry.Content,
			Origin:    h.entry.origin(),
			Relevance: math.Max(0, math.Min(1, h.sim)),
		}
	}
	return passages, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when the vectors
// differ in length or either has zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ftsQuery turns free text into an FTS5 expression of quoted terms joined
// by OR, so user punctuation never reaches the FTS5 parser.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if len([]rune(w)) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func positionRelevance(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}
