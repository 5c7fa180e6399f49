// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores generated documents under content-addressed keys
// with a TTL derived from query type, confidence, and requester expertise.
// The cache fails open: a backend error is logged and treated as a miss or
// a skipped write, never returned to the pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/pkg/types"
)

// TTL bounds in hours.
const (
	MinTTLHours = 1
	MaxTTLHours = 168
)

// Backend is a key/value store for cache entries. Implementations must be
// safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) (types.CacheEntry, bool, error)
	Put(ctx context.Context, entry types.CacheEntry) error
	Delete(ctx context.Context, key string) error

	// Purge removes entries that expire at or before cutoff and returns
	// how many were removed.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
	Len(ctx context.Context) (int, error)
}

// Stats reports cache activity since construction.
type Stats struct {
	Hits    int64   `json:"hits" yaml:"hits"`
	Misses  int64   `json:"misses" yaml:"misses"`
	Errors  int64   `json:"errors" yaml:"errors"`
	Writes  int64   `json:"writes" yaml:"writes"`
	HitRate float64 `json:"hit_rate" yaml:"hit_rate"`
	Entries int     `json:"entries" yaml:"entries"`
}

// Cache wraps a Backend with key derivation, TTL policy, expiry, and
// fail-open error handling. A Cache with a nil backend is disabled: every
// Get misses and every Put is skipped.
type Cache struct {
	backend Backend
	logger  *slog.Logger

	// Now supplies the current time. Nil means time.Now.
	Now func() time.Time

	hits, misses, errs, writes atomic.Int64
}

// New returns a Cache over backend. A nil logger discards warnings.
func New(backend Backend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{backend: backend, logger: logger}
}

// Enabled reports whether the cache has a backend.
func (c *Cache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Key derives the cache key for q. The key covers the normalized text,
// type, expertise, and the sorted extra context pairs; nothing else. Each
// field is length-prefixed so no two field lists hash the same input.
func Key(q types.Query, extra map[string]string) string {
	parts := []string{classify.Normalize(q.Text), string(q.Type), string(q.Expertise)}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k, extra[k])
	}

	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return "ce_" + hex.EncodeToString(h.Sum(nil))
}

// baseTTL is the TTL in hours before multipliers. News goes stale fastest;
// promotional terms change on a weekly cadence.
func baseTTL(t types.QueryType) float64 {
	switch t {
	case types.QueryNews:
		return 2
	case types.QueryPromotional:
		return 168
	case types.QueryFactual:
		return 24
	case types.QueryComparison:
		return 12
	case types.QueryTutorial:
		return 48
	case types.QueryReview:
		return 6
	case types.QueryTechnical:
		return 72
	default:
		return 24
	}
}

func confidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 0.9:
		return 1.5
	case confidence >= 0.8:
		return 1.2
	case confidence >= 0.7:
		return 1.0
	case confidence >= 0.6:
		return 0.8
	default:
		return 0.5
	}
}

func expertiseMultiplier(e types.Expertise) float64 {
	switch e {
	case types.ExpertiseNovice:
		return 1.2
	case types.ExpertiseBeginner:
		return 1.1
	case types.ExpertiseAdvanced:
		return 0.9
	case types.ExpertiseExpert:
		return 0.8
	default:
		return 1.0
	}
}

// TTL returns the entry lifetime in hours, clamped to [MinTTLHours, MaxTTLHours].
func TTL(t types.QueryType, confidence float64, e types.Expertise) int {
	hours := int(baseTTL(t) * confidenceMultiplier(confidence) * expertiseMultiplier(e))
	if hours < MinTTLHours {
		return MinTTLHours
	}
	if hours > MaxTTLHours {
		return MaxTTLHours
	}
	return hours
}

// Get returns the live entry for key. Expired entries and backend failures
// are misses.
func (c *Cache) Get(ctx context.Context, key string) (types.CacheEntry, bool) {
	if !c.Enabled() {
		return types.CacheEntry{}, false
	}
	entry, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.errs.Add(1)
		c.misses.Add(1)
		c.logger.Warn("cache get failed, continuing uncached", "key", key, "error", err)
		return types.CacheEntry{}, false
	}
	if !ok {
		c.misses.Add(1)
		return types.CacheEntry{}, false
	}
	if entry.Expired(c.now()) {
		c.misses.Add(1)
		if err := c.backend.Delete(ctx, key); err != nil {
			c.errs.Add(1)
			c.logger.Warn("cache delete failed", "key", key, "error", err)
		}
		return types.CacheEntry{}, false
	}
	c.hits.Add(1)
	return entry, true
}

// Put stores doc under key with a TTL computed from q and the breakdown.
// It returns the entry and whether it was written.
func (c *Cache) Put(ctx context.Context, key string, q types.Query, doc types.Document, breakdown types.ConfidenceBreakdown) (types.CacheEntry, bool) {
	now := c.now()
	ttl := TTL(q.Type, breakdown.Score, q.Expertise)
	entry := types.CacheEntry{
		Key:        key,
		Query:      q,
		Document:   doc,
		Confidence: breakdown,
		CreatedAt:  now,
		TTLHours:   ttl,
		ExpiresAt:  now.Add(time.Duration(ttl) * time.Hour),
	}
	if !c.Enabled() {
		return entry, false
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		c.errs.Add(1)
		c.logger.Warn("cache put failed, continuing uncached", "key", key, "error", err)
		return entry, false
	}
	c.writes.Add(1)
	return entry, true
}

// PurgeExpired removes expired entries from the backend.
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	return c.backend.Purge(ctx, c.now())
}

// Stats returns activity counters and the current backend size. A failing
// size lookup reports -1 entries.
func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errs.Load(),
		Writes: c.writes.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if c.Enabled() {
		n, err := c.backend.Len(ctx)
		if err != nil {
			n = -1
		}
		s.Entries = n
	}
	return s
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
