// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval fans a query out to the enabled source connectors,
// isolates their failures, and merges what succeeded into one bundle in a
// fixed source-priority order.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/pdiddy/content-engine/internal/source"
	"github.com/pdiddy/content-engine/pkg/types"
)

// Coordinator runs connectors concurrently under an overall deadline.
type Coordinator struct {
	// Connectors maps each source kind to the connector serving it.
	Connectors map[types.SourceKind]source.Connector

	// Limit is the per-source passage limit passed to each connector.
	Limit int

	// Deadline bounds the whole fan-out. Zero means no overall deadline.
	Deadline time.Duration

	Logger *slog.Logger
}

// New builds a Coordinator from connectors. When two connectors report the
// same kind the later one wins.
func New(cfg types.RetrievalConfig, logger *slog.Logger, connectors ...source.Connector) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := make(map[types.SourceKind]source.Connector, len(connectors))
	for _, c := range connectors {
		m[c.Kind()] = c
	}
	return &Coordinator{Connectors: m, Limit: cfg.Limit, Deadline: cfg.Deadline, Logger: logger}
}

// Retrieve invokes every enabled connector concurrently and merges their
// results. Connectors still running when the deadline fires are recorded as
// failed. When every source fails the bundle is empty and Degraded is set;
// Retrieve itself never fails.
func (c *Coordinator) Retrieve(ctx context.Context, q types.Query, enabled []types.SourceKind) types.RetrievalBundle {
	kinds := ordered(enabled)

	if c.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Deadline)
		defer cancel()
	}

	type slot struct {
		kind types.SourceKind
		res  types.SourceResult
	}

	ch := make(chan slot, len(kinds))
	var wg sync.WaitGroup

	for _, kind := range kinds {
		conn, ok := c.Connectors[kind]
		if !ok {
			ch <- slot{kind: kind, res: types.Failed(kind, kind.String(), "no connector configured")}
			continue
		}
		wg.Add(1)
		go func(conn source.Connector) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ch <- slot{kind: kind, res: types.Failed(kind, conn.Name(), fmt.Sprintf("panic: %v", r))}
				}
			}()
			ch <- slot{kind: kind, res: conn.Fetch(ctx, q, c.Limit)}
		}(conn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	results := make(map[types.SourceKind]types.SourceResult, len(kinds))
	collect := func(s slot) { results[s.kind] = s.res }

wait:
	for {
		select {
		case s := <-ch:
			collect(s)
		case <-done:
			break wait
		case <-ctx.Done():
			break wait
		}
	}
	// Drain results that completed alongside the deadline.
	for {
		select {
		case s := <-ch:
			collect(s)
			continue
		default:
		}
		break
	}

	bundle := types.RetrievalBundle{}
	for _, kind := range kinds {
		res, ok := results[kind]
		if !ok {
			name := kind.String()
			if conn, found := c.Connectors[kind]; found {
				name = conn.Name()
			}
			res = types.Failed(kind, name, "deadline exceeded")
		}
		if !res.Success {
			c.Logger.Warn("source failed", "source", res.Name, "error", res.Error)
		}
		bundle.Results = append(bundle.Results, res)
	}

	merge(&bundle)
	return bundle
}

// ordered returns the distinct enabled kinds in priority order.
func ordered(enabled []types.SourceKind) []types.SourceKind {
	want := make(map[types.SourceKind]bool, len(enabled))
	for _, k := range enabled {
		want[k] = true
	}
	var out []types.SourceKind
	for _, k := range types.SourceKinds {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}

// merge concatenates successful passages in result order, drops duplicates
// by normalized content (first occurrence wins), and builds the context.
func merge(b *types.RetrievalBundle) {
	seen := make(map[string]bool)
	succeeded := 0
	for _, res := range b.Results {
		if !res.Success {
			continue
		}
		succeeded++
		for _, p := range res.Passages {
			key := normalizeContent(p.Content)
			if key == "" {
				continue
			}
			if seen[key] {
				b.DupsRemoved++
				continue
			}
			seen[key] = true
			b.Passages = append(b.Passages, p)
		}
	}
	b.Degraded = succeeded == 0
	b.Context = FormatContext(b.Passages)
}

// normalizeContent returns a lowercased, punctuation-stripped version of s.
func normalizeContent(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// FormatContext renders passages as numbered blocks for the generator, one
// block per passage, with the title and URL when known.
func FormatContext(passages []types.Passage) string {
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d]", i+1)
		if p.Origin.Title != "" {
			fmt.Fprintf(&sb, " %s", p.Origin.Title)
		}
		if p.Origin.URL != "" {
			fmt.Fprintf(&sb, " (%s)", p.Origin.URL)
		}
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(p.Content))
	}
	return sb.String()
}

// FormatTable writes per-source outcomes as a human-readable table to w.
func FormatTable(b types.RetrievalBundle, w io.Writer) {
	fmt.Fprintf(w, "%-14s  %-14s  %-8s  %-9s  %s\n", "Kind", "Source", "Passages", "Elapsed", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, r := range b.Results {
		status := "ok"
		if !r.Success {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(w, "%-14s  %-14s  %-8d  %-9s  %s\n",
			r.Kind, r.Name, len(r.Passages), r.Elapsed.Round(time.Millisecond), status)
	}
	fmt.Fprintf(w, "\n%d passages", len(b.Passages))
	if b.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", b.DupsRemoved)
	}
	if b.Degraded {
		fmt.Fprint(w, ", degraded: no source succeeded")
	}
	fmt.Fprintln(w)
}
