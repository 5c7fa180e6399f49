// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source implements the connectors that retrieve candidate passages
// from one data source each: vector similarity over the corpus, keyword or
// web search, and deep multi-page research. A connector never returns an
// error or panics past its boundary; failures become a failed SourceResult.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Connector retrieves passages for a query from one source.
type Connector interface {
	Kind() types.SourceKind
	Name() string
	Fetch(ctx context.Context, q types.Query, limit int) types.SourceResult
}

// FetchFunc is the fallible body of a connector call.
type FetchFunc func(ctx context.Context) ([]types.Passage, error)

// Guard runs fn under its own timeout and converts every failure mode into
// a failed SourceResult: a returned error, a panic, or the timeout firing
// before fn returns. At most limit passages are kept when limit > 0.
//
// When the timeout fires, Guard returns without waiting for fn; fn sees its
// context cancelled and its late result is discarded.
func Guard(ctx context.Context, kind types.SourceKind, name string, timeout time.Duration, limit int, fn FetchFunc) types.SourceResult {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		passages []types.Passage
		err      error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		passages, err := fn(ctx)
		ch <- outcome{passages: passages, err: err}
	}()

	var res types.SourceResult
	select {
	case out := <-ch:
		switch {
		case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
			res = types.Failed(kind, name, fmt.Sprintf("timeout after %v", timeout))
		case out.err != nil:
			res = types.Failed(kind, name, out.err.Error())
		default:
			passages := out.passages
			if limit > 0 && len(passages) > limit {
				passages = passages[:limit]
			}
			res = types.SourceResult{Kind: kind, Name: name, Passages: passages, Success: true}
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res = types.Failed(kind, name, fmt.Sprintf("timeout after %v", timeout))
		} else {
			res = types.Failed(kind, name, ctx.Err().Error())
		}
	}
	res.Elapsed = time.Since(start)
	return res
}
