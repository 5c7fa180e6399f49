// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/content-engine/internal/audit"
	"github.com/pdiddy/content-engine/internal/cache"
	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/internal/confidence"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/internal/generate"
	"github.com/pdiddy/content-engine/internal/review"
	"github.com/pdiddy/content-engine/pkg/types"
)

// --- Fakes ---

type fakeRetriever struct {
	bundle types.RetrievalBundle
	calls  atomic.Int32
	hook   func()
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ types.Query, _ []types.SourceKind) types.RetrievalBundle {
	f.calls.Add(1)
	if f.hook != nil {
		f.hook()
	}
	return f.bundle
}

type fakeGenerator struct {
	text   string
	err    error
	panics bool
	calls  atomic.Int32

	mu   sync.Mutex
	last generate.PromptContext
}

func (f *fakeGenerator) Generate(_ context.Context, pc generate.PromptContext) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = pc
	f.mu.Unlock()
	if f.panics {
		panic("generator exploded")
	}
	return f.text, f.err
}

type fakeExtractor struct {
	fields map[string]any
	err    error
}

func (f fakeExtractor) Extract(context.Context, string, map[string]string) (map[string]any, error) {
	return f.fields, f.err
}

type fakeGate struct {
	state types.GateState
	err   error
	calls atomic.Int32

	mu   sync.Mutex
	last gate.Input
}

func (f *fakeGate) Run(_ context.Context, in gate.Input, level types.ValidationLevel, _ gate.Reviewer) (types.QAReport, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = in
	f.mu.Unlock()
	if f.err != nil {
		return types.QAReport{}, f.err
	}
	return types.QAReport{
		ID:                  "report-1",
		DocumentID:          in.Document.ID,
		Level:               level,
		OverallScore:        8.2,
		State:               f.state,
		HumanReviewRequired: f.state == types.GatePendingHumanReview,
	}, nil
}

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (m *memRecorder) Record(_ context.Context, e audit.Entry) (audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return audit.Entry{}, m.err
	}
	m.entries = append(m.entries, e)
	return e, nil
}

var passages = []types.Passage{
	{Content: "Acme Casino offers 2,000 slot games.", Relevance: 1, Origin: types.Origin{Title: "Acme", Authority: 0.9, Credibility: 0.9}},
	{Content: "Withdrawals take 24 hours.", Relevance: 0.5, Origin: types.Origin{Title: "Payments"}},
}

type fixture struct {
	pc        *PipelineContext
	retriever *fakeRetriever
	generator *fakeGenerator
	gate      *fakeGate
	cache     *cache.Cache
	recorder  *memRecorder
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		retriever: &fakeRetriever{bundle: types.RetrievalBundle{
			Results:  []types.SourceResult{{Kind: types.SourceVector, Name: "vector", Success: true, Passages: passages}},
			Passages: passages,
			Context:  "[1] Acme\nAcme Casino offers 2,000 slot games.",
		}},
		generator: &fakeGenerator{text: "## Introduction\nAcme Casino offers 2,000 slot games for players aged 18+."},
		gate:      &fakeGate{state: types.GateApproved},
		cache:     cache.New(cache.NewMemory(), nil),
		recorder:  &memRecorder{},
		logs:      &bytes.Buffer{},
	}
	var ids atomic.Int32
	f.pc = &PipelineContext{
		Classify:  classify.Classify,
		Retriever: f.retriever,
		Generator: f.generator,
		Scorer:    confidence.NewScorer(confidence.DefaultPolicy()),
		Cache:     f.cache,
		Gate:      f.gate,
		Audit:     f.recorder,
		Logger:    slog.New(slog.NewTextHandler(f.logs, nil)),
		Clock:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			return fmt.Sprintf("doc-%d", ids.Add(1))
		},
	}
	return f
}

func cacheLen(t *testing.T, c *cache.Cache) int {
	t.Helper()
	return c.Stats(context.Background()).Entries
}

// --- Tests ---

func TestRunApproved(t *testing.T) {
	f := newFixture(t)
	res, err := Run(context.Background(), f.pc, RunRequest{
		Query: "Acme casino review",
		Hints: types.Hints{Locale: "en-GB", Tenant: "acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.QueryReview, res.Query.Type)
	assert.False(t, res.Cached)
	assert.True(t, res.Decision.Approved)
	assert.Equal(t, "report-1", res.Decision.ReportID)
	assert.Equal(t, "doc-1", res.Document.ID)
	assert.Equal(t, "en-GB", res.Document.Locale)
	assert.Equal(t, passages, res.Document.Sources)
	assert.Greater(t, res.Breakdown.Score, 0.0)
	require.NotNil(t, res.Retrieval)

	assert.Equal(t, "[1] Acme\nAcme Casino offers 2,000 slot games.", f.generator.last.Context)
	assert.Equal(t, passages, f.gate.last.References, "the gate checks claims against the retrieved passages")
	assert.Equal(t, "en-GB", f.gate.last.Locale)

	assert.Equal(t, 1, cacheLen(t, f.cache))
	require.Len(t, f.recorder.entries, 1)
	assert.True(t, f.recorder.entries[0].Decision.Approved)
	assert.Contains(t, f.logs.String(), "run complete")
}

func TestRunCacheHitIsRegated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := RunRequest{Query: "best welcome bonus"}

	first, err := Run(ctx, f.pc, req)
	require.NoError(t, err)
	second, err := Run(ctx, f.pc, RunRequest{Query: "Best  welcome BONUS?"})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Document.ID, second.Document.ID)
	assert.InDelta(t, first.Breakdown.Score, second.Breakdown.Score, 1e-9)
	assert.Nil(t, second.Retrieval)
	assert.Equal(t, int32(1), f.retriever.calls.Load(), "a hit skips retrieval")
	assert.Equal(t, int32(1), f.generator.calls.Load(), "a hit skips generation")
	assert.Equal(t, int32(2), f.gate.calls.Load(), "a hit is validated again")
	assert.Equal(t, passages, f.gate.last.References, "cached documents keep their sources")

	// Tenant separates cache entries.
	third, err := Run(ctx, f.pc, RunRequest{Query: "best welcome bonus", Hints: types.Hints{Tenant: "other"}})
	require.NoError(t, err)
	assert.False(t, third.Cached)

	// SkipCache forces a fresh document.
	fourth, err := Run(ctx, f.pc, RunRequest{Query: "best welcome bonus", SkipCache: true})
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
	assert.Equal(t, int32(3), f.generator.calls.Load())
}

func TestRunGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.err = errors.New("model offline")

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "slot news today"})
	require.ErrorIs(t, err, ErrGeneration)
	assert.ErrorContains(t, err, "model offline")
	assert.False(t, res.Decision.Approved)
	assert.Equal(t, 0, cacheLen(t, f.cache))
	assert.Equal(t, int32(0), f.gate.calls.Load())
	require.Len(t, f.recorder.entries, 1)
	assert.Contains(t, f.recorder.entries[0].Decision.Failure, "model offline")
}

func TestRunExtraction(t *testing.T) {
	schema := map[string]string{"operator": generate.FieldString}

	t.Run("fields are attached", func(t *testing.T) {
		f := newFixture(t)
		f.pc.Extractor = fakeExtractor{fields: map[string]any{"operator": "Acme"}}
		f.pc.ExtractSchema = schema
		res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"operator": "Acme"}, res.Document.Fields)
	})

	t.Run("failure is a generation failure", func(t *testing.T) {
		f := newFixture(t)
		f.pc.Extractor = fakeExtractor{err: errors.New("bad json")}
		f.pc.ExtractSchema = schema
		_, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
		assert.ErrorIs(t, err, ErrGeneration)
		assert.Equal(t, 0, cacheLen(t, f.cache))
	})
}

func TestRunCancelledWritesNoCache(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.retriever.hook = cancel

	_, err := Run(ctx, f.pc, RunRequest{Query: "latest slot releases"})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGeneration)
	assert.Equal(t, 0, cacheLen(t, f.cache))
	assert.Equal(t, int32(0), f.generator.calls.Load())
	assert.Equal(t, int32(0), f.gate.calls.Load())
}

// cancellingValidator cancels the run and waits for the cancellation to land.
type cancellingValidator struct {
	name   string
	cancel context.CancelFunc
}

func (v cancellingValidator) Name() string { return v.name }

func (v cancellingValidator) Validate(ctx context.Context, _ gate.Input) (types.ValidationResult, error) {
	v.cancel()
	<-ctx.Done()
	return types.ValidationResult{}, ctx.Err()
}

func TestRunCancelledDuringGateIsNotEscalated(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var validators []gate.Validator
	for _, name := range []string{types.ValidatorCompliance, types.ValidatorFactual, types.ValidatorStyle, types.ValidatorQuality} {
		validators = append(validators, cancellingValidator{name: name, cancel: cancel})
	}
	f.pc.Gate = &gate.Gate{Validators: validators, Config: gate.DefaultConfig()}
	reviews := review.New(review.NewMemory())
	f.pc.Reviews = reviews

	res, err := Run(ctx, f.pc, RunRequest{Query: "acme casino review", Reviewer: gate.Reviewer{Available: true}})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSystemFailure)
	assert.Empty(t, res.Decision.TicketID)
	assert.False(t, res.Decision.Approved)

	tickets, err := reviews.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tickets, "a cancelled run queues no review ticket")
	assert.Empty(t, f.recorder.entries, "a cancelled run writes no audit entry")
}

func TestRunPanicIsSystemFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.panics = true

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.ErrorIs(t, err, ErrSystemFailure)
	assert.False(t, res.Decision.Approved)
	assert.True(t, res.Decision.HumanReviewRequired)
	assert.Contains(t, res.Decision.Failure, "generator exploded")
	assert.Equal(t, 0, cacheLen(t, f.cache))
	require.Len(t, f.recorder.entries, 1)
	assert.True(t, f.recorder.entries[0].Decision.HumanReviewRequired)
}

func TestRunGateErrorIsSystemFailure(t *testing.T) {
	f := newFixture(t)
	f.gate.err = errors.New("state machine broke")

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.ErrorIs(t, err, ErrSystemFailure)
	assert.True(t, res.Decision.HumanReviewRequired)
	assert.False(t, res.Decision.Approved)
}

func TestRunEscalatesToReview(t *testing.T) {
	f := newFixture(t)
	f.gate.state = types.GatePendingHumanReview
	reviews := review.New(review.NewMemory())
	f.pc.Reviews = reviews

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review", Level: types.LevelPremium})
	require.NoError(t, err)
	assert.False(t, res.Decision.Approved)
	assert.True(t, res.Decision.HumanReviewRequired)
	require.NotEmpty(t, res.Decision.TicketID)

	status, err := reviews.Status(context.Background(), res.Decision.TicketID)
	require.NoError(t, err)
	assert.Equal(t, types.TicketStatus{Status: types.ReviewPending}, status)
	assert.Equal(t, types.LevelPremium, res.Report.Level)
}

func TestRunRejectedIsNotEscalated(t *testing.T) {
	f := newFixture(t)
	f.gate.state = types.GateRejected
	f.pc.Reviews = review.New(review.NewMemory())

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.NoError(t, err)
	assert.False(t, res.Decision.Approved)
	assert.Empty(t, res.Decision.TicketID)
}

func TestRunAuditFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("disk full")

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.NoError(t, err)
	assert.True(t, res.Decision.Approved)
	assert.Contains(t, f.logs.String(), "audit write failed")
}

func TestRunDegradedRetrieval(t *testing.T) {
	f := newFixture(t)
	f.retriever.bundle = types.RetrievalBundle{
		Results:  []types.SourceResult{types.Failed(types.SourceVector, "vector", "index missing")},
		Degraded: true,
	}

	res, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.NoError(t, err)
	assert.True(t, f.generator.last.Degraded)
	assert.Empty(t, res.Document.Sources)
	assert.InDelta(t, -0.15, res.Breakdown.Contribution(types.ContribRetrievalQuality), 1e-9)
}

func TestRunEmptyQuery(t *testing.T) {
	f := newFixture(t)
	_, err := Run(context.Background(), f.pc, RunRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRunWithSQLiteAudit(t *testing.T) {
	f := newFixture(t)
	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()
	f.pc.Audit = store

	_, err = Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
	require.NoError(t, err)

	entries, err := store.List(context.Background(), audit.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc-1", entries[0].DocumentID)
	require.NotNil(t, entries[0].Decision.Report)
	assert.InDelta(t, 8.2, entries[0].Decision.Report.OverallScore, 1e-9)
}

func TestRunConcurrent(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(context.Background(), f.pc, RunRequest{Query: "acme casino review"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, cacheLen(t, f.cache))
}
