// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires classification, retrieval, generation, scoring,
// caching, and gating into one stateless run. Every collaborator arrives
// through an explicitly built PipelineContext.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/content-engine/internal/audit"
	"github.com/pdiddy/content-engine/internal/cache"
	"github.com/pdiddy/content-engine/internal/confidence"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/internal/generate"
	"github.com/pdiddy/content-engine/pkg/types"
)

var (
	// ErrGeneration is returned when generation or extraction fails.
	ErrGeneration = errors.New("generation failed")

	// ErrSystemFailure is returned for unexpected internal failures. The
	// result still carries a failed decision that requires human review.
	ErrSystemFailure = errors.New("system failure")

	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)

// Retriever fans a query out to the source connectors.
type Retriever interface {
	Retrieve(ctx context.Context, q types.Query, enabled []types.SourceKind) types.RetrievalBundle
}

// Generator produces document text from a prompt context.
type Generator interface {
	Generate(ctx context.Context, pc generate.PromptContext) (string, error)
}

// Extractor pulls structured fields out of generated content.
type Extractor interface {
	Extract(ctx context.Context, content string, schema map[string]string) (map[string]any, error)
}

// Gate validates a document and returns its report.
type Gate interface {
	Run(ctx context.Context, in gate.Input, level types.ValidationLevel, reviewer gate.Reviewer) (types.QAReport, error)
}

// ReviewQueue accepts escalated documents.
type ReviewQueue interface {
	Submit(ctx context.Context, doc types.Document, report types.QAReport) (string, error)
}

// Recorder appends run outcomes to the audit trail.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// PipelineContext holds the collaborators of a run. It is built once and
// shared by concurrent runs; Run keeps no state in it.
type PipelineContext struct {
	Classify  func(raw string, hints types.Hints) types.Query
	Retriever Retriever
	Generator Generator
	Scorer    *confidence.Scorer
	Cache     *cache.Cache
	Gate      Gate

	// Extractor and ExtractSchema are optional; both must be set for
	// extraction to run.
	Extractor     Extractor
	ExtractSchema map[string]string

	// Reviews and Audit are optional.
	Reviews ReviewQueue
	Audit   Recorder

	Logger *slog.Logger

	// Clock and NewID default to time.Now and uuid.NewString.
	Clock func() time.Time
	NewID func() string
}

// RunRequest is one content request.
type RunRequest struct {
	Query string
	Hints types.Hints

	// Sources lists the enabled sources; empty enables all.
	Sources []types.SourceKind

	// Level is the validation level; empty uses the gate default.
	Level types.ValidationLevel

	Reviewer gate.Reviewer

	// Jurisdictions are tenant compliance tags such as "UK".
	Jurisdictions []string

	// SkipCache forces a fresh generation. The result is still cached.
	SkipCache bool
}

// RunResult is the outcome of one run.
type RunResult struct {
	Query     types.Query               `json:"query" yaml:"query"`
	Document  types.Document            `json:"document" yaml:"document"`
	Breakdown types.ConfidenceBreakdown `json:"breakdown" yaml:"breakdown"`
	Retrieval *types.RetrievalBundle    `json:"retrieval,omitempty" yaml:"retrieval,omitempty"`
	Report    types.QAReport            `json:"report" yaml:"report"`
	Decision  types.PublishDecision     `json:"decision" yaml:"decision"`
	Cached    bool                      `json:"cached" yaml:"cached"`
	Elapsed   time.Duration             `json:"elapsed" yaml:"elapsed"`
}

// Run executes the pipeline for req. It returns a result with a decision,
// or ErrGeneration, or ErrSystemFailure together with a failed decision.
func Run(ctx context.Context, pc *PipelineContext, req RunRequest) (res RunResult, err error) {
	logger := pc.logger()
	start := pc.now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSystemFailure, r)
			logger.Error("pipeline panic", "query", req.Query, "panic", r)
			res.Decision = failedDecision(err, pc.now())
			pc.record(ctx, res)
		}
	}()

	if strings.TrimSpace(req.Query) == "" {
		return res, ErrEmptyQuery
	}

	q := pc.classify(req.Query, req.Hints)
	res.Query = q
	key := cache.Key(q, cacheContext(q))

	if !req.SkipCache {
		if entry, ok := pc.Cache.Get(ctx, key); ok {
			res.Document = entry.Document
			res.Breakdown = entry.Confidence
			res.Cached = true
			logger.Info("cache hit", "key", key, "expires_at", entry.ExpiresAt)
		}
	}

	if !res.Cached {
		if err := pc.produce(ctx, q, req, &res); err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("run cancelled: %w", ctx.Err())
			}
			res.Decision = types.PublishDecision{Failure: err.Error(), DecidedAt: pc.now()}
			pc.record(ctx, res)
			return res, err
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		if pc.Cache.Enabled() {
			pc.Cache.Put(ctx, key, q, res.Document, res.Breakdown)
		}
	}

	in := gate.Input{
		Document:      res.Document,
		References:    res.Document.Sources,
		Locale:        q.Locale,
		Jurisdictions: req.Jurisdictions,
	}
	report, err := pc.Gate.Run(ctx, in, req.Level, req.Reviewer)
	if err != nil {
		err = fmt.Errorf("%w: gating: %w", ErrSystemFailure, err)
		res.Decision = failedDecision(err, pc.now())
		pc.record(ctx, res)
		return res, err
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	res.Report = report
	res.Decision = gate.Decide(report, pc.now())

	if report.State == types.GatePendingHumanReview && pc.Reviews != nil {
		id, err := pc.Reviews.Submit(ctx, res.Document, report)
		if err != nil {
			logger.Warn("review submission failed", "document", res.Document.ID, "error", err)
		} else {
			res.Decision.TicketID = id
		}
	}

	res.Elapsed = pc.now().Sub(start)
	pc.record(ctx, res)
	logger.Info("run complete",
		"query", q.Text, "type", q.Type, "cached", res.Cached,
		"confidence", res.Breakdown.Score, "score", report.OverallScore,
		"state", report.State, "elapsed", res.Elapsed)
	return res, nil
}

// produce retrieves, generates, extracts, and scores a fresh document.
func (pc *PipelineContext) produce(ctx context.Context, q types.Query, req RunRequest, res *RunResult) error {
	sources := req.Sources
	if len(sources) == 0 {
		sources = types.SourceKinds
	}
	bundle := pc.Retriever.Retrieve(ctx, q, sources)
	res.Retrieval = &bundle
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := pc.Generator.Generate(ctx, generate.PromptContext{
		Query:    q,
		Context:  bundle.Context,
		Degraded: bundle.Degraded,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	doc := types.Document{
		ID:          pc.newID(),
		Title:       q.Raw,
		Content:     text,
		Sources:     bundle.Passages,
		Tenant:      q.Tenant,
		Locale:      q.Locale,
		GeneratedAt: pc.now(),
	}
	if pc.Extractor != nil && len(pc.ExtractSchema) > 0 {
		fields, err := pc.Extractor.Extract(ctx, text, pc.ExtractSchema)
		if err != nil {
			return fmt.Errorf("%w: extracting fields: %w", ErrGeneration, err)
		}
		doc.Fields = fields
	}

	res.Document = doc
	res.Breakdown = pc.Scorer.Score(q, text, bundle)
	return nil
}

// cacheContext returns the request context that separates cache entries.
func cacheContext(q types.Query) map[string]string {
	extra := make(map[string]string)
	if q.Tenant != "" {
		extra["tenant"] = q.Tenant
	}
	if q.Locale != "" {
		extra["locale"] = q.Locale
	}
	return extra
}

func failedDecision(err error, at time.Time) types.PublishDecision {
	return types.PublishDecision{
		Approved:            false,
		HumanReviewRequired: true,
		Failure:             err.Error(),
		DecidedAt:           at,
	}
}

// record writes res to the audit trail. Failures are logged only.
func (pc *PipelineContext) record(ctx context.Context, res RunResult) {
	if pc.Audit == nil {
		return
	}
	_, err := pc.Audit.Record(context.WithoutCancel(ctx), audit.Entry{
		RecordedAt: pc.now(),
		Query:      res.Query,
		DocumentID: res.Document.ID,
		Cached:     res.Cached,
		Decision:   res.Decision,
	})
	if err != nil {
		pc.logger().Warn("audit write failed", "document", res.Document.ID, "error", err)
	}
}

func (pc *PipelineContext) classify(raw string, hints types.Hints) types.Query {
	if pc.Classify == nil {
		panic("pipeline: no classifier configured")
	}
	return pc.Classify(raw, hints)
}

func (pc *PipelineContext) logger() *slog.Logger {
	if pc.Logger != nil {
		return pc.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (pc *PipelineContext) now() time.Time {
	if pc.Clock != nil {
		return pc.Clock()
	}
	return time.Now()
}

func (pc *PipelineContext) newID() string {
	if pc.NewID != nil {
		return pc.NewID()
	}
	return uuid.NewString()
}
