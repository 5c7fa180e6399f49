// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/content-engine/internal/audit"
	"github.com/pdiddy/content-engine/internal/cache"
	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/internal/confidence"
	"github.com/pdiddy/content-engine/internal/corpus"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/internal/generate"
	"github.com/pdiddy/content-engine/internal/httputil"
	"github.com/pdiddy/content-engine/internal/pipeline"
	"github.com/pdiddy/content-engine/internal/retrieval"
	"github.com/pdiddy/content-engine/internal/review"
	"github.com/pdiddy/content-engine/internal/source"
	"github.com/pdiddy/content-engine/pkg/types"
)

// engine owns the collaborators of a pipeline run and the stores behind them.
type engine struct {
	cfg     types.Config
	logger  *slog.Logger
	model   *generate.Client
	corpus  *corpus.Store
	cache   *cache.Cache
	gate    *gate.Gate
	reviews *review.Gateway
	audit   *audit.Store
	pc      *pipeline.PipelineContext

	closers []io.Closer
}

// newEngine opens every store named in cfg and builds the pipeline context.
func newEngine(cfg types.Config, logger *slog.Logger) (_ *engine, err error) {
	e := &engine{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	e.model = generate.NewClient(cfg.Generation, httputil.NewClient(cfg.Generation.HTTPConfig, logger))

	if e.corpus, err = corpus.Open(cfg.Retrieval.CorpusPath); err != nil {
		return nil, err
	}
	e.closers = append(e.closers, e.corpus)

	if e.cache, err = e.openCache(); err != nil {
		return nil, err
	}
	if e.gate, err = e.openGate(); err != nil {
		return nil, err
	}
	if e.reviews, err = e.openReviews(); err != nil {
		return nil, err
	}
	if cfg.Audit.Path != "" {
		if e.audit, err = audit.Open(cfg.Audit.Path); err != nil {
			return nil, err
		}
		e.closers = append(e.closers, e.audit)
	}

	e.pc = &pipeline.PipelineContext{
		Classify:  classify.Classify,
		Retriever: retrieval.New(cfg.Retrieval, logger, e.connectors()...),
		Generator: e.model,
		Scorer:    confidence.NewScorer(cfg.Confidence),
		Cache:     e.cache,
		Gate:      e.gate,
		Reviews:   e.reviews,
		Logger:    logger,
	}
	if e.audit != nil {
		e.pc.Audit = e.audit
	}
	if cfg.Generation.Extract {
		e.pc.Extractor = e.model
	}
	return e, nil
}

// connectors builds one connector per source slot. Without a web search
// endpoint the corpus keyword index fills the web search slot and deep
// research has no seeder.
func (e *engine) connectors() []source.Connector {
	r := e.cfg.Retrieval
	out := []source.Connector{
		&source.VectorConnector{
			Embedder:      e.model,
			Index:         e.corpus,
			MinSimilarity: r.Vector.MinSimilarity,
			Timeout:       r.SourceTimeout,
		},
	}
	if r.WebSearch.Endpoint == "" {
		e.logger.Debug("no web search endpoint, using corpus keyword search")
		return append(out, &source.KeywordConnector{Index: e.corpus, Timeout: r.SourceTimeout})
	}

	web := &source.WebSearchConnector{
		Client:   httputil.NewClient(r.WebSearch.HTTPConfig, e.logger),
		Endpoint: r.WebSearch.Endpoint,
		APIKey:   r.WebSearch.APIKey,
		Timeout:  r.SourceTimeout,
	}
	deep := &source.DeepResearchConnector{
		Seeder:            web,
		Client:            httputil.NewClient(r.DeepResearch.HTTPConfig, e.logger),
		MaxPages:          r.DeepResearch.MaxPages,
		Concurrency:       r.DeepResearch.Concurrency,
		ParagraphsPerPage: r.DeepResearch.ParagraphsPerPage,
		Timeout:           r.SourceTimeout,
	}
	return append(out, web, deep)
}

func (e *engine) openCache() (*cache.Cache, error) {
	switch e.cfg.Cache.Backend {
	case types.CacheSQLite:
		backend, err := cache.OpenSQLite(e.cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, backend)
		return cache.New(backend, e.logger), nil
	case types.CacheDisabled:
		return cache.New(nil, e.logger), nil
	default:
		return cache.New(cache.NewMemory(), e.logger), nil
	}
}

func (e *engine) openGate() (*gate.Gate, error) {
	rules, err := gate.LoadRules(e.cfg.Gate.RulesFile)
	if err != nil {
		return nil, err
	}
	var checker gate.ClaimChecker
	if e.cfg.Gate.LLMFactCheck {
		checker = e.model
	}
	return gate.New(e.cfg.Gate, rules, checker, e.logger)
}

func (e *engine) openReviews() (*review.Gateway, error) {
	if e.cfg.Review.Path == "" {
		return review.New(review.NewMemory()), nil
	}
	store, err := review.OpenSQLite(e.cfg.Review.Path)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, store)
	return review.New(store), nil
}

// Close closes every opened store.
func (e *engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing stores: %w", err)
	}
	return nil
}
