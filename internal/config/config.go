// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles the pipeline configuration from defaults, a
// YAML config file, and CONTENT_ENGINE_* environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/content-engine/internal/confidence"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/pkg/types"
)

// Default returns the built-in configuration.
func Default() types.Config {
	return types.Config{
		Retrieval: types.RetrievalConfig{
			Sources:       []string{"vector", "web_search", "deep_research"},
			Limit:         5,
			SourceTimeout: 10 * time.Second,
			Deadline:      20 * time.Second,
			CorpusPath:    "data/corpus.db",
			Vector:        types.VectorConfig{MinSimilarity: 0.3},
			WebSearch: types.WebSearchConfig{
				HTTPConfig: types.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "content-engine/0.1", RequestsPerSecond: 2},
			},
			DeepResearch: types.DeepResearchConfig{
				HTTPConfig:        types.HTTPConfig{Timeout: 15 * time.Second, UserAgent: "content-engine/0.1", RequestsPerSecond: 4},
				MaxPages:          3,
				Concurrency:       3,
				ParagraphsPerPage: 3,
			},
		},
		Confidence: confidence.DefaultPolicy(),
		Cache:      types.CacheConfig{Backend: types.CacheMemory, Path: "data/cache.db"},
		Gate:       gate.DefaultConfig(),
		Generation: types.GenerationConfig{
			HTTPConfig: types.HTTPConfig{Timeout: 120 * time.Second, UserAgent: "content-engine/0.1"},
			Endpoint:   "http://localhost:11434",
			Model:      "llama3.1",
			EmbedModel: "nomic-embed-text",
		},
		Review: types.StoreConfig{Path: "data/review.db"},
		Audit:  types.StoreConfig{Path: "data/audit.db"},
	}
}

// SetDefaults registers every field of Default on v so that environment
// variables can override keys that the config file does not mention.
func SetDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding defaults: %w", err)
	}
	setTree(v, "", tree)

	// Omitted from the encoded defaults because they are empty.
	for _, key := range []string{"gate.rules_file", "generation.api_key", "retrieval.web_search.api_key"} {
		v.SetDefault(key, "")
	}
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Load decodes the settings held by v over the defaults and validates the
// result. Field names follow the yaml tags of types.Config.
func Load(v *viper.Viper) (types.Config, error) {
	cfg := Default()
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.Squash = true
		dc.ZeroFields = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in cfg.
func Validate(cfg types.Config) error {
	var errs []error

	if _, err := Sources(cfg.Retrieval); err != nil {
		errs = append(errs, err)
	}
	if cfg.Retrieval.Limit <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.limit must be positive, got %d", cfg.Retrieval.Limit))
	}
	if cfg.Retrieval.SourceTimeout <= 0 {
		errs = append(errs, errors.New("retrieval.source_timeout must be positive"))
	}

	switch cfg.Cache.Backend {
	case types.CacheMemory, types.CacheDisabled:
	case types.CacheSQLite:
		if cfg.Cache.Path == "" {
			errs = append(errs, errors.New("cache.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", cfg.Cache.Backend))
	}

	g := cfg.Gate
	if !g.Level.Valid() {
		errs = append(errs, fmt.Errorf("unknown gate.level %q", g.Level))
	}
	if math.Abs(g.Weights.Sum()-1) > 1e-6 {
		errs = append(errs, fmt.Errorf("gate.weights must sum to 1, got %.3f", g.Weights.Sum()))
	}
	if g.BlockingThreshold > g.ApproveThreshold {
		errs = append(errs, fmt.Errorf("gate.blocking_threshold %.1f exceeds approve_threshold %.1f", g.BlockingThreshold, g.ApproveThreshold))
	}
	if g.ValidatorTimeout <= 0 || g.Deadline <= 0 {
		errs = append(errs, errors.New("gate.validator_timeout and gate.deadline must be positive"))
	}

	p := cfg.Confidence
	if p.ExpectedLength <= 0 {
		errs = append(errs, errors.New("confidence.expected_length must be positive"))
	}
	if p.DegradedPenalty > 0 {
		errs = append(errs, errors.New("confidence.degraded_penalty must not be positive"))
	}

	return errors.Join(errs...)
}

// Sources parses the enabled source names. An empty list enables all sources.
func Sources(cfg types.RetrievalConfig) ([]types.SourceKind, error) {
	if len(cfg.Sources) == 0 {
		return types.SourceKinds, nil
	}
	kinds := make([]types.SourceKind, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		k, ok := types.ParseSourceKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown retrieval source %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
