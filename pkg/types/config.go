// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "content-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on HTTP 429. Zero uses the httputil default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// VectorConfig holds settings for the vector connector.
type VectorConfig struct {
	// MinSimilarity drops corpus passages whose cosine similarity is below it.
	MinSimilarity float64 `json:"min_similarity" yaml:"min_similarity"`
}

// WebSearchConfig holds settings for the web search connector.
type WebSearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the search API URL. Empty means the corpus keyword
	// connector fills the web search slot instead.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// DeepResearchConfig holds settings for the deep research connector.
type DeepResearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxPages is the number of seed pages fetched per query (default 3).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// Concurrency bounds simultaneous page fetches (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// ParagraphsPerPage keeps the N most query-related paragraphs of each page.
	ParagraphsPerPage int `json:"paragraphs_per_page" yaml:"paragraphs_per_page"`
}

// RetrievalConfig holds settings for the retrieval coordinator and its connectors.
type RetrievalConfig struct {
	// Sources lists enabled source kinds by name: vector, web_search, deep_research.
	Sources []string `json:"sources" yaml:"sources"`

	// Limit is the per-source passage limit (default 5).
	Limit int `json:"limit" yaml:"limit"`

	// SourceTimeout bounds each connector call.
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// Deadline bounds the whole fan-out.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`

	// CorpusPath is the SQLite passage corpus used by vector and keyword search.
	CorpusPath string `json:"corpus_path" yaml:"corpus_path"`

	Vector       VectorConfig       `json:"vector" yaml:"vector"`
	WebSearch    WebSearchConfig    `json:"web_search" yaml:"web_search"`
	DeepResearch DeepResearchConfig `json:"deep_research" yaml:"deep_research"`
}

// ConfidencePolicy holds the constants of the confidence model. The defaults
// are empirical; every value is tunable.
type ConfidencePolicy struct {
	// ExpectedLength is the generated-text length (in characters) that counts
	// as complete.
	ExpectedLength int `json:"expected_length" yaml:"expected_length"`

	CompletenessWeight float64 `json:"completeness_weight" yaml:"completeness_weight"`
	AlignmentWeight    float64 `json:"alignment_weight" yaml:"alignment_weight"`

	// RetrievalWeight scales (mean relevance - 0.5) into a contribution.
	RetrievalWeight float64 `json:"retrieval_weight" yaml:"retrieval_weight"`

	// DegradedPenalty is applied when no source succeeded.
	DegradedPenalty float64 `json:"degraded_penalty" yaml:"degraded_penalty"`

	SourceCountBonus float64 `json:"source_count_bonus" yaml:"source_count_bonus"`
	SourceCountMax   float64 `json:"source_count_max" yaml:"source_count_max"`

	ClassificationBonus        float64 `json:"classification_bonus" yaml:"classification_bonus"`
	ClassificationPartialBonus float64 `json:"classification_partial_bonus" yaml:"classification_partial_bonus"`

	ExpertiseBonus        float64 `json:"expertise_bonus" yaml:"expertise_bonus"`
	ExpertisePartialBonus float64 `json:"expertise_partial_bonus" yaml:"expertise_partial_bonus"`

	FormatBonus float64 `json:"format_bonus" yaml:"format_bonus"`

	// SourceQualityTiers maps quality thresholds to bonuses, highest first.
	SourceQualityTiers []Tier `json:"source_quality_tiers" yaml:"source_quality_tiers"`

	// FreshnessTiers maps fresh-passage ratios to bonuses, highest first.
	FreshnessTiers []Tier `json:"freshness_tiers" yaml:"freshness_tiers"`

	// FreshnessWindow is how recent a passage must be to count as fresh.
	FreshnessWindow time.Duration `json:"freshness_window" yaml:"freshness_window"`
}

// Tier is one threshold step: values at or above Min earn Bonus.
type Tier struct {
	Min   float64 `json:"min" yaml:"min"`
	Bonus float64 `json:"bonus" yaml:"bonus"`
}

// CacheBackend selects the cache storage.
type CacheBackend string

const (
	CacheMemory   CacheBackend = "memory"
	CacheSQLite   CacheBackend = "sqlite"
	CacheDisabled CacheBackend = "none"
)

// CacheConfig holds settings for the adaptive cache.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// Path is the SQLite file for the sqlite backend.
	Path string `json:"path" yaml:"path"`
}

// GateWeights are the aggregation weights of the four validators.
type GateWeights struct {
	Compliance float64 `json:"compliance" yaml:"compliance"`
	Factual    float64 `json:"factual" yaml:"factual"`
	Style      float64 `json:"style" yaml:"style"`
	Quality    float64 `json:"quality" yaml:"quality"`
}

// Sum returns the total of all weights.
func (w GateWeights) Sum() float64 {
	return w.Compliance + w.Factual + w.Style + w.Quality
}

// GateConfig holds settings for the compliance and quality gate.
type GateConfig struct {
	// Level is the default validation level.
	Level ValidationLevel `json:"level" yaml:"level"`

	Weights GateWeights `json:"weights" yaml:"weights"`

	// ApproveThreshold is the minimum overall score for approval (default 7.0).
	ApproveThreshold float64 `json:"approve_threshold" yaml:"approve_threshold"`

	// BlockingThreshold separates blocking issues from warnings (default 5.0).
	BlockingThreshold float64 `json:"blocking_threshold" yaml:"blocking_threshold"`

	// ValidatorTimeout bounds each validator.
	ValidatorTimeout time.Duration `json:"validator_timeout" yaml:"validator_timeout"`

	// Deadline bounds the whole validation pass.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`

	// RulesFile is an optional YAML file overriding the built-in rules.
	RulesFile string `json:"rules_file,omitempty" yaml:"rules_file,omitempty"`

	// LLMFactCheck enables the model-backed claim checker.
	LLMFactCheck bool `json:"llm_fact_check" yaml:"llm_fact_check"`
}

// GenerationConfig holds settings for the generation, extraction, and
// embedding adapters.
type GenerationConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the base URL of the model server (e.g. "http://localhost:11434").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the generation model identifier.
	Model string `json:"model" yaml:"model"`

	// EmbedModel is the embedding model identifier.
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Extract enables structured field extraction after generation.
	Extract bool `json:"extract" yaml:"extract"`
}

// StoreConfig locates a SQLite-backed store. An empty Path keeps review
// tickets in memory and turns the audit trail off.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Config groups all component configurations for the pipeline.
type Config struct {
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval"`
	Confidence ConfidencePolicy `json:"confidence" yaml:"confidence"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Gate       GateConfig       `json:"gate" yaml:"gate"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Review     StoreConfig      `json:"review" yaml:"review"`
	Audit      StoreConfig      `json:"audit" yaml:"audit"`
}
