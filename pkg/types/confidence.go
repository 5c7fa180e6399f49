// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Contribution names recorded in a ConfidenceBreakdown.
const (
	ContribRetrievalQuality = "retrieval_quality"
	ContribSourceCount      = "source_count"
	ContribClassification   = "classification_accuracy"
	ContribExpertiseMatch   = "expertise_match"
	ContribFormatMatch      = "format_match"
	ContribSourceQuality    = "source_quality"
	ContribFreshness        = "freshness"
)

// Contribution is one named bonus (positive) or penalty (negative) that was
// applied on top of the base score.
type Contribution struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// ConfidenceBreakdown records how a confidence score was assembled.
// Score == clamp(Base + sum(Contributions), 0, 1), and the recorded
// contributions already account for clamping.
type ConfidenceBreakdown struct {
	Base          float64        `json:"base" yaml:"base"`
	Completeness  float64        `json:"completeness" yaml:"completeness"`
	Alignment     float64        `json:"alignment" yaml:"alignment"`
	Contributions []Contribution `json:"contributions" yaml:"contributions"`
	Score         float64        `json:"score" yaml:"score"`
}

// Total returns the sum of all recorded contributions.
func (b ConfidenceBreakdown) Total() float64 {
	var sum float64
	for _, c := range b.Contributions {
		sum += c.Value
	}
	return sum
}

// Contribution returns the recorded value for name, or 0 when it was not applied.
func (b ConfidenceBreakdown) Contribution(name string) float64 {
	for _, c := range b.Contributions {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

// Document is a generated long-form document.
type Document struct {
	// ID identifies this document version.
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Content string `json:"content" yaml:"content"`

	// Fields holds structured facts extracted from the content, when an
	// extractor is configured. The schema is owned by the caller.
	Fields map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Sources are the passages the document was generated from. They stay
	// with the document so a cached copy can be re-validated.
	Sources []Passage `json:"sources,omitempty" yaml:"sources,omitempty"`

	Tenant      string    `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Locale      string    `json:"locale,omitempty" yaml:"locale,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// CacheEntry is an immutable cached document.
type CacheEntry struct {
	Key        string              `json:"key" yaml:"key"`
	Query      Query               `json:"query" yaml:"query"`
	Document   Document            `json:"document" yaml:"document"`
	Confidence ConfidenceBreakdown `json:"confidence" yaml:"confidence"`
	CreatedAt  time.Time           `json:"created_at" yaml:"created_at"`
	TTLHours   int                 `json:"ttl_hours" yaml:"ttl_hours"`
	ExpiresAt  time.Time           `json:"expires_at" yaml:"expires_at"`
}

// Expired reports whether the entry is dead at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
