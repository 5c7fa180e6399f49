// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// SourceKind identifies the family of a source connector. The numeric order
// is the merge priority: vector results come first, then web search, then
// deep research.
type SourceKind int

const (
	SourceVector SourceKind = iota
	SourceWebSearch
	SourceDeepResearch
)

// SourceKinds lists every kind in merge priority order.
var SourceKinds = []SourceKind{SourceVector, SourceWebSearch, SourceDeepResearch}

// String returns the configuration name of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceVector:
		return "vector"
	case SourceWebSearch:
		return "web_search"
	case SourceDeepResearch:
		return "deep_research"
	default:
		return "unknown"
	}
}

// ParseSourceKind maps a configuration name to a SourceKind.
func ParseSourceKind(s string) (SourceKind, bool) {
	for _, k := range SourceKinds {
		if k.String() == s {
			return k, true
		}
	}
	switch s {
	case "web", "search":
		return SourceWebSearch, true
	case "deep", "research":
		return SourceDeepResearch, true
	}
	return 0, false
}

// MarshalText encodes the kind by name for JSON and YAML output.
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *SourceKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseSourceKind(string(b))
	if !ok {
		return fmt.Errorf("unknown source kind %q", string(b))
	}
	*k = parsed
	return nil
}

// Origin is provenance metadata for a passage.
type Origin struct {
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// PublishedAt is zero when the source does not report a date.
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`

	// Authority and Credibility are source-quality signals in [0,1].
	// Zero means unknown; the scorer substitutes a neutral value.
	Authority   float64 `json:"authority,omitempty" yaml:"authority,omitempty"`
	Credibility float64 `json:"credibility,omitempty" yaml:"credibility,omitempty"`
}

// Passage is one piece of retrieved content.
type Passage struct {
	Content   string  `json:"content" yaml:"content"`
	Origin    Origin  `json:"origin" yaml:"origin"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

// SourceResult is the outcome of one connector call. A failed call carries
// Success=false and an error description, never a Go error.
type SourceResult struct {
	Kind     SourceKind    `json:"kind" yaml:"kind"`
	Name     string        `json:"name" yaml:"name"`
	Passages []Passage     `json:"passages" yaml:"passages"`
	Success  bool          `json:"success" yaml:"success"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Failed builds a failed SourceResult.
func Failed(kind SourceKind, name, reason string) SourceResult {
	return SourceResult{Kind: kind, Name: name, Error: reason}
}

// RetrievalBundle aggregates all source results for one query.
type RetrievalBundle struct {
	// Results holds one entry per enabled source, in priority order.
	Results []SourceResult `json:"results" yaml:"results"`

	// Passages is the merged, deduplicated passage list in priority order.
	Passages []Passage `json:"passages" yaml:"passages"`

	// Context is the merged context string handed to generation.
	Context string `json:"context" yaml:"context"`

	// Degraded is set when no source succeeded.
	Degraded bool `json:"degraded" yaml:"degraded"`

	DupsRemoved int `json:"dups_removed" yaml:"dups_removed"`
}

// Successful returns the results of sources that succeeded.
func (b RetrievalBundle) Successful() []SourceResult {
	var out []SourceResult
	for _, r := range b.Results {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// Errors returns "name: error" lines for failed sources.
func (b RetrievalBundle) Errors() []string {
	var out []string
	for _, r := range b.Results {
		if !r.Success {
			out = append(out, r.Name+": "+r.Error)
		}
	}
	return out
}
