// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the content-engine pipeline:
// classified queries, retrieval results, confidence breakdowns, cache entries,
// validation reports, publish decisions, review tickets, and configuration.
package types

// QueryType is the coarse category assigned to a query by the classifier.
// It selects cache TTL, confidence indicators, and format expectations.
type QueryType string

const (
	QueryFactual     QueryType = "factual"
	QueryComparison  QueryType = "comparison"
	QueryTutorial    QueryType = "tutorial"
	QueryReview      QueryType = "review"
	QueryNews        QueryType = "news"
	QueryPromotional QueryType = "promotional"
	QueryTechnical   QueryType = "technical"
	QueryGeneral     QueryType = "general"
)

// QueryTypes lists every QueryType in a stable order.
var QueryTypes = []QueryType{
	QueryFactual, QueryComparison, QueryTutorial, QueryReview,
	QueryNews, QueryPromotional, QueryTechnical, QueryGeneral,
}

// Valid reports whether t is a known query type.
func (t QueryType) Valid() bool {
	for _, known := range QueryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Expertise is the requester's expertise level.
type Expertise string

const (
	ExpertiseNovice       Expertise = "novice"
	ExpertiseBeginner     Expertise = "beginner"
	ExpertiseIntermediate Expertise = "intermediate"
	ExpertiseAdvanced     Expertise = "advanced"
	ExpertiseExpert       Expertise = "expert"
)

// ExpertiseLevels lists every Expertise from least to most experienced.
var ExpertiseLevels = []Expertise{
	ExpertiseNovice, ExpertiseBeginner, ExpertiseIntermediate, ExpertiseAdvanced, ExpertiseExpert,
}

// Valid reports whether e is a known expertise level.
func (e Expertise) Valid() bool {
	for _, known := range ExpertiseLevels {
		if e == known {
			return true
		}
	}
	return false
}

// ResponseFormat is the document shape expected for a query type.
type ResponseFormat string

const (
	FormatComprehensive   ResponseFormat = "comprehensive"
	FormatStepByStep      ResponseFormat = "step_by_step"
	FormatComparisonTable ResponseFormat = "comparison_table"
	FormatStructured      ResponseFormat = "structured"
)

// Query is a classified request. It is a value type and is never modified
// after Classify returns it.
type Query struct {
	// Raw is the text exactly as the caller supplied it.
	Raw string `json:"raw" yaml:"raw"`

	// Text is the normalized form used for cache keys and token overlap.
	Text string `json:"text" yaml:"text"`

	Type      QueryType      `json:"type" yaml:"type"`
	Expertise Expertise      `json:"expertise" yaml:"expertise"`
	Format    ResponseFormat `json:"format" yaml:"format"`

	// TimeSensitive is set when the text carries explicit recency terms.
	TimeSensitive bool `json:"time_sensitive" yaml:"time_sensitive"`

	Tenant string `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Locale string `json:"locale,omitempty" yaml:"locale,omitempty"`
}

// Hints are optional caller declarations that override classifier heuristics.
// Unknown values are ignored.
type Hints struct {
	Type      QueryType `json:"type,omitempty" yaml:"type,omitempty"`
	Expertise Expertise `json:"expertise,omitempty" yaml:"expertise,omitempty"`
	Tenant    string    `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Locale    string    `json:"locale,omitempty" yaml:"locale,omitempty"`
}
