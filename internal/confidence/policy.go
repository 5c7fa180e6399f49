// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package confidence

import (
	"time"

	"github.com/pdiddy/content-engine/pkg/types"
)

// DefaultPolicy returns the empirical defaults of the confidence model.
func DefaultPolicy() types.ConfidencePolicy {
	return types.ConfidencePolicy{
		ExpectedLength:             500,
		CompletenessWeight:         0.5,
		AlignmentWeight:            0.5,
		RetrievalWeight:            0.2,
		DegradedPenalty:            -0.15,
		SourceCountBonus:           0.02,
		SourceCountMax:             0.06,
		ClassificationBonus:        0.10,
		ClassificationPartialBonus: 0.05,
		ExpertiseBonus:             0.05,
		ExpertisePartialBonus:      0.02,
		FormatBonus:                0.05,
		SourceQualityTiers: []types.Tier{
			{Min: 0.9, Bonus: 0.10},
			{Min: 0.8, Bonus: 0.07},
			{Min: 0.7, Bonus: 0.05},
			{Min: 0.6, Bonus: 0.02},
		},
		FreshnessTiers: []types.Tier{
			{Min: 0.8, Bonus: 0.05},
			{Min: 0.5, Bonus: 0.03},
			{Min: 0.3, Bonus: 0.01},
		},
		FreshnessWindow: 30 * 24 * time.Hour,
	}
}

// typeIndicators are phrases expected in a document that answers a query of
// the given type. The share present drives the classification bonus.
var typeIndicators = map[types.QueryType][]string{
	types.QueryFactual:     {"definition", "explanation", "is defined as"},
	types.QueryComparison:  {"vs", "versus", "compared to", "difference", "better", "worse"},
	types.QueryTutorial:    {"step", "first", "then", "how to", "instructions"},
	types.QueryReview:      {"rating", "pros", "cons", "verdict", "recommend"},
	types.QueryNews:        {"breaking", "updated", "recently", "announced"},
	types.QueryPromotional: {"bonus", "offer", "promotion", "deal", "discount"},
	types.QueryTechnical:   {"specification", "configuration", "parameter", "implementation", "algorithm"},
}

// expectedComplexity is the vocabulary complexity each expertise level reads comfortably.
var expectedComplexity = map[types.Expertise]float64{
	types.ExpertiseNovice:       0.2,
	types.ExpertiseBeginner:     0.4,
	types.ExpertiseIntermediate: 0.6,
	types.ExpertiseAdvanced:     0.8,
	types.ExpertiseExpert:       1.0,
}

// technicalTerms raise the measured complexity of a document.
var technicalTerms = []string{
	"algorithm", "variance", "volatility", "rtp", "probability", "expected value",
	"house edge", "regulation", "licensing", "encryption", "protocol", "implementation",
	"configuration", "architecture", "statistical", "methodology",
}

// formatMarkers are the phrases whose presence shows the document took the
// shape expected for the query type.
var formatMarkers = map[types.QueryType][]string{
	types.QueryComparison:  {"vs", "compared to", "while", "whereas"},
	types.QueryTutorial:    {"step", "first", "then", "next"},
	types.QueryReview:      {"rating", "pros", "cons", "verdict"},
	types.QueryNews:        {"recently", "announced", "updated", "breaking"},
	types.QueryPromotional: {"offer", "bonus", "terms", "conditions"},
}

// hedgePhrases disqualify a factual answer from the format bonus.
var hedgePhrases = []string{"i think", "maybe", "probably", "not sure"}
