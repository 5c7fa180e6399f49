// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confidence scores a generated document for trustworthiness. The
// score is a base measure of completeness and query alignment plus named
// bonuses and penalties, each recorded in the breakdown, clamped to [0,1].
package confidence

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/pkg/types"
)

// Scorer computes ConfidenceBreakdowns. Score has no side effects; with a
// fixed Now it is deterministic.
type Scorer struct {
	Policy types.ConfidencePolicy

	// Now supplies the reference time for freshness. Nil means time.Now.
	Now func() time.Time
}

// NewScorer returns a Scorer using policy.
func NewScorer(policy types.ConfidencePolicy) *Scorer {
	return &Scorer{Policy: policy}
}

// Score computes the confidence breakdown of text generated for q from bundle.
func (s *Scorer) Score(q types.Query, text string, bundle types.RetrievalBundle) types.ConfidenceBreakdown {
	p := s.Policy
	words := wordString(text)

	completeness := 0.0
	if p.ExpectedLength > 0 {
		completeness = math.Min(float64(len([]rune(text)))/float64(p.ExpectedLength), 1)
	}
	alignment := tokenOverlap(q.Text, text)
	base := clamp(p.CompletenessWeight*completeness + p.AlignmentWeight*alignment)

	b := types.ConfidenceBreakdown{
		Base:         base,
		Completeness: completeness,
		Alignment:    alignment,
		Score:        base,
	}

	apply(&b, types.ContribRetrievalQuality, s.retrievalQuality(bundle))
	apply(&b, types.ContribSourceCount, math.Min(p.SourceCountBonus*float64(len(bundle.Successful())), p.SourceCountMax))
	apply(&b, types.ContribClassification, s.classificationBonus(q.Type, words))
	apply(&b, types.ContribExpertiseMatch, s.expertiseBonus(q.Expertise, words))
	apply(&b, types.ContribFormatMatch, s.formatBonus(q.Type, words))
	apply(&b, types.ContribSourceQuality, s.sourceQualityBonus(bundle))
	if q.TimeSensitive || timeSensitiveType(q.Type) {
		apply(&b, types.ContribFreshness, s.freshnessBonus(bundle))
	}
	return b
}

// apply adds delta to the running score, clamping to [0,1], and records the
// effective change. Zero changes are not recorded, so the recorded values
// always sum to Score - Base.
func apply(b *types.ConfidenceBreakdown, name string, delta float64) {
	next := clamp(b.Score + delta)
	effective := next - b.Score
	if effective == 0 {
		return
	}
	b.Contributions = append(b.Contributions, types.Contribution{Name: name, Value: effective})
	b.Score = next
}

// retrievalQuality rewards passages whose mean relevance is above 0.5 and
// penalizes below it. A degraded bundle takes the fixed penalty.
func (s *Scorer) retrievalQuality(bundle types.RetrievalBundle) float64 {
	if bundle.Degraded {
		return s.Policy.DegradedPenalty
	}
	if len(bundle.Passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range bundle.Passages {
		sum += clamp(p.Relevance)
	}
	mean := sum / float64(len(bundle.Passages))
	return (mean - 0.5) * s.Policy.RetrievalWeight
}

// classificationBonus measures how many of the type's indicator phrases the
// document uses.
func (s *Scorer) classificationBonus(t types.QueryType, words string) float64 {
	var indicators []string
	switch t {
	case types.QueryFactual, types.QueryComparison, types.QueryTutorial, types.QueryReview,
		types.QueryNews, types.QueryPromotional, types.QueryTechnical:
		indicators = typeIndicators[t]
	default:
		return 0
	}
	ratio := float64(countPresent(words, indicators)) / float64(len(indicators))
	switch {
	case ratio >= 0.6:
		return s.Policy.ClassificationBonus
	case ratio >= 0.3:
		return s.Policy.ClassificationPartialBonus
	}
	return 0
}

// expertiseBonus compares the document's vocabulary complexity with the
// complexity expected for the requester's expertise.
func (s *Scorer) expertiseBonus(e types.Expertise, words string) float64 {
	expected, ok := expectedComplexity[e]
	if !ok {
		return 0
	}
	match := 1 - math.Abs(Complexity(words)-expected)
	switch {
	case match >= 0.8:
		return s.Policy.ExpertiseBonus
	case match >= 0.6:
		return s.Policy.ExpertisePartialBonus
	}
	return 0
}

// Complexity estimates vocabulary complexity in [0,1] from the share of long
// words and the number of technical terms. words must come from wordString.
func Complexity(words string) float64 {
	fields := strings.Fields(words)
	if len(fields) == 0 {
		return 0
	}
	long := 0
	for _, w := range fields {
		if len([]rune(w)) >= 9 {
			long++
		}
	}
	longRatio := float64(long) / float64(len(fields))
	return clamp(longRatio*2 + float64(countPresent(words, technicalTerms))/10)
}

// formatBonus checks for the markers expected of the query type's format.
func (s *Scorer) formatBonus(t types.QueryType, words string) float64 {
	switch t {
	case types.QueryFactual:
		if len(strings.Fields(words)) > 20 && countPresent(words, hedgePhrases) == 0 {
			return s.Policy.FormatBonus
		}
	case types.QueryComparison, types.QueryTutorial, types.QueryReview, types.QueryNews, types.QueryPromotional:
		if countPresent(words, formatMarkers[t]) > 0 {
			return s.Policy.FormatBonus
		}
	}
	return 0
}

// sourceQualityBonus tiers the mean authority/credibility of the merged
// passages. Unknown values count as 0.5.
func (s *Scorer) sourceQualityBonus(bundle types.RetrievalBundle) float64 {
	if len(bundle.Passages) == 0 {
		return 0
	}
	var sum float64
	for _, p := range bundle.Passages {
		sum += (orNeutral(p.Origin.Authority) + orNeutral(p.Origin.Credibility)) / 2
	}
	return tierBonus(s.Policy.SourceQualityTiers, sum/float64(len(bundle.Passages)))
}

// freshnessBonus tiers the share of passages published within the window.
func (s *Scorer) freshnessBonus(bundle types.RetrievalBundle) float64 {
	if len(bundle.Passages) == 0 {
		return 0
	}
	now := s.now()
	fresh := 0
	for _, p := range bundle.Passages {
		pub := p.Origin.PublishedAt
		if pub.IsZero() || pub.After(now) {
			continue
		}
		if now.Sub(pub) <= s.Policy.FreshnessWindow {
			fresh++
		}
	}
	return tierBonus(s.Policy.FreshnessTiers, float64(fresh)/float64(len(bundle.Passages)))
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func timeSensitiveType(t types.QueryType) bool {
	switch t {
	case types.QueryNews, types.QueryReview, types.QueryPromotional:
		return true
	}
	return false
}

func tierBonus(tiers []types.Tier, v float64) float64 {
	for _, tier := range tiers {
		if v >= tier.Min {
			return tier.Bonus
		}
	}
	return 0
}

func tokenOverlap(query, text string) float64 {
	qt := classify.Tokens(query)
	if len(qt) == 0 {
		return 0
	}
	tt := classify.Tokens(text)
	hits := 0
	for tok := range qt {
		if _, ok := tt[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qt))
}

// wordString lower-cases text to space-separated words padded with a
// leading and trailing space, for whole-word phrase lookups.
func wordString(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

func countPresent(words string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(words, " "+p+" ") {
			n++
		}
	}
	return n
}

func orNeutral(v float64) float64 {
	if v <= 0 {
		return 0.5
	}
	return clamp(v)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
