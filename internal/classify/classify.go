// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a query type, expertise level, and response
// format to raw query text. Classification is a pure function: the same
// text and hints always produce the same Query.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/content-engine/pkg/types"
)

// typeRule pairs a query type with the phrases that signal it.
type typeRule struct {
	typ     types.QueryType
	phrases []string
}

// typeRules is walked in order; the first rule with a hit wins. News is
// checked first because recency phrasing dominates any other intent.
var typeRules = []typeRule{
	{types.QueryNews, []string{
		"news", "latest", "breaking", "announced", "announcement", "this week", "today", "update on", "just released",
	}},
	{types.QueryComparison, []string{
		"vs", "versus", "compare", "compared", "comparison", "difference between", "better than", "alternatives to",
	}},
	{types.QueryTutorial, []string{
		"how to", "how do i", "how can i", "step by step", "guide", "tutorial", "walkthrough", "setup", "set up", "instructions",
	}},
	{types.QueryReview, []string{
		"review", "reviews", "rating", "ratings", "worth it", "pros and cons", "verdict", "is it good", "legit", "trustworthy",
	}},
	{types.QueryPromotional, []string{
		"bonus", "bonuses", "promo", "promotion", "promotions", "offer", "offers", "deal", "deals", "discount", "free spins", "coupon",
	}},
	{types.QueryTechnical, []string{
		"api", "algorithm", "architecture", "configure", "configuration", "protocol", "implementation", "rtp", "volatility", "specification", "technical",
	}},
	{types.QueryFactual, []string{
		"what is", "what are", "who is", "when did", "when was", "where is", "define", "definition", "meaning of", "explain", "why does",
	}},
}

// expertiseRule pairs an expertise level with the phrases that signal it.
type expertiseRule struct {
	level   types.Expertise
	phrases []string
}

var expertiseRules = []expertiseRule{
	{types.ExpertiseExpert, []string{
		"expert", "professional", "in depth analysis", "edge case", "internals", "optimization", "optimal strategy",
	}},
	{types.ExpertiseAdvanced, []string{
		"advanced", "in depth", "in-depth", "detailed", "strategy", "technical", "deep dive",
	}},
	{types.ExpertiseNovice, []string{
		"never", "complete beginner", "absolute beginner", "for dummies", "eli5", "what is a",
	}},
	{types.ExpertiseBeginner, []string{
		"beginner", "beginners", "basic", "basics", "simple", "introduction", "intro", "getting started", "first time", "new to",
	}},
}

// timeSensitivePhrases mark a query as asking for recent information.
var timeSensitivePhrases = []string{
	"latest", "recent", "recently", "new releases", "new release", "newly released", "new games", "new slots", "new casinos", "newest", "current", "currently", "today", "this week", "this month", "this year", "2024", "2025", "2026",
}

// Classify normalizes raw and assigns type, expertise, and format. Valid
// hints override the heuristics; unknown hint values are ignored. Classify
// never fails: unmatched text yields general/intermediate.
func Classify(raw string, hints types.Hints) types.Query {
	text := Normalize(raw)
	words := wordString(text)

	q := types.Query{
		Raw:           raw,
		Text:          text,
		Type:          detectType(words),
		Expertise:     detectExpertise(words),
		TimeSensitive: containsAny(words, timeSensitivePhrases),
		Tenant:        hints.Tenant,
		Locale:        hints.Locale,
	}

	if hints.Type.Valid() {
		q.Type = hints.Type
	}
	if hints.Expertise.Valid() {
		q.Expertise = hints.Expertise
	}
	q.Format = FormatFor(q.Type)
	return q
}

// Normalize applies NFKC, lower-cases, collapses whitespace, and trims
// trailing punctuation. Two queries that differ only in these respects
// normalize to the same string.
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// FormatFor returns the response format expected for a query type.
func FormatFor(t types.QueryType) types.ResponseFormat {
	switch t {
	case types.QueryTutorial:
		return types.FormatStepByStep
	case types.QueryComparison:
		return types.FormatComparisonTable
	case types.QueryTechnical, types.QueryReview:
		return types.FormatStructured
	default:
		return types.FormatComprehensive
	}
}

func detectType(words string) types.QueryType {
	for _, rule := range typeRules {
		if containsAny(words, rule.phrases) {
			return rule.typ
		}
	}
	return types.QueryGeneral
}

func detectExpertise(words string) types.Expertise {
	for _, rule := range expertiseRules {
		if containsAny(words, rule.phrases) {
			return rule.level
		}
	}
	return types.ExpertiseIntermediate
}

// wordString reduces text to space-separated words padded with a leading
// and trailing space, so phrase lookups match whole words only.
func wordString(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	return " " + strings.Join(fields, " ") + " "
}

func containsAny(words string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(words, " "+p+" ") {
			return true
		}
	}
	return false
}

// Tokens returns the distinct lower-case words of s, skipping words shorter
// than three characters. The scorer and fact checker use it for overlap.
func Tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(wordString(strings.ToLower(norm.NFKC.String(s)))) {
		if len([]rune(w)) < 3 {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}
