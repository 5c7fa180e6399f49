// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/content-engine/pkg/types"
)

var firstPerson = map[string]bool{"i": true, "me": true, "my": true, "mine": true, "i'm": true, "i've": true}

// Style checks content against brand guidelines.
type Style struct {
	Guidelines BrandGuidelines
}

// Name implements Validator.
func (s *Style) Name() string { return types.ValidatorStyle }

// Validate implements Validator.
func (s *Style) Validate(_ context.Context, in Input) (types.ValidationResult, error) {
	g := s.Guidelines
	content := in.Document.Content
	lower := strings.ToLower(content)
	score := 10.0
	var issues, suggestions []string

	var banned []string
	for _, term := range g.ProhibitedTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			banned = append(banned, term)
			score -= 1.5
			issues = append(issues, fmt.Sprintf("prohibited brand term: %q", term))
		}
	}

	exclamations := strings.Count(content, "!")
	if g.MaxExclamations > 0 && exclamations > g.MaxExclamations {
		score--
		issues = append(issues, fmt.Sprintf("%d exclamation marks, at most %d allowed", exclamations, g.MaxExclamations))
	}

	sents := sentences(content)
	long := 0
	for _, sent := range sents {
		if g.MaxSentenceWords > 0 && len(words(sent)) > g.MaxSentenceWords {
			long++
		}
	}
	if len(sents) > 0 && float64(long)/float64(len(sents)) > 0.2 {
		score--
		suggestions = append(suggestions, fmt.Sprintf("shorten sentences to at most %d words", g.MaxSentenceWords))
	}

	firstPersonHits := 0
	if g.ForbidFirstPerson {
		for _, w := range words(content) {
			if firstPerson[w] {
				firstPersonHits++
			}
		}
		if firstPersonHits > 0 {
			score--
			issues = append(issues, "first person voice is not allowed")
		}
	}

	var missingVoice []string
	for _, term := range g.RequiredTerms {
		if !strings.Contains(lower, strings.ToLower(term)) {
			missingVoice = append(missingVoice, term)
			score -= 0.5
			suggestions = append(suggestions, fmt.Sprintf("use the brand term %q", term))
		}
	}

	score = clampScore(score)
	return types.ValidationResult{
		Validator:   types.ValidatorStyle,
		Passed:      len(banned) == 0 && score >= 7,
		Score:       score,
		Issues:      issues,
		Suggestions: suggestions,
		Details: map[string]any{
			"prohibited_terms":    banned,
			"exclamations":        exclamations,
			"long_sentences":      long,
			"first_person":        firstPersonHits,
			"missing_voice_terms": missingVoice,
		},
	}, nil
}
