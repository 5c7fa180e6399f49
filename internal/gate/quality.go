// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Quality point budget on the 0-10 scale.
const (
	sectionPoints     = 5.0
	readabilityPoints = 2.0
	grammarPoints     = 2.0
	lengthPoints      = 1.0
	qualityPassScore  = 7.0
)

// Quality checks structure, readability, grammar, and length.
type Quality struct {
	Rules QualityRules
}

// Name implements Validator.
func (q *Quality) Name() string { return types.ValidatorQuality }

// Validate implements Validator.
func (q *Quality) Validate(_ context.Context, in Input) (types.ValidationResult, error) {
	content := in.Document.Content
	var issues, suggestions []string

	// Sections.
	heads := headings(content)
	var missing []string
	for _, sec := range q.Rules.RequiredSections {
		if !hasHeading(heads, sec) {
			missing = append(missing, sec)
		}
	}
	sections := sectionPoints
	if n := len(q.Rules.RequiredSections); n > 0 {
		sections = sectionPoints * float64(n-len(missing)) / float64(n)
	}
	if len(missing) > 0 {
		issues = append(issues, "missing sections: "+strings.Join(missing, ", "))
	}

	// Readability.
	sents := sentences(content)
	total := 0
	for _, s := range sents {
		total += len(words(s))
	}
	avg := 0.0
	if len(sents) > 0 {
		avg = float64(total) / float64(len(sents))
	}
	var readability float64
	switch {
	case avg >= 8 && avg <= 25:
		readability = readabilityPoints
	case avg > 0 && avg <= 35:
		readability = readabilityPoints / 2
		suggestions = append(suggestions, fmt.Sprintf("average sentence length %.1f words; aim for 8 to 25", avg))
	default:
		suggestions = append(suggestions, "rewrite for readability")
	}

	// Grammar.
	grammarIssues := grammarProblems(content, sents)
	grammar := grammarPoints - 0.5*float64(len(grammarIssues))
	if grammar < 0 {
		grammar = 0
	}
	issues = append(issues, grammarIssues...)

	// Length.
	wordCount := len(words(content))
	length := lengthPoints
	if wordCount < q.Rules.MinWords {
		length = 0
		issues = append(issues, fmt.Sprintf("%d words, at least %d required", wordCount, q.Rules.MinWords))
	}

	score := clampScore(sections + readability + grammar + length)
	return types.ValidationResult{
		Validator:   types.ValidatorQuality,
		Passed:      score >= qualityPassScore,
		Score:       score,
		Issues:      issues,
		Suggestions: suggestions,
		Details: map[string]any{
			"missing_sections":   missing,
			"avg_sentence_words": avg,
			"word_count":         wordCount,
			"grammar_issues":     len(grammarIssues),
		},
	}, nil
}

func hasHeading(heads []string, section string) bool {
	section = strings.ToLower(section)
	for _, h := range heads {
		if strings.Contains(h, section) {
			return true
		}
	}
	return false
}

// grammarProblems reports one issue per kind of problem found: repeated
// words, sentences starting in lower case, and unbalanced brackets.
func grammarProblems(content string, sents []string) []string {
	var out []string

	ws := strings.Fields(strings.ToLower(content))
	for i := 1; i < len(ws); i++ {
		a := strings.TrimFunc(ws[i-1], unicode.IsPunct)
		b := strings.TrimFunc(ws[i], unicode.IsPunct)
		if a != "" && a == b && !unicode.IsDigit([]rune(a)[0]) {
			out = append(out, fmt.Sprintf("repeated word: %q", a))
			break
		}
	}

	for _, s := range sents {
		r, _ := utf8.DecodeRuneInString(s)
		if unicode.IsLower(r) {
			out = append(out, "sentence starts in lower case: "+truncate(s, 40))
			break
		}
	}

	if strings.Count(content, "(") != strings.Count(content, ")") ||
		strings.Count(content, "[") != strings.Count(content, "]") {
		out = append(out, "unbalanced brackets")
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
