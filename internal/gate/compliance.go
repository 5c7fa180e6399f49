// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Compliance penalties on the 0-10 scale.
const (
	missingDisclosurePenalty   = 2.0
	prohibitedClaimPenalty     = 3.0
	jurisdictionMissingPenalty = 2.0
	jurisdictionTermPenalty    = 2.0
)

type namedRegexp struct {
	name string
	re   *regexp.Regexp
}

// Compliance checks regulatory disclosures, prohibited claims, and
// jurisdiction rules.
type Compliance struct {
	disclosures   []namedRegexp
	prohibited    []namedRegexp
	jurisdictions map[string]JurisdictionRule
}

// NewCompliance compiles the compliance rules.
func NewCompliance(rules ComplianceRules) (*Compliance, error) {
	c := &Compliance{jurisdictions: make(map[string]JurisdictionRule, len(rules.Jurisdictions))}
	for _, p := range rules.Disclosures {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling disclosure %s: %w", p.Name, err)
		}
		c.disclosures = append(c.disclosures, namedRegexp{name: p.Name, re: re})
	}
	for _, p := range rules.Prohibited {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling prohibited claim %s: %w", p.Name, err)
		}
		c.prohibited = append(c.prohibited, namedRegexp{name: p.Name, re: re})
	}
	for code, rule := range rules.Jurisdictions {
		c.jurisdictions[strings.ToUpper(code)] = rule
	}
	return c, nil
}

// Name implements Validator.
func (c *Compliance) Name() string { return types.ValidatorCompliance }

// Validate implements Validator.
func (c *Compliance) Validate(_ context.Context, in Input) (types.ValidationResult, error) {
	content := in.Document.Content
	lower := strings.ToLower(content)
	score := 10.0
	var issues, suggestions, missing, violations []string

	for _, d := range c.disclosures {
		if !d.re.MatchString(content) {
			missing = append(missing, d.name)
			score -= missingDisclosurePenalty
			issues = append(issues, "missing required disclosure: "+d.name)
			suggestions = append(suggestions, "add a "+strings.ReplaceAll(d.name, "_", " ")+" statement")
		}
	}
	for _, p := range c.prohibited {
		if p.re.MatchString(content) {
			violations = append(violations, p.name)
			score -= prohibitedClaimPenalty
			issues = append(issues, "prohibited claim: "+p.name)
		}
	}

	applied := []string{}
	for _, code := range in.jurisdictions() {
		rule, ok := c.jurisdictions[code]
		if !ok {
			continue
		}
		applied = append(applied, code)
		for _, req := range rule.Required {
			if !strings.Contains(lower, strings.ToLower(req)) {
				missing = append(missing, code+":"+req)
				score -= jurisdictionMissingPenalty
				issues = append(issues, fmt.Sprintf("missing %s disclaimer: %q", code, req))
			}
		}
		for _, term := range rule.Prohibited {
			if strings.Contains(lower, strings.ToLower(term)) {
				violations = append(violations, code+":"+term)
				score -= jurisdictionTermPenalty
				issues = append(issues, fmt.Sprintf("term prohibited in %s: %q", code, term))
			}
		}
	}
	sort.Strings(applied)

	return types.ValidationResult{
		Validator:   types.ValidatorCompliance,
		Passed:      len(missing) == 0 && len(violations) == 0,
		Score:       clampScore(score),
		Issues:      issues,
		Suggestions: suggestions,
		Details: map[string]any{
			"missing_disclosures": missing,
			"violations":          violations,
			"jurisdictions":       applied,
		},
	}, nil
}
