// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/content-engine/internal/classify"
	"github.com/pdiddy/content-engine/pkg/types"
)

// ErrNoReferences is reported when a document has no reference passages to
// check its claims against.
var ErrNoReferences = errors.New("no reference passages to verify claims against")

// Claim verdicts.
const (
	VerdictVerified     = "verified"
	VerdictContradicted = "contradicted"
	VerdictUnverified   = "unverified"
)

// minClaimOverlap is the token overlap a reference sentence needs before its
// numbers are compared with a claim.
const minClaimOverlap = 0.3

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)*%?`)

// ClaimVerdict is the verdict on one claim.
type ClaimVerdict struct {
	Claim    string `json:"claim"`
	Verdict  string `json:"verdict"`
	Evidence string `json:"evidence,omitempty"`
}

// ClaimChecker verifies claims against reference text, typically with a
// language model. It must return one verdict per claim, in order.
type ClaimChecker interface {
	CheckClaims(ctx context.Context, claims, references []string) ([]ClaimVerdict, error)
}

// Factual cross-checks numeric claims against the reference passages.
type Factual struct {
	// Checker replaces the built-in number matching when set.
	Checker ClaimChecker
}

// Name implements Validator.
func (f *Factual) Name() string { return types.ValidatorFactual }

// Validate implements Validator.
func (f *Factual) Validate(ctx context.Context, in Input) (types.ValidationResult, error) {
	if len(in.References) == 0 {
		return types.ValidationResult{
			Validator:   types.ValidatorFactual,
			Score:       0,
			Issues:      []string{ErrNoReferences.Error()},
			Suggestions: []string{"retrieve sources before generating"},
			Details:     map[string]any{"claims": 0},
		}, nil
	}

	claims := extractClaims(in.Document.Content)
	var refs []string
	for _, p := range in.References {
		refs = append(refs, sentences(p.Content)...)
	}

	var verdicts []ClaimVerdict
	if f.Checker != nil && len(claims) > 0 {
		var err error
		verdicts, err = f.Checker.CheckClaims(ctx, claims, refs)
		if err != nil {
			return types.ValidationResult{}, fmt.Errorf("checking claims: %w", err)
		}
		if len(verdicts) != len(claims) {
			return types.ValidationResult{}, fmt.Errorf("checking claims: got %d verdicts for %d claims", len(verdicts), len(claims))
		}
		for i, v := range verdicts {
			switch v.Verdict {
			case VerdictVerified, VerdictContradicted, VerdictUnverified:
			default:
				return types.ValidationResult{}, fmt.Errorf("checking claims: unknown verdict %q", v.Verdict)
			}
			verdicts[i].Claim = claims[i]
		}
	} else {
		for _, c := range claims {
			verdicts = append(verdicts, matchClaim(c, refs))
		}
	}

	return scoreVerdicts(verdicts), nil
}

func scoreVerdicts(verdicts []ClaimVerdict) types.ValidationResult {
	var verified, unverified, contradicted []string
	var issues, suggestions []string
	for _, v := range verdicts {
		switch v.Verdict {
		case VerdictVerified:
			verified = append(verified, v.Claim)
		case VerdictContradicted:
			contradicted = append(contradicted, v.Claim)
			issues = append(issues, "claim contradicts sources: "+v.Claim)
		default:
			unverified = append(unverified, v.Claim)
			suggestions = append(suggestions, "cite a source for: "+v.Claim)
		}
	}

	score := 10.0
	if n := len(verdicts); n > 0 {
		score = 10 * (float64(len(verified)) + 0.5*float64(len(unverified))) / float64(n)
	}
	if len(unverified) > 0 && score < 7 {
		issues = append(issues, fmt.Sprintf("%d of %d claims could not be verified", len(unverified), len(verdicts)))
	}

	return types.ValidationResult{
		Validator:   types.ValidatorFactual,
		Passed:      len(contradicted) == 0 && score >= 7,
		Score:       clampScore(score),
		Issues:      issues,
		Suggestions: suggestions,
		Details: map[string]any{
			"claims":       len(verdicts),
			"verified":     verified,
			"unverified":   unverified,
			"contradicted": contradicted,
		},
	}
}

// extractClaims returns the sentences of text that state a number. Age
// markers such as "18+" are not facts.
func extractClaims(text string) []string {
	var out []string
	for _, s := range sentences(text) {
		for _, loc := range numberRe.FindAllStringIndex(s, -1) {
			if loc[1] < len(s) && s[loc[1]] == '+' {
				continue
			}
			out = append(out, s)
			break
		}
	}
	return out
}

// matchClaim finds the reference sentence sharing the most words with claim
// and compares their numbers. A claim whose numbers are all present is
// verified, one sharing none is contradicted, anything else is unverified.
func matchClaim(claim string, refs []string) ClaimVerdict {
	v := ClaimVerdict{Claim: claim, Verdict: VerdictUnverified}
	claimTokens := classify.Tokens(claim)
	if len(claimTokens) == 0 {
		return v
	}

	best, bestOverlap := "", 0.0
	for _, ref := range refs {
		shared := 0
		for tok := range classify.Tokens(ref) {
			if _, ok := claimTokens[tok]; ok {
				shared++
			}
		}
		if o := float64(shared) / float64(len(claimTokens)); o > bestOverlap {
			best, bestOverlap = ref, o
		}
	}
	if bestOverlap < minClaimOverlap {
		return v
	}

	refNums := numbers(best)
	if len(refNums) == 0 {
		return v
	}
	claimNums := numbers(claim)
	found := 0
	for n := range claimNums {
		if refNums[n] {
			found++
		}
	}
	v.Evidence = best
	switch found {
	case len(claimNums):
		v.Verdict = VerdictVerified
	case 0:
		v.Verdict = VerdictContradicted
	}
	return v
}

// numbers returns the normalized numbers in s: thousands separators and
// percent signs are dropped.
func numbers(s string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range numberRe.FindAllString(s, -1) {
		m = strings.TrimSuffix(m, "%")
		if strings.Count(m, ",") > 0 && !strings.Contains(m, ".") {
			m = strings.ReplaceAll(m, ",", "")
		}
		out[m] = true
	}
	return out
}
