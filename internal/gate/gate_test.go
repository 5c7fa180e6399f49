// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/content-engine/pkg/types"
)

const reviewDoc = `# Acme Casino Review

## Introduction
Acme Casino is a licensed online casino that welcomes players across Europe with a broad catalogue of games. This review looks at the games, bonuses, payments, support, and mobile experience in detail. Readers should compare several operators before choosing where to play.

## Games
Acme Casino offers 2,000 slot games from 40 providers. The library includes classic fruit machines, modern video slots, and progressive jackpot titles. Table game fans will find several versions of blackjack, roulette, and baccarat. A live dealer studio streams tables throughout the day with professional hosts.

## Bonuses
New customers can claim a welcome package after registration and a first deposit. Wagering requirements apply to every offer, so players should read the terms carefully. Regular promotions include reload offers, tournaments, and a loyalty programme that rewards steady play over time.

## Payments
The cashier supports debit cards, bank transfers, and popular electronic wallets. Withdrawals take 24 hours on average once the account has been verified. Players should complete identity checks early to avoid delays when requesting a payout.

## Support
Customer support is available by live chat and email every day of the week. Agents answered test questions quickly and explained account rules clearly. A detailed help centre covers verification, deposits, and common technical problems.

## Mobile
The mobile site runs smoothly in modern browsers on phones and tablets. Most games load quickly and the cashier works the same way as on desktop. A dedicated app is also available for players who prefer installing software.

## Conclusion
Acme Casino is a solid choice for players who value game variety and reliable payments. The bonus terms are fair but deserve careful reading before opting in. Overall, the operator delivers a polished experience across desktop and mobile.

## Disclaimer
This page contains affiliate links and the publisher may earn a commission from partner operators. Gambling is for adults aged 18+ only. Please gamble responsibly and seek help if gambling stops being fun.
`

var references = []types.Passage{
	{Content: "Acme Casino offers 2,000 slot games from 40 providers. The site is licensed in Malta."},
	{Content: "Withdrawals at Acme Casino take 24 hours on average."},
}

func doc(content string) types.Document {
	return types.Document{ID: "doc-1", Content: content}
}

// --- State machine ---

func TestMachine(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, types.GatePending, m.State())

	err := m.Transition(types.GateApproved)
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Transition(types.GateValidating))
	require.NoError(t, m.Transition(types.GatePendingHumanReview))

	for _, to := range []types.GateState{types.GatePending, types.GateValidating, types.GateApproved, types.GateRejected} {
		assert.ErrorIs(t, m.Transition(to), ErrInvalidTransition, "out of terminal state to %s", to)
	}
	assert.Equal(t, types.GatePendingHumanReview, m.State())
}

// --- Compliance ---

func TestCompliance(t *testing.T) {
	c, err := NewCompliance(DefaultRules().Compliance)
	require.NoError(t, err)

	tests := []struct {
		name          string
		content       string
		locale        string
		jurisdictions []string
		wantPassed    bool
		wantScore     float64
		wantIssue     string
	}{
		{"compliant", reviewDoc, "", nil, true, 10, ""},
		{"missing age gate", strings.ReplaceAll(reviewDoc, "adults aged 18+ only", "everyone"), "", nil, false, 8, "age_verification"},
		{"guaranteed wins", reviewDoc + "\nPlayers enjoy guaranteed big wins every night.", "", nil, false, 7, "guaranteed_wins"},
		{"underage targeting", reviewDoc + "\nThe games are great for kids.", "", nil, false, 7, "underage_targeting"},
		{"UK locale requires gambleaware", reviewDoc, "en-GB", nil, false, 8, "gambleaware.org"},
		{"UK satisfied", reviewDoc + "\nVisit begambleaware.org for support.", "en_GB", nil, true, 10, ""},
		{"DE tag prohibits garantiert", reviewDoc + "\nGewinne garantiert. spielen-mit-verantwortung.de", "", []string{"de"}, false, 8, "garantiert"},
		{"unknown jurisdiction ignored", reviewDoc, "fr-FR", []string{"XX"}, true, 10, ""},
		{"everything missing floors at zero", "Guaranteed wins for kids, a medical cure and a sure investment.", "en-US", nil, false, 0, "prohibited claim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Validate(context.Background(), Input{
				Document:      doc(tt.content),
				Locale:        tt.locale,
				Jurisdictions: tt.jurisdictions,
			})
			require.NoError(t, err)
			assert.Equal(t, types.ValidatorCompliance, res.Validator)
			assert.Equal(t, tt.wantPassed, res.Passed, "issues: %v", res.Issues)
			assert.InDelta(t, tt.wantScore, res.Score, 1e-9, "issues: %v", res.Issues)
			if tt.wantIssue != "" {
				assert.Contains(t, strings.Join(res.Issues, "\n"), tt.wantIssue)
			} else {
				assert.Empty(t, res.Issues)
			}
		})
	}
}

func TestInputJurisdictions(t *testing.T) {
	tests := []struct {
		locale string
		tags   []string
		want   []string
	}{
		{"en-GB", nil, []string{"UK"}},
		{"de", nil, []string{"DE"}},
		{"de_DE", []string{"de", "us"}, []string{"DE", "US"}},
		{"", []string{"uk"}, []string{"UK"}},
		{"en", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, Input{Locale: tt.locale, Jurisdictions: tt.tags}.jurisdictions())
		})
	}
}

// --- Factual ---

func TestFactualNoReferences(t *testing.T) {
	res, err := (&Factual{}).Validate(context.Background(), Input{Document: doc(reviewDoc)})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Zero(t, res.Score)
	assert.Equal(t, []string{ErrNoReferences.Error()}, res.Issues)
}

func TestFactualClaims(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantPassed bool
		wantScore  float64
		wantDetail string
	}{
		{"verified", reviewDoc, true, 10, "verified"},
		{"contradicted", "Acme Casino offers 3,000 slot games from 50 providers.", false, 0, "contradicted"},
		{"unverified", "The loyalty scheme has 7 tiers for regular customers.", false, 5, "unverified"},
		{"no claims", "Acme Casino is a friendly place to play.", true, 10, ""},
		{"age marker is not a claim", "Gambling is for adults aged 18+ only.", true, 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&Factual{}).Validate(context.Background(), Input{Document: doc(tt.content), References: references})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPassed, res.Passed)
			assert.InDelta(t, tt.wantScore, res.Score, 1e-9)
			if tt.wantDetail != "" {
				assert.NotEmpty(t, res.Details[tt.wantDetail])
			}
		})
	}
}

type stubChecker struct {
	verdicts []ClaimVerdict
	err      error
}

func (s stubChecker) CheckClaims(context.Context, []string, []string) ([]ClaimVerdict, error) {
	return s.verdicts, s.err
}

func TestFactualChecker(t *testing.T) {
	in := Input{Document: doc(reviewDoc), References: references}

	t.Run("verdicts are scored", func(t *testing.T) {
		f := &Factual{Checker: stubChecker{verdicts: []ClaimVerdict{{Verdict: VerdictVerified}, {Verdict: VerdictContradicted}}}}
		res, err := f.Validate(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, res.Passed)
		assert.InDelta(t, 5.0, res.Score, 1e-9)
		assert.Contains(t, res.Issues[0], "Withdrawals take 24 hours")
	})

	t.Run("unknown verdict is an error", func(t *testing.T) {
		f := &Factual{Checker: stubChecker{verdicts: []ClaimVerdict{{Verdict: "maybe"}, {Verdict: VerdictVerified}}}}
		_, err := f.Validate(context.Background(), in)
		assert.ErrorContains(t, err, "unknown verdict")
	})

	t.Run("verdict count mismatch is an error", func(t *testing.T) {
		f := &Factual{Checker: stubChecker{verdicts: []ClaimVerdict{{Verdict: VerdictVerified}}}}
		_, err := f.Validate(context.Background(), in)
		assert.Error(t, err)
	})

	t.Run("checker failure is an error", func(t *testing.T) {
		f := &Factual{Checker: stubChecker{err: errors.New("model offline")}}
		_, err := f.Validate(context.Background(), in)
		assert.ErrorContains(t, err, "model offline")
	})
}

// --- Style ---

func TestStyle(t *testing.T) {
	s := &Style{Guidelines: DefaultRules().Brand}
	tests := []struct {
		name       string
		content    string
		wantPassed bool
		wantScore  float64
	}{
		{"clean", reviewDoc, true, 10},
		{"prohibited term", reviewDoc + "\nThis is free money.", false, 8.5},
		{"first person", reviewDoc + "\nI liked the lobby.", true, 9},
		{"exclamations", reviewDoc + "\nWow! Great! Fast! Fun!", true, 9},
		{"many faults", "I think this is cheap! Free money! No risk! Get rich!", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Validate(context.Background(), Input{Document: doc(tt.content)})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPassed, res.Passed, "issues: %v", res.Issues)
			assert.InDelta(t, tt.wantScore, res.Score, 1e-9, "issues: %v", res.Issues)
		})
	}

	t.Run("required voice terms", func(t *testing.T) {
		g := DefaultRules().Brand
		g.RequiredTerms = []string{"Acme Casino", "play smart"}
		res, err := (&Style{Guidelines: g}).Validate(context.Background(), Input{Document: doc(reviewDoc)})
		require.NoError(t, err)
		assert.InDelta(t, 9.5, res.Score, 1e-9)
		assert.Equal(t, []string{"play smart"}, res.Details["missing_voice_terms"])
	})
}

// --- Quality ---

func TestQuality(t *testing.T) {
	q := &Quality{Rules: DefaultRules().Quality}

	res, err := q.Validate(context.Background(), Input{Document: doc(reviewDoc)})
	require.NoError(t, err)
	assert.True(t, res.Passed, "issues: %v", res.Issues)
	assert.InDelta(t, 10.0, res.Score, 1e-9, "issues: %v", res.Issues)

	t.Run("missing sections", func(t *testing.T) {
		content := strings.Replace(reviewDoc, "## Mobile", "## Apps", 1)
		content = strings.Replace(content, "## Support", "## Help", 1)
		res, err := q.Validate(context.Background(), Input{Document: doc(content)})
		require.NoError(t, err)
		assert.InDelta(t, 10-2*sectionPoints/8, res.Score, 1e-9)
		assert.Equal(t, []string{"support", "mobile"}, res.Details["missing_sections"])
	})

	t.Run("grammar problems", func(t *testing.T) {
		content := reviewDoc + "\nThe the cashier is fast. it works (mostly."
		res, err := q.Validate(context.Background(), Input{Document: doc(content)})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Details["grammar_issues"])
		assert.InDelta(t, 8.5, res.Score, 1e-9)
	})

	t.Run("short document fails", func(t *testing.T) {
		res, err := q.Validate(context.Background(), Input{Document: doc("## Introduction\nToo short.")})
		require.NoError(t, err)
		assert.False(t, res.Passed)
		assert.Less(t, res.Score, qualityPassScore)
	})
}

// --- Aggregation ---

func results(compliance, factual, style, quality float64) []types.ValidationResult {
	mk := func(name string, score float64, issue string) types.ValidationResult {
		r := types.ValidationResult{Validator: name, Score: score, Passed: score >= 7}
		if !r.Passed {
			r.Issues = []string{issue}
		}
		return r
	}
	return []types.ValidationResult{
		mk(types.ValidatorCompliance, compliance, "missing required disclosure: age_verification"),
		mk(types.ValidatorFactual, factual, "claim contradicts sources"),
		mk(types.ValidatorStyle, style, "prohibited brand term"),
		mk(types.ValidatorQuality, quality, "missing sections"),
	}
}

func TestAggregateMissingAgeGate(t *testing.T) {
	r := Aggregate(results(3, 8, 9, 8.5), types.LevelStandard, DefaultConfig(), Reviewer{})

	assert.Less(t, r.OverallScore, 7.0)
	assert.Contains(t, r.BlockingIssues, "compliance: missing required disclosure: age_verification")
	assert.True(t, r.HumanReviewRequired, "compliance below 5 needs a human")
	assert.Equal(t, types.GatePendingHumanReview, r.State)
	assert.Equal(t, types.ComplianceFailed, r.Compliance)
	assert.False(t, Decide(r, time.Time{}).Approved)
}

func TestAggregateAllPass(t *testing.T) {
	r := Aggregate(results(9, 8, 8.5, 9), types.LevelStandard, DefaultConfig(), Reviewer{})

	assert.InDelta(t, 0.3*9+0.25*8+0.2*8.5+0.25*9, r.OverallScore, 1e-9)
	assert.Empty(t, r.BlockingIssues)
	assert.Empty(t, r.Warnings)
	assert.False(t, r.HumanReviewRequired)
	assert.Equal(t, types.GateApproved, r.State)
	assert.Equal(t, types.CompliancePassed, r.Compliance)
	assert.Equal(t, types.QualityGood, r.Quality)

	d := Decide(r, time.Time{})
	assert.True(t, d.Approved)
	assert.False(t, d.HumanReviewRequired)
}

func TestAggregateHumanReview(t *testing.T) {
	tests := []struct {
		name     string
		results  []types.ValidationResult
		level    types.ValidationLevel
		reviewer Reviewer
		want     types.GateState
	}{
		{"premium without reviewer escalates", results(9, 9, 9, 9), types.LevelPremium, Reviewer{}, types.GatePendingHumanReview},
		{"premium with approving reviewer", results(9, 9, 9, 9), types.LevelPremium, Reviewer{Available: true, Approved: true}, types.GateApproved},
		{"premium with rejecting reviewer", results(9, 9, 9, 9), types.LevelPremium, Reviewer{Available: true}, types.GatePendingHumanReview},
		{"reviewer cannot override a failure", results(9, 5.5, 9, 9), types.LevelStandard, Reviewer{Available: true, Approved: true}, types.GatePendingHumanReview},
		{"warning only rejects", results(9, 9, 6, 9), types.LevelStandard, Reviewer{}, types.GateRejected},
		{"strict level has no extra rule", results(9, 9, 9, 9), types.LevelStrict, Reviewer{}, types.GateApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Aggregate(tt.results, tt.level, DefaultConfig(), tt.reviewer)
			assert.Equal(t, tt.want, r.State)
		})
	}
}

func TestAggregateWarnings(t *testing.T) {
	r := Aggregate(results(9, 9, 6, 9), types.LevelStandard, DefaultConfig(), Reviewer{})
	assert.Empty(t, r.BlockingIssues)
	assert.Equal(t, []string{"style: prohibited brand term"}, r.Warnings)
	assert.Equal(t, types.ComplianceWarning, r.Compliance)
}

func TestAggregateMonotonicity(t *testing.T) {
	scores := []float64{0, 2.5, 4.99, 5, 7, 10}
	for _, c := range scores {
		for _, f := range scores {
			for _, s := range scores {
				for _, q := range scores {
					r := Aggregate(results(c, f, s, q), types.LevelStandard, DefaultConfig(), Reviewer{Available: true, Approved: true})
					if c < 5 || f < 5 || s < 5 || q < 5 {
						require.NotEmpty(t, r.BlockingIssues, "%v %v %v %v", c, f, s, q)
						require.NotEqual(t, types.GateApproved, r.State)
					}
				}
			}
		}
	}

	// A passing validator with a low score still blocks.
	res := results(9, 9, 9, 9)
	res[2].Score = 4
	r := Aggregate(res, types.LevelStandard, DefaultConfig(), Reviewer{})
	assert.Equal(t, []string{"style: score 4.0 below 5.0"}, r.BlockingIssues)
}

func TestBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  types.QualityBucket
	}{
		{9.5, types.QualityExcellent},
		{9, types.QualityExcellent},
		{8, types.QualityGood},
		{7.5, types.QualityGood},
		{6.5, types.QualityAcceptable},
		{3, types.QualityPoor},
		{2.9, types.QualityFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.score), "score %v", tt.score)
	}
}

// --- Run ---

type stubValidator struct {
	name   string
	score  float64
	delay  time.Duration
	panics bool
	err    error
}

func (s stubValidator) Name() string { return s.name }

func (s stubValidator) Validate(ctx context.Context, _ Input) (types.ValidationResult, error) {
	if s.panics {
		panic("validator exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return types.ValidationResult{}, ctx.Err()
		}
	}
	if s.err != nil {
		return types.ValidationResult{}, s.err
	}
	return types.ValidationResult{Score: s.score, Passed: s.score >= 7}, nil
}

func stubGate(validators ...Validator) *Gate {
	cfg := DefaultConfig()
	cfg.ValidatorTimeout = 50 * time.Millisecond
	cfg.Deadline = time.Second
	return &Gate{
		Validators: validators,
		Config:     cfg,
		NewID:      func() string { return "report-1" },
		Now:        func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestRunWithBuiltInValidators(t *testing.T) {
	g, err := New(DefaultConfig(), DefaultRules(), nil, nil)
	require.NoError(t, err)

	r, err := g.Run(context.Background(), Input{Document: doc(reviewDoc), References: references}, types.LevelStandard, Reviewer{})
	require.NoError(t, err)

	assert.Equal(t, types.GateApproved, r.State, "blocking: %v warnings: %v", r.BlockingIssues, r.Warnings)
	assert.False(t, r.HumanReviewRequired)
	assert.Equal(t, "doc-1", r.DocumentID)
	assert.NotEmpty(t, r.ID)
	assert.Len(t, r.Results, 4)
	for _, res := range r.Results {
		assert.GreaterOrEqual(t, res.Score, 8.0, res.Validator)
	}
}

func TestRunValidatorFailures(t *testing.T) {
	tests := []struct {
		name      string
		validator stubValidator
		wantIssue string
	}{
		{"panic", stubValidator{name: types.ValidatorStyle, panics: true}, "validator error: panic: validator exploded"},
		{"error", stubValidator{name: types.ValidatorStyle, err: errors.New("rules unavailable")}, "validator error: rules unavailable"},
		{"timeout", stubValidator{name: types.ValidatorStyle, score: 9, delay: time.Second}, "validator error: timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := stubGate(
				stubValidator{name: types.ValidatorCompliance, score: 9},
				stubValidator{name: types.ValidatorFactual, score: 9},
				tt.validator,
				stubValidator{name: types.ValidatorQuality, score: 9},
			)
			start := time.Now()
			r, err := g.Run(context.Background(), Input{}, types.LevelStandard, Reviewer{})
			require.NoError(t, err)
			assert.Less(t, time.Since(start), 500*time.Millisecond)

			res, ok := r.Result(types.ValidatorStyle)
			require.True(t, ok)
			assert.Zero(t, res.Score)
			assert.False(t, res.Passed)
			require.Len(t, res.Issues, 1)
			assert.True(t, strings.HasPrefix(res.Issues[0], tt.wantIssue), res.Issues[0])
			assert.NotEqual(t, types.GateApproved, r.State)
			assert.NotEmpty(t, r.BlockingIssues)
		})
	}
}

func TestRunOverallDeadline(t *testing.T) {
	g := stubGate(
		stubValidator{name: types.ValidatorCompliance, score: 9},
		stubValidator{name: types.ValidatorFactual, score: 8},
		stubValidator{name: types.ValidatorStyle, score: 9, delay: 5 * time.Second},
		stubValidator{name: types.ValidatorQuality, score: 7.5},
	)
	g.Config.ValidatorTimeout = 0
	g.Config.Deadline = 30 * time.Millisecond

	start := time.Now()
	r, err := g.Run(context.Background(), Input{}, types.LevelStandard, Reviewer{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	want := map[string]float64{
		types.ValidatorCompliance: 9,
		types.ValidatorFactual:    8,
		types.ValidatorQuality:    7.5,
	}
	for name, score := range want {
		res, ok := r.Result(name)
		require.True(t, ok, name)
		assert.Equal(t, score, res.Score, name)
		assert.True(t, res.Passed, name)
		assert.Empty(t, res.Issues, name)
	}

	slow, ok := r.Result(types.ValidatorStyle)
	require.True(t, ok)
	assert.Zero(t, slow.Score)
	assert.False(t, slow.Passed)
	require.Len(t, slow.Issues, 1)
	assert.True(t, strings.HasPrefix(slow.Issues[0], "validator error: timed out"), slow.Issues[0])
}

func TestRunMissingValidator(t *testing.T) {
	g := stubGate(
		stubValidator{name: types.ValidatorCompliance, score: 9},
		stubValidator{name: types.ValidatorFactual, score: 9},
		stubValidator{name: types.ValidatorStyle, score: 9},
	)
	r, err := g.Run(context.Background(), Input{}, "", Reviewer{})
	require.NoError(t, err)
	assert.Equal(t, types.LevelStandard, r.Level, "invalid level falls back to the configured one")
	res, ok := r.Result(types.ValidatorQuality)
	require.True(t, ok)
	assert.Equal(t, []string{"validator error: not configured"}, res.Issues)
	assert.Equal(t, types.GatePendingHumanReview, r.State)
}

func TestRunClampsScores(t *testing.T) {
	g := stubGate(
		stubValidator{name: types.ValidatorCompliance, score: 42},
		stubValidator{name: types.ValidatorFactual, score: 9},
		stubValidator{name: types.ValidatorStyle, score: 9},
		stubValidator{name: types.ValidatorQuality, score: 9},
	)
	r, err := g.Run(context.Background(), Input{}, types.LevelStandard, Reviewer{})
	require.NoError(t, err)
	res, _ := r.Result(types.ValidatorCompliance)
	assert.Equal(t, 10.0, res.Score)
	assert.LessOrEqual(t, r.OverallScore, 10.0)
}

// --- Rules ---

func TestLoadRules(t *testing.T) {
	def, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), def)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
brand:
  prohibited_terms: ["whale"]
  max_exclamations: 1
quality:
  required_sections: [overview, verdict]
  min_words: 50
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"whale"}, rules.Brand.ProhibitedTerms)
	assert.Equal(t, 1, rules.Brand.MaxExclamations)
	assert.Equal(t, []string{"overview", "verdict"}, rules.Quality.RequiredSections)
	assert.Equal(t, DefaultRules().Compliance, rules.Compliance, "absent sections keep defaults")

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("brand: [unclosed"), 0o644))
	_, err = LoadRules(bad)
	assert.Error(t, err)
}

func TestNewRejectsBadPattern(t *testing.T) {
	rules := DefaultRules()
	rules.Compliance.Prohibited = append(rules.Compliance.Prohibited, Pattern{Name: "broken", Pattern: "(unclosed"})
	_, err := New(DefaultConfig(), rules, nil, nil)
	assert.ErrorContains(t, err, "broken")
}
