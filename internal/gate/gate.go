// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate validates generated documents before publication. Four
// validators (compliance, factual, style, quality) run in parallel; their
// scores are aggregated into a QAReport whose terminal state decides
// whether the document is approved, rejected, or escalated to a human.
package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Reviewer is the availability and verdict of a human reviewer at gate time.
type Reviewer struct {
	Available bool
	Approved  bool
}

// DefaultConfig returns the standard gate settings.
func DefaultConfig() types.GateConfig {
	return types.GateConfig{
		Level: types.LevelStandard,
		Weights: types.GateWeights{
			Compliance: 0.30,
			Factual:    0.25,
			Style:      0.20,
			Quality:    0.25,
		},
		ApproveThreshold:  7.0,
		BlockingThreshold: 5.0,
		ValidatorTimeout:  10 * time.Second,
		Deadline:          30 * time.Second,
	}
}

// Gate runs validators and aggregates their results.
type Gate struct {
	Validators []Validator
	Config     types.GateConfig
	Logger     *slog.Logger

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// New returns a gate with the four standard validators built from rules.
// A nil checker keeps factual checking on number matching.
func New(cfg types.GateConfig, rules Rules, checker ClaimChecker, logger *slog.Logger) (*Gate, error) {
	compliance, err := NewCompliance(rules.Compliance)
	if err != nil {
		return nil, err
	}
	return &Gate{
		Validators: []Validator{
			compliance,
			&Factual{Checker: checker},
			&Style{Guidelines: rules.Brand},
			&Quality{Rules: rules.Quality},
		},
		Config: cfg,
		Logger: logger,
	}, nil
}

// Run validates in at the given level and returns the report. Validators
// run in parallel, each under Config.ValidatorTimeout, and the whole pass
// under Config.Deadline. A validator that errors, panics, or misses its
// deadline scores 0.
func (g *Gate) Run(ctx context.Context, in Input, level types.ValidationLevel, reviewer Reviewer) (types.QAReport, error) {
	cfg := withDefaults(g.Config)
	if !level.Valid() {
		level = cfg.Level
	}
	logger := g.logger()

	m := NewMachine()
	if err := m.Transition(types.GateValidating); err != nil {
		return types.QAReport{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()
	eg, egctx := errgroup.WithContext(runCtx)

	results := make([]types.ValidationResult, len(g.Validators))
	for i, v := range g.Validators {
		eg.Go(func() error {
			results[i] = runValidator(egctx, v, in, cfg.ValidatorTimeout)
			return nil
		})
	}
	_ = eg.Wait()

	for _, name := range []string{types.ValidatorCompliance, types.ValidatorFactual, types.ValidatorStyle, types.ValidatorQuality} {
		if weightOf(cfg.Weights, name) > 0 && !hasResult(results, name) {
			results = append(results, errorResult(name, fmt.Errorf("not configured")))
		}
	}
	for _, r := range results {
		if isValidatorError(r) {
			logger.Warn("validator failed", "validator", r.Validator, "issue", r.Issues[0])
		}
	}

	report := Aggregate(results, level, cfg, reviewer)
	report.ID = g.newID()
	report.DocumentID = in.Document.ID
	report.CreatedAt = g.now()
	if err := m.Transition(report.State); err != nil {
		return types.QAReport{}, err
	}
	return report, nil
}

// Decide turns a finished report into a publish decision.
func Decide(report types.QAReport, at time.Time) types.PublishDecision {
	r := report
	return types.PublishDecision{
		Approved:            report.State == types.GateApproved,
		ReportID:            report.ID,
		Report:              &r,
		HumanReviewRequired: report.HumanReviewRequired,
		DecidedAt:           at,
	}
}

// Aggregate computes the overall score, issue lists, buckets, human review
// flag, and terminal state from validator results.
func Aggregate(results []types.ValidationResult, level types.ValidationLevel, cfg types.GateConfig, reviewer Reviewer) types.QAReport {
	cfg = withDefaults(cfg)
	report := types.QAReport{
		Level:          level,
		Results:        results,
		BlockingIssues: []string{},
		Warnings:       []string{},
	}

	allPassed := true
	for _, r := range results {
		report.OverallScore += weightOf(cfg.Weights, r.Validator) * r.Score
		if !r.Passed {
			allPassed = false
		}
		switch {
		case r.Score < cfg.BlockingThreshold:
			report.BlockingIssues = append(report.BlockingIssues, prefixed(r, fmt.Sprintf("score %.1f below %.1f", r.Score, cfg.BlockingThreshold))...)
		case !r.Passed:
			report.Warnings = append(report.Warnings, prefixed(r, "failed")...)
		}
		report.Suggestions = append(report.Suggestions, r.Suggestions...)
	}

	score := func(name string) float64 {
		r, _ := report.Result(name)
		return r.Score
	}
	report.HumanReviewRequired = level == types.LevelPremium ||
		score(types.ValidatorCompliance) < 5 ||
		score(types.ValidatorFactual) < 6 ||
		score(types.ValidatorQuality) < 6

	approved := allPassed &&
		report.OverallScore >= cfg.ApproveThreshold &&
		len(report.BlockingIssues) == 0 &&
		(!report.HumanReviewRequired || (reviewer.Available && reviewer.Approved))

	switch {
	case approved:
		report.State = types.GateApproved
	case report.HumanReviewRequired:
		report.State = types.GatePendingHumanReview
	default:
		report.State = types.GateRejected
	}

	report.Quality = Bucket(report.OverallScore)
	compliance, _ := report.Result(types.ValidatorCompliance)
	switch {
	case compliance.Passed && allPassed:
		report.Compliance = types.CompliancePassed
	case len(report.BlockingIssues) > 0:
		report.Compliance = types.ComplianceFailed
	case len(report.Warnings) > 0:
		report.Compliance = types.ComplianceWarning
	default:
		report.Compliance = types.CompliancePendingReview
	}
	return report
}

// Bucket maps an overall score to its quality grade.
func Bucket(score float64) types.QualityBucket {
	switch {
	case score >= 9:
		return types.QualityExcellent
	case score >= 7.5:
		return types.QualityGood
	case score >= 6:
		return types.QualityAcceptable
	case score >= 3:
		return types.QualityPoor
	default:
		return types.QualityFailed
	}
}

const validatorErrorPrefix = "validator error: "

func runValidator(ctx context.Context, v Validator, in Input, timeout time.Duration) types.ValidationResult {
	name := v.Name()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		res types.ValidationResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := v.Validate(ctx, in)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return errorResult(name, out.err)
		}
		out.res.Validator = name
		out.res.Score = clampScore(out.res.Score)
		return out.res
	case <-ctx.Done():
		return errorResult(name, fmt.Errorf("timed out: %w", ctx.Err()))
	}
}

func errorResult(name string, err error) types.ValidationResult {
	return types.ValidationResult{
		Validator: name,
		Passed:    false,
		Score:     0,
		Issues:    []string{validatorErrorPrefix + err.Error()},
	}
}

func isValidatorError(r types.ValidationResult) bool {
	return len(r.Issues) == 1 && strings.HasPrefix(r.Issues[0], validatorErrorPrefix)
}

// prefixed returns r's issues prefixed with the validator name, or a single
// fallback line when r reported none.
func prefixed(r types.ValidationResult, fallback string) []string {
	if len(r.Issues) == 0 {
		return []string{r.Validator + ": " + fallback}
	}
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = r.Validator + ": " + issue
	}
	return out
}

func weightOf(w types.GateWeights, name string) float64 {
	switch name {
	case types.ValidatorCompliance:
		return w.Compliance
	case types.ValidatorFactual:
		return w.Factual
	case types.ValidatorStyle:
		return w.Style
	case types.ValidatorQuality:
		return w.Quality
	}
	return 0
}

func hasResult(results []types.ValidationResult, name string) bool {
	for _, r := range results {
		if r.Validator == name {
			return true
		}
	}
	return false
}

func withDefaults(cfg types.GateConfig) types.GateConfig {
	def := DefaultConfig()
	if !cfg.Level.Valid() {
		cfg.Level = def.Level
	}
	if cfg.Weights.Sum() == 0 {
		cfg.Weights = def.Weights
	}
	if cfg.ApproveThreshold == 0 {
		cfg.ApproveThreshold = def.ApproveThreshold
	}
	if cfg.BlockingThreshold == 0 {
		cfg.BlockingThreshold = def.BlockingThreshold
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	return cfg
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gate) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}
