// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ValidationLevel selects how strictly a document is gated.
type ValidationLevel string

const (
	LevelBasic    ValidationLevel = "basic"
	LevelStandard ValidationLevel = "standard"
	LevelStrict   ValidationLevel = "strict"
	LevelPremium  ValidationLevel = "premium"
)

// Valid reports whether l is a known validation level.
func (l ValidationLevel) Valid() bool {
	switch l {
	case LevelBasic, LevelStandard, LevelStrict, LevelPremium:
		return true
	}
	return false
}

// Validator names.
const (
	ValidatorCompliance = "compliance"
	ValidatorFactual    = "factual"
	ValidatorStyle      = "style"
	ValidatorQuality    = "quality"
)

// ValidationResult is one validator's verdict on one document. It is computed
// fresh on every validation pass.
type ValidationResult struct {
	Validator   string   `json:"validator" yaml:"validator"`
	Passed      bool     `json:"passed" yaml:"passed"`
	Score       float64  `json:"score" yaml:"score"`
	Issues      []string `json:"issues" yaml:"issues"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`

	// Details carries validator-specific findings (missing disclosures,
	// unverified claims, readability figures).
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// QualityBucket is the coarse quality grade of a QAReport.
type QualityBucket string

const (
	QualityExcellent  QualityBucket = "excellent"
	QualityGood       QualityBucket = "good"
	QualityAcceptable QualityBucket = "acceptable"
	QualityPoor       QualityBucket = "poor"
	QualityFailed     QualityBucket = "failed"
)

// ComplianceStatus summarizes compliance for a QAReport.
type ComplianceStatus string

const (
	CompliancePassed        ComplianceStatus = "passed"
	ComplianceWarning       ComplianceStatus = "warning"
	ComplianceFailed        ComplianceStatus = "failed"
	CompliancePendingReview ComplianceStatus = "pending_review"
)

// GateState is a state of the compliance gate for one document version.
type GateState string

const (
	GatePending            GateState = "pending"
	GateValidating         GateState = "validating"
	GateApproved           GateState = "approved"
	GateRejected           GateState = "rejected"
	GatePendingHumanReview GateState = "pending_human_review"
)

// Terminal reports whether no further transition is allowed from s.
func (s GateState) Terminal() bool {
	switch s {
	case GateApproved, GateRejected, GatePendingHumanReview:
		return true
	}
	return false
}

// QAReport aggregates all validation results for one document version.
// A revised document gets a new report; reports are never edited.
type QAReport struct {
	ID         string          `json:"id" yaml:"id"`
	DocumentID string          `json:"document_id" yaml:"document_id"`
	Level      ValidationLevel `json:"level" yaml:"level"`

	Results      []ValidationResult `json:"results" yaml:"results"`
	OverallScore float64            `json:"overall_score" yaml:"overall_score"`
	Quality      QualityBucket      `json:"quality" yaml:"quality"`
	Compliance   ComplianceStatus   `json:"compliance" yaml:"compliance"`

	BlockingIssues []string `json:"blocking_issues" yaml:"blocking_issues"`
	Warnings       []string `json:"warnings" yaml:"warnings"`
	Suggestions    []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`

	HumanReviewRequired bool      `json:"human_review_required" yaml:"human_review_required"`
	State               GateState `json:"state" yaml:"state"`
	CreatedAt           time.Time `json:"created_at" yaml:"created_at"`
}

// Result returns the named validator's result.
func (r QAReport) Result(name string) (ValidationResult, bool) {
	for _, v := range r.Results {
		if v.Validator == name {
			return v, true
		}
	}
	return ValidationResult{}, false
}

// PublishDecision is the terminal artifact of one pipeline run.
type PublishDecision struct {
	Approved bool   `json:"approved" yaml:"approved"`
	ReportID string `json:"report_id,omitempty" yaml:"report_id,omitempty"`

	// Report is the QAReport this decision was derived from.
	Report *QAReport `json:"report,omitempty" yaml:"report,omitempty"`

	HumanReviewRequired bool   `json:"human_review_required" yaml:"human_review_required"`
	TicketID            string `json:"ticket_id,omitempty" yaml:"ticket_id,omitempty"`

	// Failure is set when the run ended in a system failure.
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty"`

	DecidedAt time.Time `json:"decided_at" yaml:"decided_at"`
}

// ReviewStatus is the lifecycle state of a human review ticket.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

// ReviewOutcome is a reviewer's verdict.
type ReviewOutcome string

const (
	OutcomeApproved ReviewOutcome = "approved"
	OutcomeRejected ReviewOutcome = "rejected"
)

// TicketStatus is the status of a review ticket. Outcome is set once the
// ticket is resolved.
type TicketStatus struct {
	Status  ReviewStatus  `json:"status" yaml:"status"`
	Outcome ReviewOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// ReviewTicket tracks one escalated document until a human resolves it.
type ReviewTicket struct {
	ID          string        `json:"id" yaml:"id"`
	DocumentID  string        `json:"document_id" yaml:"document_id"`
	Document    Document      `json:"document" yaml:"document"`
	Report      QAReport      `json:"report" yaml:"report"`
	Status      ReviewStatus  `json:"status" yaml:"status"`
	Outcome     ReviewOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Reviewer    string        `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	Notes       string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at" yaml:"submitted_at"`
	ResolvedAt  time.Time     `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
}
