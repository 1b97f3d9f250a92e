// Package models holds the report aggregate: the submission record, its
// validation attempts, and the lifecycle status machine that gates every
// transition between them.
package models

import (
	"time"

	"regportal/pkg/domain"
)

// ReportStatus is the lifecycle state of a regulatory submission.
type ReportStatus string

const (
	// StatusDraft is the initial state: upload intent registered, file not
	// yet submitted for validation. Drafts are the only deletable reports.
	StatusDraft ReportStatus = "DRAFT"
	// StatusSubmitted means the report was handed to the validation pipeline.
	StatusSubmitted ReportStatus = "SUBMITTED"
	// StatusProcessing means a validation attempt is in flight.
	StatusProcessing ReportStatus = "PROCESSING"
	// StatusSuccess is terminal: validation passed.
	StatusSuccess ReportStatus = "SUCCESS"
	// StatusValidationErrors means the file failed business validation. A
	// fresh submission cycle or a regulator dispute may follow.
	StatusValidationErrors ReportStatus = "VALIDATION_ERRORS"
	// StatusTechError means validation itself failed (engine error, panic).
	StatusTechError ReportStatus = "TECH_ERROR"
	// StatusTimeout means no validation outcome arrived before the deadline.
	StatusTimeout ReportStatus = "TIMEOUT"
	// StatusDisputedByUKNF is terminal: regulator staff contested the
	// validation-error outcome and opened a dispute.
	StatusDisputedByUKNF ReportStatus = "DISPUTED_BY_UKNF"
)

// validTransitions is the single source of truth for the lifecycle machine.
// Key is the current status, value the set of reachable statuses.
var validTransitions = map[ReportStatus]map[ReportStatus]bool{
	StatusDraft:            {StatusSubmitted: true},
	StatusSubmitted:        {StatusProcessing: true},
	StatusProcessing:       {StatusSuccess: true, StatusValidationErrors: true, StatusTechError: true, StatusTimeout: true},
	StatusSuccess:          {},
	StatusValidationErrors: {StatusDisputedByUKNF: true},
	StatusTechError:        {},
	StatusTimeout:          {},
	StatusDisputedByUKNF:   {},
}

// IsValid reports whether s is a member of the status enum.
func (s ReportStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle machine allows s -> target.
func (s ReportStatus) CanTransitionTo(target ReportStatus) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	return allowed[target]
}

// Terminal reports whether no further transitions are defined from s.
func (s ReportStatus) Terminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// FileDescriptor captures the uploaded file's identity. The bytes live in
// object storage; the portal only tracks the descriptor.
type FileDescriptor struct {
	Filename    string
	ContentType string
	Size        int64
	StorageKey  string
}

// Report is one regulatory submission by a supervised entity.
type Report struct {
	ID        domain.ReportID
	SubjectID domain.SubjectID
	// Period is a free-text reporting period tag, e.g. "2025-Q1".
	Period string
	// Register names the regulatory register the report belongs to.
	Register string
	File     FileDescriptor
	Status   ReportStatus
	// CorrectsReportID optionally references a prior report this one corrects.
	CorrectsReportID *domain.ReportID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AttemptStatus is the execution state of one validation attempt.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "PENDING"
	AttemptCompleted AttemptStatus = "COMPLETED"
	AttemptFailed    AttemptStatus = "FAILED"
)

// Terminal reports whether the attempt has reached its final state.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptFailed
}

// Outcome classifies a finished validation attempt.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeValidationErrors Outcome = "VALIDATION_ERRORS"
	OutcomeTechError        Outcome = "TECH_ERROR"
)

// ReportStatusFor maps a terminal outcome to the report status it implies.
func (o Outcome) ReportStatusFor() ReportStatus {
	switch o {
	case OutcomeSuccess:
		return StatusSuccess
	case OutcomeValidationErrors:
		return StatusValidationErrors
	default:
		return StatusTechError
	}
}

// FieldError is one structured validation finding, addressed to a cell or
// field in the submitted file.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationAttempt is one run of business validation against a report.
// Attempts are append-only; only the most recent one determines the report's
// derived status.
type ValidationAttempt struct {
	ID       domain.AttemptID
	ReportID domain.ReportID
	Status   AttemptStatus
	// Outcome is set only once the attempt is terminal.
	Outcome Outcome
	// Errors holds the structured findings when Outcome is VALIDATION_ERRORS.
	Errors []FieldError
	// Deadline is when the sweeper gives up waiting for an outcome.
	Deadline    time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}
