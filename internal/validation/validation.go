// Package validation executes business validation of submitted report files,
// out-of-band from the submit call. The lifecycle service enqueues a job once
// the PENDING attempt is durably recorded; a worker dequeues it, runs the
// engine, and reports the outcome back exactly once. The "never" case — a
// job lost before its outcome lands — is covered by the timeout sweeper, not
// by this package.
package validation

import (
	"context"

	"regportal/internal/report/models"
	"regportal/pkg/domain"
)

// Job is one unit of validation work.
type Job struct {
	ReportID   domain.ReportID  `json:"reportId"`
	AttemptID  domain.AttemptID `json:"attemptId"`
	StorageKey string           `json:"storageKey"`
	Filename   string           `json:"filename"`
}

// Queue hands jobs from the submit path to the worker.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Dequeuer is the worker side of a queue. Dequeue blocks until a job is
// available or the context is cancelled.
type Dequeuer interface {
	Dequeue(ctx context.Context) (Job, error)
}

// Sink receives the terminal outcome of an attempt. The lifecycle service
// implements this; it rejects duplicate or late outcomes with InvalidState.
type Sink interface {
	RecordValidationOutcome(ctx context.Context, attemptID domain.AttemptID, outcome models.Outcome, errs []models.FieldError) error
}

// Engine is the pluggable decision logic. The portal fixes only the calling
// contract; rule sets are swapped per register and deployment.
type Engine interface {
	Validate(ctx context.Context, job Job) (models.Outcome, []models.FieldError, error)
}
