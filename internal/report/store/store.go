// Package store owns report persistence. The interface is deliberately
// narrow: the lifecycle service never mutates a status directly, it asks the
// store for a compare-and-set so concurrent submissions and late validation
// callbacks serialize on the report row.
package store

import (
	"context"
	"time"

	"regportal/internal/report/models"
	"regportal/pkg/domain"
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	SubjectID domain.SubjectID
	// SubjectIDs restricts to a set of subjects; used for external users who
	// may only see subjects they hold grants for. Nil means unrestricted.
	SubjectIDs []domain.SubjectID
	Status     models.ReportStatus
	Period     string
	Register   string
}

// Store is the report entity store. Implementations must make UpdateStatus
// and CompleteAttempt atomic with respect to concurrent callers: the expected
// value is checked and the new value written in one step.
type Store interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id domain.ReportID) (*models.Report, error)
	ListReports(ctx context.Context, filter ListFilter) ([]*models.Report, error)

	// UpdateReportStatus performs a CAS on the report's status. It returns
	// false (and no error) when the report's current status is not expected.
	UpdateReportStatus(ctx context.Context, id domain.ReportID, expected, next models.ReportStatus) (bool, error)

	// DeleteReport removes the report iff its status is still expected.
	// Returns sentinel.ErrInvalidState when the status moved on.
	DeleteReport(ctx context.Context, id domain.ReportID, expected models.ReportStatus) error

	CreateAttempt(ctx context.Context, attempt *models.ValidationAttempt) error
	GetAttempt(ctx context.Context, id domain.AttemptID) (*models.ValidationAttempt, error)
	ListAttempts(ctx context.Context, reportID domain.ReportID) ([]*models.ValidationAttempt, error)

	// CompleteAttempt performs a CAS from PENDING to the terminal status the
	// outcome implies. Returns false when the attempt is already terminal.
	CompleteAttempt(ctx context.Context, id domain.AttemptID, outcome models.Outcome, errs []models.FieldError, completedAt time.Time) (bool, error)

	// FindPendingAttemptsPastDeadline returns PENDING attempts whose deadline
	// is before now. The sweeper times these out.
	FindPendingAttemptsPastDeadline(ctx context.Context, now time.Time) ([]*models.ValidationAttempt, error)
}
