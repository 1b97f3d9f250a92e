//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regportal/internal/report/models"
	"regportal/pkg/domain"
	"regportal/pkg/platform/sentinel"
	"regportal/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresStoreSuite) newReport(status models.ReportStatus) *models.Report {
	now := time.Now().UTC().Truncate(time.Microsecond)
	report := &models.Report{
		ID:        domain.NewReportID(),
		SubjectID: domain.NewSubjectID(),
		Period:    "2025-Q1",
		Register:  "quarterly",
		File: models.FileDescriptor{
			Filename:    "report.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Size:        2048,
			StorageKey:  "reports/x/report.xlsx",
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.CreateReport(s.ctx, report))
	return report
}

func (s *PostgresStoreSuite) TestReportRoundTrip() {
	corrected := s.newReport(models.StatusSuccess)

	now := time.Now().UTC().Truncate(time.Microsecond)
	report := &models.Report{
		ID:               domain.NewReportID(),
		SubjectID:        corrected.SubjectID,
		Period:           "2025-Q1",
		Register:         "quarterly",
		File:             corrected.File,
		Status:           models.StatusDraft,
		CorrectsReportID: &corrected.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.Require().NoError(s.store.CreateReport(s.ctx, report))

	got, err := s.store.GetReport(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(report.ID, got.ID)
	s.Equal(report.SubjectID, got.SubjectID)
	s.Equal(models.StatusDraft, got.Status)
	s.Require().NotNil(got.CorrectsReportID)
	s.Equal(corrected.ID, *got.CorrectsReportID)
}

func (s *PostgresStoreSuite) TestUpdateReportStatusCAS() {
	report := s.newReport(models.StatusDraft)

	ok, err := s.store.UpdateReportStatus(s.ctx, report.ID, models.StatusDraft, models.StatusSubmitted)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.UpdateReportStatus(s.ctx, report.ID, models.StatusDraft, models.StatusSubmitted)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.store.UpdateReportStatus(s.ctx, domain.NewReportID(), models.StatusDraft, models.StatusSubmitted)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteReportGuardsStatus() {
	report := s.newReport(models.StatusProcessing)
	s.ErrorIs(s.store.DeleteReport(s.ctx, report.ID, models.StatusDraft), sentinel.ErrInvalidState)

	draft := s.newReport(models.StatusDraft)
	s.Require().NoError(s.store.DeleteReport(s.ctx, draft.ID, models.StatusDraft))
	_, err := s.store.GetReport(s.ctx, draft.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAttemptLifecycle() {
	report := s.newReport(models.StatusProcessing)
	now := time.Now().UTC().Truncate(time.Microsecond)

	attempt := &models.ValidationAttempt{
		ID:        domain.NewAttemptID(),
		ReportID:  report.ID,
		Status:    models.AttemptPending,
		Deadline:  now.Add(5 * time.Minute),
		CreatedAt: now,
	}
	s.Require().NoError(s.store.CreateAttempt(s.ctx, attempt))

	fieldErrs := []models.FieldError{{Field: "C4", Message: "missing value"}}
	ok, err := s.store.CompleteAttempt(s.ctx, attempt.ID, models.OutcomeValidationErrors, fieldErrs, now)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.store.GetAttempt(s.ctx, attempt.ID)
	s.Require().NoError(err)
	s.Equal(models.AttemptCompleted, got.Status)
	s.Equal(models.OutcomeValidationErrors, got.Outcome)
	s.Equal(fieldErrs, got.Errors)
	s.Require().NotNil(got.CompletedAt)

	ok, err = s.store.CompleteAttempt(s.ctx, attempt.ID, models.OutcomeSuccess, nil, now)
	s.Require().NoError(err)
	s.False(ok)

	attempts, err := s.store.ListAttempts(s.ctx, report.ID)
	s.Require().NoError(err)
	s.Len(attempts, 1)
}

func (s *PostgresStoreSuite) TestCreateAttemptForMissingReport() {
	attempt := &models.ValidationAttempt{
		ID:        domain.NewAttemptID(),
		ReportID:  domain.NewReportID(),
		Status:    models.AttemptPending,
		Deadline:  time.Now().Add(time.Minute),
		CreatedAt: time.Now().UTC(),
	}
	s.ErrorIs(s.store.CreateAttempt(s.ctx, attempt), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindPendingAttemptsPastDeadline() {
	report := s.newReport(models.StatusProcessing)
	now := time.Now().UTC().Truncate(time.Microsecond)

	overdue := &models.ValidationAttempt{
		ID:        domain.NewAttemptID(),
		ReportID:  report.ID,
		Status:    models.AttemptPending,
		Deadline:  now.Add(-time.Minute),
		CreatedAt: now.Add(-10 * time.Minute),
	}
	s.Require().NoError(s.store.CreateAttempt(s.ctx, overdue))

	fresh := &models.ValidationAttempt{
		ID:        domain.NewAttemptID(),
		ReportID:  report.ID,
		Status:    models.AttemptPending,
		Deadline:  now.Add(time.Hour),
		CreatedAt: now,
	}
	s.Require().NoError(s.store.CreateAttempt(s.ctx, fresh))

	found, err := s.store.FindPendingAttemptsPastDeadline(s.ctx, now)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(overdue.ID, found[0].ID)
}

func (s *PostgresStoreSuite) TestListReportsFilters() {
	report := s.newReport(models.StatusDraft)
	other := s.newReport(models.StatusDraft)

	got, err := s.store.ListReports(s.ctx, ListFilter{SubjectID: report.SubjectID})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(report.ID, got[0].ID)

	got, err = s.store.ListReports(s.ctx, ListFilter{
		SubjectIDs: []domain.SubjectID{report.SubjectID, other.SubjectID},
	})
	s.Require().NoError(err)
	s.Len(got, 2)
}
