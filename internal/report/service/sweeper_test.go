package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regportal/internal/audit"
	"regportal/internal/report/models"
	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
	"regportal/pkg/testutil"
)

type SweeperSuite struct {
	suite.Suite
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) newSweeper(f *fixture, now func() time.Time) *Sweeper {
	return NewSweeper(SweeperConfig{
		Store:   f.store,
		Events:  f.events,
		Auditor: &syncAuditor{store: f.audit},
		Now:     now,
	})
}

// overdueAttempt submits a report and returns ids plus a clock positioned
// past the attempt's deadline.
func (s *SweeperSuite) overdueAttempt(f *fixture) (domain.ReportID, domain.AttemptID, func() time.Time) {
	s.T().Helper()
	ctx := s.T().Context()
	actor := testutil.InternalActor(domain.PermReportsCreate)

	report, _, err := f.service.CreateDraft(ctx, actor, validInput(domain.NewSubjectID()))
	s.Require().NoError(err)
	attemptID, err := f.service.Submit(ctx, actor, report.ID)
	s.Require().NoError(err)

	future := time.Now().UTC().Add(f.deadline + time.Minute)
	return report.ID, attemptID, func() time.Time { return future }
}

func (s *SweeperSuite) TestSweepTimesOutOverdueAttempts() {
	f := newFixture(s.T())
	ctx := s.T().Context()
	reportID, attemptID, clock := s.overdueAttempt(f)
	sweeper := s.newSweeper(f, clock)

	swept, err := sweeper.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(1, swept)

	report, err := f.store.GetReport(ctx, reportID)
	s.Require().NoError(err)
	s.Equal(models.StatusTimeout, report.Status)

	attempt, err := f.store.GetAttempt(ctx, attemptID)
	s.Require().NoError(err)
	s.Equal(models.AttemptFailed, attempt.Status)
	s.NotNil(attempt.CompletedAt)

	trail, err := f.audit.ListByEntity(ctx, "report", reportID.String())
	s.Require().NoError(err)
	var sawTimeout bool
	for _, event := range trail {
		if event.Action == audit.ActionReportTimeout {
			sawTimeout = true
		}
	}
	s.True(sawTimeout, "sweep should leave an audit record")
}

func (s *SweeperSuite) TestSweepIsIdempotent() {
	f := newFixture(s.T())
	ctx := s.T().Context()
	_, _, clock := s.overdueAttempt(f)
	sweeper := s.newSweeper(f, clock)

	swept, err := sweeper.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(1, swept)

	swept, err = sweeper.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(0, swept, "a second sweep finds nothing pending")
}

func (s *SweeperSuite) TestLateCallbackAfterSweepIsRejected() {
	f := newFixture(s.T())
	ctx := s.T().Context()
	reportID, attemptID, clock := s.overdueAttempt(f)
	sweeper := s.newSweeper(f, clock)

	_, err := sweeper.Sweep(ctx)
	s.Require().NoError(err)

	err = f.service.RecordValidationOutcome(ctx, attemptID, models.OutcomeSuccess, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "late outcome must not overwrite TIMEOUT")

	report, err := f.store.GetReport(ctx, reportID)
	s.Require().NoError(err)
	s.Equal(models.StatusTimeout, report.Status)
}

func (s *SweeperSuite) TestCallbackBeforeSweepWins() {
	f := newFixture(s.T())
	ctx := s.T().Context()
	reportID, attemptID, clock := s.overdueAttempt(f)
	sweeper := s.newSweeper(f, clock)

	s.Require().NoError(f.service.RecordValidationOutcome(ctx, attemptID, models.OutcomeSuccess, nil))

	swept, err := sweeper.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(0, swept)

	report, err := f.store.GetReport(ctx, reportID)
	s.Require().NoError(err)
	s.Equal(models.StatusSuccess, report.Status)
}

func (s *SweeperSuite) TestFreshAttemptsAreLeftAlone() {
	f := newFixture(s.T())
	ctx := s.T().Context()
	actor := testutil.InternalActor(domain.PermReportsCreate)

	report, _, err := f.service.CreateDraft(ctx, actor, validInput(domain.NewSubjectID()))
	s.Require().NoError(err)
	_, err = f.service.Submit(ctx, actor, report.ID)
	s.Require().NoError(err)

	sweeper := s.newSweeper(f, time.Now)
	swept, err := sweeper.Sweep(ctx)
	s.Require().NoError(err)
	s.Equal(0, swept)

	got, err := f.store.GetReport(ctx, report.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusProcessing, got.Status)
}
