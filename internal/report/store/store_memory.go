package store

import (
	"context"
	"sync"
	"time"

	"regportal/internal/report/models"
	"regportal/pkg/domain"
	"regportal/pkg/platform/sentinel"
)

// InMemory is the map-backed store used by unit tests and local development.
// All operations, including the CAS ones, run under a single mutex, which
// gives the same serialization guarantee the SQL store gets from conditional
// updates.
type InMemory struct {
	mu       sync.RWMutex
	reports  map[domain.ReportID]*models.Report
	attempts map[domain.AttemptID]*models.ValidationAttempt
}

func NewInMemory() *InMemory {
	return &InMemory{
		reports:  make(map[domain.ReportID]*models.Report),
		attempts: make(map[domain.AttemptID]*models.ValidationAttempt),
	}
}

func (s *InMemory) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return sentinel.ErrConflict
	}
	s.reports[report.ID] = cloneReport(report)
	return nil
}

func (s *InMemory) GetReport(_ context.Context, id domain.ReportID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReport(report), nil
}

func (s *InMemory) ListReports(_ context.Context, filter ListFilter) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Report
	for _, report := range s.reports {
		if matches(report, filter) {
			out = append(out, cloneReport(report))
		}
	}
	return out, nil
}

func (s *InMemory) UpdateReportStatus(_ context.Context, id domain.ReportID, expected, next models.ReportStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if report.Status != expected {
		return false, nil
	}
	report.Status = next
	report.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *InMemory) DeleteReport(_ context.Context, id domain.ReportID, expected models.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if report.Status != expected {
		return sentinel.ErrInvalidState
	}
	delete(s.reports, id)
	for attemptID, attempt := range s.attempts {
		if attempt.ReportID == id {
			delete(s.attempts, attemptID)
		}
	}
	return nil
}

func (s *InMemory) CreateAttempt(_ context.Context, attempt *models.ValidationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attempt.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, ok := s.reports[attempt.ReportID]; !ok {
		return sentinel.ErrNotFound
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s *InMemory) GetAttempt(_ context.Context, id domain.AttemptID) (*models.ValidationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *InMemory) ListAttempts(_ context.Context, reportID domain.ReportID) ([]*models.ValidationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ValidationAttempt
	for _, attempt := range s.attempts {
		if attempt.ReportID == reportID {
			out = append(out, cloneAttempt(attempt))
		}
	}
	return out, nil
}

func (s *InMemory) CompleteAttempt(_ context.Context, id domain.AttemptID, outcome models.Outcome, errs []models.FieldError, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if attempt.Status != models.AttemptPending {
		return false, nil
	}
	if outcome == models.OutcomeSuccess || outcome == models.OutcomeValidationErrors {
		attempt.Status = models.AttemptCompleted
	} else {
		attempt.Status = models.AttemptFailed
	}
	attempt.Outcome = outcome
	attempt.Errors = append([]models.FieldError(nil), errs...)
	attempt.CompletedAt = &completedAt
	return true, nil
}

func (s *InMemory) FindPendingAttemptsPastDeadline(_ context.Context, now time.Time) ([]*models.ValidationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ValidationAttempt
	for _, attempt := range s.attempts {
		if attempt.Status == models.AttemptPending && attempt.Deadline.Before(now) {
			out = append(out, cloneAttempt(attempt))
		}
	}
	return out, nil
}

func matches(report *models.Report, filter ListFilter) bool {
	if !filter.SubjectID.IsZero() && report.SubjectID != filter.SubjectID {
		return false
	}
	if filter.SubjectIDs != nil {
		found := false
		for _, id := range filter.SubjectIDs {
			if report.SubjectID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Status != "" && report.Status != filter.Status {
		return false
	}
	if filter.Period != "" && report.Period != filter.Period {
		return false
	}
	if filter.Register != "" && report.Register != filter.Register {
		return false
	}
	return true
}

func cloneReport(r *models.Report) *models.Report {
	out := *r
	if r.CorrectsReportID != nil {
		corrected := *r.CorrectsReportID
		out.CorrectsReportID = &corrected
	}
	return &out
}

func cloneAttempt(a *models.ValidationAttempt) *models.ValidationAttempt {
	out := *a
	out.Errors = append([]models.FieldError(nil), a.Errors...)
	if a.CompletedAt != nil {
		completed := *a.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}
