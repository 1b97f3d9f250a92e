package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"regportal/internal/report/models"
	"regportal/pkg/domain"
	"regportal/pkg/platform/sentinel"
)

// Postgres persists reports and validation attempts. This store is pure I/O;
// transition legality lives in the service. The CAS operations rely on
// conditional UPDATEs checking RowsAffected, which serializes competing
// writers on the row without explicit locks.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const reportColumns = `id, subject_id, period, register, filename, content_type, size_bytes, storage_key, status, corrects_report_id, created_at, updated_at`

func (s *Postgres) CreateReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var corrects any
	if report.CorrectsReportID != nil {
		corrects = report.CorrectsReportID.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		report.ID.String(), report.SubjectID.String(), report.Period, report.Register,
		report.File.Filename, report.File.ContentType, report.File.Size, report.File.StorageKey,
		string(report.Status), corrects, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *Postgres) GetReport(ctx context.Context, id domain.ReportID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	report, err := scanReport(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func (s *Postgres) ListReports(ctx context.Context, filter ListFilter) ([]*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filter.SubjectID.IsZero() {
		query += ` AND subject_id = ` + arg(filter.SubjectID.String())
	}
	if filter.SubjectIDs != nil {
		ids := make([]string, len(filter.SubjectIDs))
		for i, id := range filter.SubjectIDs {
			ids[i] = id.String()
		}
		query += ` AND subject_id = ANY(` + arg(pq.Array(ids)) + `)`
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.Period != "" {
		query += ` AND period = ` + arg(filter.Period)
	}
	if filter.Register != "" {
		query += ` AND register = ` + arg(filter.Register)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateReportStatus(ctx context.Context, id domain.ReportID, expected, next models.ReportStatus) (bool, error) {
	query := `
		UPDATE reports
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	result, err := s.db.ExecContext(ctx, query, string(next), id.String(), string(expected))
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	if affected == 0 {
		// Distinguish "gone" from "status moved on" for the caller.
		if _, err := s.GetReport(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return false, sentinel.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (s *Postgres) DeleteReport(ctx context.Context, id domain.ReportID, expected models.ReportStatus) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM reports WHERE id = $1 AND status = $2`,
		id.String(), string(expected),
	)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetReport(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

const attemptColumns = `id, report_id, status, outcome, errors, deadline, created_at, completed_at`

func (s *Postgres) CreateAttempt(ctx context.Context, attempt *models.ValidationAttempt) error {
	query := `
		INSERT INTO validation_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
	`
	errsJSON, err := json.Marshal(attempt.Errors)
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	_, err = s.db.ExecContext(ctx, query,
		attempt.ID.String(), attempt.ReportID.String(), string(attempt.Status),
		string(attempt.Outcome), errsJSON, attempt.Deadline, attempt.CreatedAt, attempt.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return sentinel.ErrConflict
			case "foreign_key_violation":
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (s *Postgres) GetAttempt(ctx context.Context, id domain.AttemptID) (*models.ValidationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM validation_attempts WHERE id = $1`
	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *Postgres) ListAttempts(ctx context.Context, reportID domain.ReportID) ([]*models.ValidationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM validation_attempts WHERE report_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, reportID.String())
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.ValidationAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func (s *Postgres) CompleteAttempt(ctx context.Context, id domain.AttemptID, outcome models.Outcome, errs []models.FieldError, completedAt time.Time) (bool, error) {
	next := models.AttemptCompleted
	if outcome == models.OutcomeTechError {
		next = models.AttemptFailed
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return false, fmt.Errorf("complete attempt: %w", err)
	}
	query := `
		UPDATE validation_attempts
		SET status = $1, outcome = $2, errors = $3, completed_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		string(next), string(outcome), errsJSON, completedAt,
		id.String(), string(models.AttemptPending),
	)
	if err != nil {
		return false, fmt.Errorf("complete attempt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete attempt: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetAttempt(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return false, sentinel.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (s *Postgres) FindPendingAttemptsPastDeadline(ctx context.Context, now time.Time) ([]*models.ValidationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM validation_attempts WHERE status = $1 AND deadline < $2`
	rows, err := s.db.QueryContext(ctx, query, string(models.AttemptPending), now)
	if err != nil {
		return nil, fmt.Errorf("find overdue attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.ValidationAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("find overdue attempts: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		report     models.Report
		idRaw      string
		subjectRaw string
		statusRaw  string
		corrects   sql.NullString
	)
	err := row.Scan(
		&idRaw, &subjectRaw, &report.Period, &report.Register,
		&report.File.Filename, &report.File.ContentType, &report.File.Size, &report.File.StorageKey,
		&statusRaw, &corrects, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reportID, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, err
	}
	subjectID, err := uuid.Parse(subjectRaw)
	if err != nil {
		return nil, err
	}
	report.ID = domain.ReportID(reportID)
	report.SubjectID = domain.SubjectID(subjectID)
	report.Status = models.ReportStatus(statusRaw)
	if corrects.Valid {
		correctedID, err := uuid.Parse(corrects.String)
		if err != nil {
			return nil, err
		}
		ref := domain.ReportID(correctedID)
		report.CorrectsReportID = &ref
	}
	return &report, nil
}

func scanAttempt(row rowScanner) (*models.ValidationAttempt, error) {
	var (
		attempt   models.ValidationAttempt
		idRaw     string
		reportRaw string
		statusRaw string
		outcome   sql.NullString
		errsJSON  []byte
		completed sql.NullTime
	)
	err := row.Scan(&idRaw, &reportRaw, &statusRaw, &outcome, &errsJSON, &attempt.Deadline, &attempt.CreatedAt, &completed)
	if err != nil {
		return nil, err
	}
	attemptID, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, err
	}
	reportID, err := uuid.Parse(reportRaw)
	if err != nil {
		return nil, err
	}
	attempt.ID = domain.AttemptID(attemptID)
	attempt.ReportID = domain.ReportID(reportID)
	attempt.Status = models.AttemptStatus(statusRaw)
	if outcome.Valid {
		attempt.Outcome = models.Outcome(outcome.String)
	}
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &attempt.Errors); err != nil {
			return nil, err
		}
	}
	if completed.Valid {
		completedAt := completed.Time
		attempt.CompletedAt = &completedAt
	}
	return &attempt, nil
}
