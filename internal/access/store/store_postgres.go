package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"regportal/internal/access"
	"regportal/pkg/domain"
)

// Postgres reads access grants from the access_grants table. The grant
// approval workflow writes those rows; this store only consumes them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) HasApprovedGrant(ctx context.Context, userID domain.UserID, subjectID domain.SubjectID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM access_grants
			WHERE user_id = $1 AND subject_id = $2 AND status = $3
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, userID.String(), subjectID.String(), string(access.GrantApproved)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListApprovedSubjects(ctx context.Context, userID domain.UserID) ([]domain.SubjectID, error) {
	query := `SELECT subject_id FROM access_grants WHERE user_id = $1 AND status = $2`
	rows, err := s.db.QueryContext(ctx, query, userID.String(), string(access.GrantApproved))
	if err != nil {
		return nil, fmt.Errorf("list approved subjects: %w", err)
	}
	defer rows.Close()

	var out []domain.SubjectID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list approved subjects: %w", err)
		}
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("list approved subjects: %w", err)
		}
		out = append(out, domain.SubjectID(parsed))
	}
	return out, rows.Err()
}
