package audit

import (
	"context"
	"database/sql"
	"fmt"

	"regportal/pkg/domain"
)

// PostgresStore persists the audit trail in the audit_log table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_log (occurred_at, actor_id, action, entity, entity_id, before, after, request_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
	`
	_, err := s.db.ExecContext(ctx, query,
		event.Timestamp, event.ActorID.String(), string(event.Action),
		event.Entity, event.EntityID, event.Before, event.After, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entity, entityID string) ([]Event, error) {
	query := `
		SELECT occurred_at, actor_id, action, entity, entity_id,
		       COALESCE(before, ''), COALESCE(after, ''), COALESCE(request_id, '')
		FROM audit_log
		WHERE entity = $1 AND entity_id = $2
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event    Event
			actorRaw string
			action   string
		)
		if err := rows.Scan(&event.Timestamp, &actorRaw, &action, &event.Entity, &event.EntityID,
			&event.Before, &event.After, &event.RequestID); err != nil {
			return nil, fmt.Errorf("list audit events: %w", err)
		}
		event.Action = Action(action)
		if actorID, err := domain.ParseUserID(actorRaw); err == nil {
			event.ActorID = actorID
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
