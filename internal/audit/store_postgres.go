package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (
			id, occurred_at, actor_id, subject_id, grant_key,
			action, deleted, request_id, client_os, client_browser
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.ActorID, event.SubjectID, event.GrantKey,
		event.Action, event.Deleted, event.RequestID, event.ClientOS, event.ClientBrowser,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Event, error) {
	const query = `
		SELECT id, occurred_at, actor_id, subject_id, grant_key,
		       action, deleted, request_id, client_os, client_browser
		FROM audit_events
		WHERE subject_id = $1
		ORDER BY occurred_at DESC`

	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.ActorID, &event.SubjectID, &event.GrantKey,
			&event.Action, &event.Deleted, &event.RequestID, &event.ClientOS, &event.ClientBrowser,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
