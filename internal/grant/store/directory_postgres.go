package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDirectory resolves subject display names from the users table.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory constructs a users-table backed subject directory.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// DisplayNames resolves the given subject IDs to display names. Unknown IDs
// are simply absent from the result map.
func (d *PostgresDirectory) DisplayNames(ctx context.Context, subjectIDs []string) (map[string]string, error) {
	if len(subjectIDs) == 0 {
		return map[string]string{}, nil
	}

	const query = `SELECT id, username FROM users WHERE id = ANY($1)`

	rows, err := d.db.QueryContext(ctx, query, subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("query subject names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(subjectIDs))
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("scan subject name: %w", err)
		}
		names[id] = username
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject names: %w", err)
	}
	return names, nil
}
