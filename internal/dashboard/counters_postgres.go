package dashboard

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresCounters reads dashboard counts from PostgreSQL.
type PostgresCounters struct {
	db *sql.DB
}

// NewPostgresCounters constructs a PostgreSQL-backed counter source.
func NewPostgresCounters(db *sql.DB) *PostgresCounters {
	return &PostgresCounters{db: db}
}

func (c *PostgresCounters) count(ctx context.Context, table string) (int, error) {
	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func (c *PostgresCounters) CountUsers(ctx context.Context) (int, error) {
	return c.count(ctx, "users")
}

func (c *PostgresCounters) CountRoles(ctx context.Context) (int, error) {
	return c.count(ctx, "roles")
}

func (c *PostgresCounters) CountClients(ctx context.Context) (int, error) {
	return c.count(ctx, "clients")
}

func (c *PostgresCounters) CountAPIResources(ctx context.Context) (int, error) {
	return c.count(ctx, "api_resources")
}

func (c *PostgresCounters) CountAPIScopes(ctx context.Context) (int, error) {
	return c.count(ctx, "api_scopes")
}

func (c *PostgresCounters) CountIdentityResources(ctx context.Context) (int, error) {
	return c.count(ctx, "identity_resources")
}

func (c *PostgresCounters) CountIdentityProviders(ctx context.Context) (int, error) {
	return c.count(ctx, "identity_providers")
}
