package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"idadmin/internal/grant/models"
	"idadmin/internal/sentinel"
	"idadmin/pkg/paging"
)

// PostgresStore persists grants in PostgreSQL via the pgx stdlib driver.
type PostgresStore struct {
	db       *sql.DB
	autoSave bool

	mu      sync.Mutex
	pending []pendingOp
}

// PostgresOption configures the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresDeferredWrites turns off AutoSaveChanges: mutating operations
// queue until SaveAllChanges applies them in one transaction.
func WithPostgresDeferredWrites() PostgresOption {
	return func(s *PostgresStore) {
		s.autoSave = false
	}
}

// NewPostgres constructs a PostgreSQL-backed grant store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, autoSave: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Save(ctx context.Context, grant *models.Grant) error {
	if grant == nil || grant.Key == "" || grant.SubjectID == "" {
		return sentinel.ErrInvalidInput
	}
	if !s.autoSave {
		copyGrant := *grant
		s.mu.Lock()
		s.pending = append(s.pending, pendingOp{kind: opSave, grant: &copyGrant})
		s.mu.Unlock()
		return nil
	}
	if err := insertGrant(ctx, s.db, grant); err != nil {
		return err
	}
	return nil
}

func insertGrant(ctx context.Context, exec dbExecutor, grant *models.Grant) error {
	query := `
		INSERT INTO persisted_grants (key, subject_id, grant_type, client_id, creation_time, expiration, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.ExecContext(ctx, query,
		grant.Key,
		grant.SubjectID,
		grant.Type,
		grant.ClientID,
		grant.CreationTime,
		grant.Expiration,
		grant.Data,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("grant key must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return classify("save grant", err)
	}
	return nil
}

func (s *PostgresStore) GetByKey(ctx context.Context, key string) (*models.Grant, error) {
	if key == "" {
		return nil, sentinel.ErrInvalidInput
	}
	query := `
		SELECT key, subject_id, grant_type, client_id, creation_time, expiration, data
		FROM persisted_grants
		WHERE key = $1
	`
	grant, err := scanGrant(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, classify("find grant", err)
	}
	return grant, nil
}

func (s *PostgresStore) GetBySubject(ctx context.Context, subjectID string, req paging.Request) (paging.PagedList[models.Grant], error) {
	var empty paging.PagedList[models.Grant]
	if subjectID == "" {
		return empty, sentinel.ErrInvalidInput
	}
	if err := req.Validate(); err != nil {
		return empty, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM persisted_grants WHERE subject_id = $1`
	if err := s.db.QueryRowContext(ctx, countQuery, subjectID).Scan(&total); err != nil {
		return empty, classify("count grants by subject", err)
	}

	query := `
		SELECT key, subject_id, grant_type, client_id, creation_time, expiration, data
		FROM persisted_grants
		WHERE subject_id = $1
		ORDER BY creation_time DESC, key ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID, req.PageSize, req.Offset())
	if err != nil {
		return empty, classify("list grants by subject", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return empty, classify("scan grant", err)
		}
		grants = append(grants, *grant)
	}
	if err := rows.Err(); err != nil {
		return empty, classify("iterate grants", err)
	}
	return paging.NewPagedList(grants, total, req.PageSize), nil
}

func (s *PostgresStore) SearchSubjects(ctx context.Context, term string, req paging.Request) (paging.PagedList[models.SubjectGrants], error) {
	var empty paging.PagedList[models.SubjectGrants]
	if err := req.Validate(); err != nil {
		return empty, err
	}
	pattern := "%" + term + "%"

	var total int
	countQuery := `
		SELECT COUNT(DISTINCT subject_id)
		FROM persisted_grants
		WHERE subject_id ILIKE $1
	`
	if err := s.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return empty, classify("count subjects", err)
	}

	query := `
		SELECT subject_id, COUNT(*) AS grant_count
		FROM persisted_grants
		WHERE subject_id ILIKE $1
		GROUP BY subject_id
		ORDER BY subject_id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, pattern, req.PageSize, req.Offset())
	if err != nil {
		return empty, classify("search subjects", err)
	}
	defer rows.Close()

	var subjects []models.SubjectGrants
	for rows.Next() {
		var subject models.SubjectGrants
		if err := rows.Scan(&subject.SubjectID, &subject.GrantCount); err != nil {
			return empty, classify("scan subject", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return empty, classify("iterate subjects", err)
	}
	return paging.NewPagedList(subjects, total, req.PageSize), nil
}

func (s *PostgresStore) ExistsByKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, sentinel.ErrInvalidInput
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM persisted_grants WHERE key = $1)`
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, classify("grant exists by key", err)
	}
	return exists, nil
}

func (s *PostgresStore) ExistsBySubject(ctx context.Context, subjectID string) (bool, error) {
	if subjectID == "" {
		return false, sentinel.ErrInvalidInput
	}
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM persisted_grants WHERE subject_id = $1)`
	if err := s.db.QueryRowContext(ctx, query, subjectID).Scan(&exists); err != nil {
		return false, classify("grant exists by subject", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteByKey(ctx context.Context, key string) (int, error) {
	if key == "" {
		return 0, sentinel.ErrInvalidInput
	}
	if !s.autoSave {
		var subjectID string
		query := `SELECT subject_id FROM persisted_grants WHERE key = $1`
		if err := s.db.QueryRowContext(ctx, query, key).Scan(&subjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, nil
			}
			return 0, classify("find grant subject", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if queuedRemove(s.pending, key, subjectID) {
			return 0, nil
		}
		s.pending = append(s.pending, pendingOp{kind: opDeleteKey, key: key})
		return 1, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM persisted_grants WHERE key = $1`, key)
	if err != nil {
		return 0, classify("delete grant", err)
	}
	return affected(res)
}

func (s *PostgresStore) DeleteBySubject(ctx context.Context, subjectID string) (int, error) {
	if subjectID == "" {
		return 0, sentinel.ErrInvalidInput
	}
	if !s.autoSave {
		// Count against committed state net of already-queued deletes, so
		// repeated calls do not report the same removals twice.
		s.mu.Lock()
		// Empty slice, not nil: a NULL array would make the filter match
		// nothing instead of everything.
		pendingKeys := []string{}
		for _, op := range s.pending {
			if op.kind == opDeleteSubject && op.subjectID == subjectID {
				s.mu.Unlock()
				return 0, nil
			}
			if op.kind == opDeleteKey {
				pendingKeys = append(pendingKeys, op.key)
			}
		}
		s.mu.Unlock()

		var count int
		query := `SELECT COUNT(*) FROM persisted_grants WHERE subject_id = $1 AND key <> ALL($2)`
		if err := s.db.QueryRowContext(ctx, query, subjectID, pendingKeys).Scan(&count); err != nil {
			return 0, classify("count grants by subject", err)
		}
		if count == 0 {
			return 0, nil
		}
		s.mu.Lock()
		s.pending = append(s.pending, pendingOp{kind: opDeleteSubject, subjectID: subjectID})
		s.mu.Unlock()
		return count, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM persisted_grants WHERE subject_id = $1`, subjectID)
	if err != nil {
		return 0, classify("delete grants by subject", err)
	}
	return affected(res)
}

// SaveAllChanges applies queued writes in one transaction. The whole batch
// commits or none of it does.
func (s *PostgresStore) SaveAllChanges(ctx context.Context) (int, error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(pending) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		// Put the batch back so the caller can retry the commit.
		s.requeue(pending)
		return 0, classify("begin save changes", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	applied := 0
	for _, op := range pending {
		switch op.kind {
		case opSave:
			if err := insertGrant(ctx, tx, op.grant); err != nil {
				s.requeue(pending)
				return 0, err
			}
			applied++
		case opDeleteKey:
			res, err := tx.ExecContext(ctx, `DELETE FROM persisted_grants WHERE key = $1`, op.key)
			if err != nil {
				s.requeue(pending)
				return 0, classify("delete grant", err)
			}
			n, err := affected(res)
			if err != nil {
				s.requeue(pending)
				return 0, err
			}
			applied += n
		case opDeleteSubject:
			res, err := tx.ExecContext(ctx, `DELETE FROM persisted_grants WHERE subject_id = $1`, op.subjectID)
			if err != nil {
				s.requeue(pending)
				return 0, classify("delete grants by subject", err)
			}
			n, err := affected(res)
			if err != nil {
				s.requeue(pending)
				return 0, err
			}
			applied += n
		}
	}

	if err := tx.Commit(); err != nil {
		s.requeue(pending)
		return 0, classify("commit save changes", err)
	}
	return applied, nil
}

func (s *PostgresStore) requeue(ops []pendingOp) {
	s.mu.Lock()
	s.pending = append(ops, s.pending...)
	s.mu.Unlock()
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type grantRow interface {
	Scan(dest ...any) error
}

func scanGrant(row grantRow) (*models.Grant, error) {
	var grant models.Grant
	var expiration sql.NullTime
	if err := row.Scan(
		&grant.Key,
		&grant.SubjectID,
		&grant.Type,
		&grant.ClientID,
		&grant.CreationTime,
		&expiration,
		&grant.Data,
	); err != nil {
		return nil, err
	}
	if expiration.Valid {
		grant.Expiration = &expiration.Time
	}
	return &grant, nil
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("rows affected", err)
	}
	return int(n), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify maps driver failures to the unavailability sentinel so services
// can distinguish "store unreachable, retry later" from everything else.
// Context cancellation passes through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception, 53: insufficient resources,
		// 57: operator intervention (shutdown).
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53", "57":
				return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
