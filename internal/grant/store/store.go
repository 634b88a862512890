package store

import (
	"context"

	"idadmin/internal/grant/models"
	"idadmin/pkg/paging"
)

// Store is the sole authority for grant persistence.
//
// Error Contract:
//   - Lookup methods return sentinel.ErrNotFound when no record exists.
//   - Empty keys or subject IDs return sentinel.ErrInvalidInput before any
//     storage access.
//   - Storage unreachability surfaces as a wrapped sentinel.ErrUnavailable,
//     never silently swallowed.
//
// Write buffering: when AutoSaveChanges is on (the admin default) mutating
// operations commit immediately. When off, Save and the delete operations
// are queued and applied atomically by SaveAllChanges. Reads always reflect
// committed state only; read-after-write for a key is guaranteed once
// SaveAllChanges has returned for that write.
type Store interface {
	// Save persists a new grant. Used by the issuance boundary and test
	// fixtures; returns sentinel.ErrAlreadyUsed when the key is taken.
	Save(ctx context.Context, grant *models.Grant) error

	// GetByKey returns the grant with the given key, or sentinel.ErrNotFound.
	GetByKey(ctx context.Context, key string) (*models.Grant, error)

	// GetBySubject returns one page of a subject's grants, newest first.
	// Ordering is stable across calls within the same snapshot.
	GetBySubject(ctx context.Context, subjectID string, req paging.Request) (paging.PagedList[models.Grant], error)

	// SearchSubjects returns one page of subjects owning at least one grant,
	// filtered by a case-insensitive substring match on the subject ID.
	// An empty term matches all subjects.
	SearchSubjects(ctx context.Context, term string, req paging.Request) (paging.PagedList[models.SubjectGrants], error)

	// ExistsByKey reports whether a grant with the key exists without
	// materializing the record.
	ExistsByKey(ctx context.Context, key string) (bool, error)

	// ExistsBySubject reports whether the subject owns any grant.
	ExistsBySubject(ctx context.Context, subjectID string) (bool, error)

	// DeleteByKey removes the grant with the key. Deleting an absent key is
	// a no-op returning 0, not an error.
	DeleteByKey(ctx context.Context, key string) (int, error)

	// DeleteBySubject removes every grant owned by the subject and returns
	// how many were removed. Same no-op contract as DeleteByKey.
	DeleteBySubject(ctx context.Context, subjectID string) (int, error)

	// SaveAllChanges applies queued writes and returns how many were
	// applied. A no-op (0, nil) when nothing is pending.
	SaveAllChanges(ctx context.Context) (int, error)
}
