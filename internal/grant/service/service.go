package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"idadmin/internal/grant/models"
	"idadmin/internal/sentinel"
	dErrors "idadmin/pkg/domain-errors"
	"idadmin/pkg/paging"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,SubjectDirectory

// Store defines the persistence interface consumed by both services.
// Error Contract:
//   - Lookups return sentinel.ErrNotFound when no record exists.
//   - Malformed input returns sentinel.ErrInvalidInput.
//   - Storage unreachability returns wrapped sentinel.ErrUnavailable.
type Store interface {
	GetByKey(ctx context.Context, key string) (*models.Grant, error)
	GetBySubject(ctx context.Context, subjectID string, req paging.Request) (paging.PagedList[models.Grant], error)
	SearchSubjects(ctx context.Context, term string, req paging.Request) (paging.PagedList[models.SubjectGrants], error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
	ExistsBySubject(ctx context.Context, subjectID string) (bool, error)
	DeleteByKey(ctx context.Context, key string) (int, error)
	DeleteBySubject(ctx context.Context, subjectID string) (int, error)
}

// Committer flushes writes a store queued while running with deferred
// writes. Stores that apply changes immediately do not implement it.
type Committer interface {
	SaveAllChanges(ctx context.Context) (int, error)
}

// SubjectDirectory resolves subject IDs to display names. It is an
// out-of-scope collaborator; lookups are best-effort and a failing
// directory never fails a search.
type SubjectDirectory interface {
	DisplayNames(ctx context.Context, subjectIDs []string) (map[string]string, error)
}

// translate maps dependency failures to coded domain errors exactly once at
// the service boundary. Already-coded errors keep their code.
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeCancelled, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrInvalidInput),
		errors.Is(err, paging.ErrInvalidPage),
		errors.Is(err, paging.ErrInvalidPageSize):
		return dErrors.Wrap(err, dErrors.CodeInvalidArgument, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func tracerOrDefault(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return otel.Tracer("idadmin/grant")
}
