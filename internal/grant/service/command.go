package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"idadmin/internal/audit"
	"idadmin/internal/grant/events"
	"idadmin/internal/grant/metrics"
	"idadmin/internal/grant/models"
	dErrors "idadmin/pkg/domain-errors"
	"idadmin/pkg/requestcontext"
)

// Deletion scopes for metrics labels.
const (
	scopeKey     = "key"
	scopeSubject = "subject"
)

// CommandService deletes grants with an existence check first, so callers
// get a definitive not_found for targets that were already absent instead
// of a silent zero-row delete.
//
// The check and the delete are not atomic with respect to concurrent
// deleters: last delete wins and every racer that passed the check gets
// success. Only a target absent before the check reports not_found.
type CommandService struct {
	store     Store
	committer Committer
	auditor   *audit.Publisher
	bus       *events.Bus
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// CommandOption configures the CommandService.
type CommandOption func(*CommandService)

// WithCommandMetrics sets the metrics instance for the command service.
func WithCommandMetrics(m *metrics.Metrics) CommandOption {
	return func(s *CommandService) {
		s.metrics = m
	}
}

// WithCommandTracer sets the tracer used for operation spans.
func WithCommandTracer(t trace.Tracer) CommandOption {
	return func(s *CommandService) {
		s.tracer = t
	}
}

// WithCommitter makes the service flush the store's queued writes after
// each successful command. Required when the store runs with deferred
// writes; otherwise deletions would sit in the buffer forever.
func WithCommitter(c Committer) CommandOption {
	return func(s *CommandService) {
		s.committer = c
	}
}

// WithEventBus sets the bus deletion events are published to.
func WithEventBus(bus *events.Bus) CommandOption {
	return func(s *CommandService) {
		s.bus = bus
	}
}

func NewCommandService(store Store, auditor *audit.Publisher, logger *slog.Logger, opts ...CommandOption) *CommandService {
	s := &CommandService{
		store:   store,
		auditor: auditor,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = tracerOrDefault(s.tracer)
	return s
}

// DeleteGrant removes the grant with the given key. Returns not_found when
// the grant was already absent at check time.
func (s *CommandService) DeleteGrant(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "grant.delete")
	defer span.End()

	if key == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "grant key is required")
	}

	exists, err := s.store.ExistsByKey(ctx, key)
	if err != nil {
		return translate(err, "failed to check grant existence")
	}
	if !exists {
		if s.metrics != nil {
			s.metrics.IncrementDeletionsRejected(scopeKey)
		}
		return dErrors.New(dErrors.CodeNotFound, "grant does not exist")
	}

	// A concurrent deleter may win between the check and here; that still
	// counts as success for both callers.
	start := time.Now()
	deleted, err := s.store.DeleteByKey(ctx, key)
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation("delete_by_key", time.Since(start))
	}
	if err != nil {
		return translate(err, "failed to delete grant")
	}
	if err := s.commit(ctx); err != nil {
		return translate(err, "failed to commit grant deletion")
	}

	if s.metrics != nil {
		s.metrics.IncrementGrantsDeleted(scopeKey, deleted)
	}
	s.emitAudit(ctx, audit.Event{
		GrantKey: key,
		Action:   models.AuditActionGrantDeleted,
		Deleted:  deleted,
	})
	if s.bus != nil {
		s.bus.PublishGrantDeleted(models.GrantDeleted{Key: key})
	}
	return nil
}

// DeleteGrantsForSubject removes every grant owned by the subject. Returns
// not_found when the subject owned no grants at check time.
func (s *CommandService) DeleteGrantsForSubject(ctx context.Context, subjectID string) error {
	ctx, span := s.tracer.Start(ctx, "grant.delete_for_subject")
	defer span.End()

	if subjectID == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "subject ID is required")
	}

	exists, err := s.store.ExistsBySubject(ctx, subjectID)
	if err != nil {
		return translate(err, "failed to check subject grants existence")
	}
	if !exists {
		if s.metrics != nil {
			s.metrics.IncrementDeletionsRejected(scopeSubject)
		}
		return dErrors.New(dErrors.CodeNotFound, "subject has no grants")
	}

	start := time.Now()
	deleted, err := s.store.DeleteBySubject(ctx, subjectID)
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation("delete_by_subject", time.Since(start))
	}
	if err != nil {
		return translate(err, "failed to delete subject grants")
	}
	if err := s.commit(ctx); err != nil {
		return translate(err, "failed to commit subject grant deletions")
	}

	if s.metrics != nil {
		s.metrics.IncrementGrantsDeleted(scopeSubject, deleted)
	}
	s.emitAudit(ctx, audit.Event{
		SubjectID: subjectID,
		Action:    models.AuditActionGrantsDeletedForSubject,
		Deleted:   deleted,
	})
	if s.bus != nil {
		s.bus.PublishGrantsDeletedForSubject(models.GrantsDeletedForSubject{
			SubjectID: subjectID,
			Deleted:   deleted,
		})
	}
	return nil
}

// commit flushes queued writes when the store defers them. A store that
// applies writes immediately has no committer and this is a no-op.
func (s *CommandService) commit(ctx context.Context) error {
	if s.committer == nil {
		return nil
	}
	_, err := s.committer.SaveAllChanges(ctx)
	return err
}

// emitAudit records the deletion with actor and client attribution from the
// request context. Audit failures are logged, never surfaced to the caller.
func (s *CommandService) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.ActorID = requestcontext.ActorID(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientOS = requestcontext.ClientOS(ctx)
	event.ClientBrowser = requestcontext.ClientBrowser(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
