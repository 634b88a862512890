package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"idadmin/internal/grant/metrics"
	"idadmin/internal/grant/models"
	dErrors "idadmin/pkg/domain-errors"
	"idadmin/pkg/paging"
)

// QueryService builds paged, optionally search-filtered views over the
// grant store. Results reflect store state at call time; nothing is cached.
type QueryService struct {
	store     Store
	directory SubjectDirectory
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

// QueryOption configures the QueryService.
type QueryOption func(*QueryService)

// WithQueryMetrics sets the metrics instance for the query service.
func WithQueryMetrics(m *metrics.Metrics) QueryOption {
	return func(s *QueryService) {
		s.metrics = m
	}
}

// WithQueryTracer sets the tracer used for operation spans.
func WithQueryTracer(t trace.Tracer) QueryOption {
	return func(s *QueryService) {
		s.tracer = t
	}
}

func NewQueryService(store Store, directory SubjectDirectory, logger *slog.Logger, opts ...QueryOption) *QueryService {
	s := &QueryService{
		store:     store,
		directory: directory,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = tracerOrDefault(s.tracer)
	return s
}

// Search returns one page of the subject-grouped grant view, filtered by a
// free-text term matched against subject IDs. An empty term matches all
// subjects. Non-positive page or pageSize is rejected; defaults for omitted
// parameters are the transport layer's concern.
func (s *QueryService) Search(ctx context.Context, term string, page, pageSize int) (*models.SubjectsPage, error) {
	ctx, span := s.tracer.Start(ctx, "grant.search")
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSearchLatency(time.Since(start))
		}
	}()

	req := paging.Request{Page: page, PageSize: pageSize}
	if err := req.Validate(); err != nil {
		return nil, translate(err, "invalid paging parameters")
	}

	subjects, err := s.store.SearchSubjects(ctx, term, req)
	if err != nil {
		return nil, translate(err, "failed to search grants")
	}

	s.joinDisplayNames(ctx, subjects.Items)
	if s.metrics != nil {
		for _, row := range subjects.Items {
			s.metrics.ObserveGrantsPerSubject(row.GrantCount)
		}
	}

	return &models.SubjectsPage{SearchTerm: term, Subjects: subjects}, nil
}

// GetByKey returns a single grant or a not_found error.
func (s *QueryService) GetByKey(ctx context.Context, key string) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "grant.get_by_key")
	defer span.End()

	if key == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "grant key is required")
	}
	grant, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, translate(err, "failed to read grant")
	}
	return grant, nil
}

// ListBySubject returns one page of a subject's grants, newest first.
func (s *QueryService) ListBySubject(ctx context.Context, subjectID string, page, pageSize int) (*models.GrantsPage, error) {
	ctx, span := s.tracer.Start(ctx, "grant.list_by_subject")
	defer span.End()

	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "subject ID is required")
	}
	req := paging.Request{Page: page, PageSize: pageSize}
	if err := req.Validate(); err != nil {
		return nil, translate(err, "invalid paging parameters")
	}

	grants, err := s.store.GetBySubject(ctx, subjectID, req)
	if err != nil {
		return nil, translate(err, "failed to list grants")
	}
	return &models.GrantsPage{SubjectID: subjectID, Grants: grants}, nil
}

// joinDisplayNames decorates search rows with names from the subject
// directory. Best-effort: a failing directory leaves names empty.
func (s *QueryService) joinDisplayNames(ctx context.Context, rows []models.SubjectGrants) {
	if s.directory == nil || len(rows) == 0 {
		return
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.SubjectID
	}
	names, err := s.directory.DisplayNames(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "subject directory lookup failed, returning grants without names",
			"error", err,
		)
		return
	}
	for i := range rows {
		rows[i].SubjectName = names[rows[i].SubjectID]
	}
}
