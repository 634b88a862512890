// Package dashboard aggregates administrative counts for the admin UI
// landing page. Counters are independent queries fanned out concurrently
// and joined all-or-nothing: a summary is only returned when every counter
// succeeded.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"idadmin/internal/dashboard/metrics"
	dErrors "idadmin/pkg/domain-errors"
)

// Counter names as reported in aggregation failures.
const (
	CounterUsers             = "users"
	CounterRoles             = "roles"
	CounterClients           = "clients"
	CounterAPIResources      = "api_resources"
	CounterAPIScopes         = "api_scopes"
	CounterIdentityResources = "identity_resources"
	CounterIdentityProviders = "identity_providers"
)

// Counters is the read boundary for the dashboard. Each count is an
// independent query against the underlying stores; counts taken at
// slightly different instants are acceptable.
type Counters interface {
	CountUsers(ctx context.Context) (int, error)
	CountRoles(ctx context.Context) (int, error)
	CountClients(ctx context.Context) (int, error)
	CountAPIResources(ctx context.Context) (int, error)
	CountAPIScopes(ctx context.Context) (int, error)
	CountIdentityResources(ctx context.Context) (int, error)
	CountIdentityProviders(ctx context.Context) (int, error)
}

// Summary holds the aggregated counts at a point in time. No cross-count
// consistency is guaranteed.
type Summary struct {
	Users             int       `json:"users_total"`
	Roles             int       `json:"roles_total"`
	Clients           int       `json:"clients_total"`
	APIResources      int       `json:"api_resources_total"`
	APIScopes         int       `json:"api_scopes_total"`
	IdentityResources int       `json:"identity_resources_total"`
	IdentityProviders int       `json:"identity_providers_total"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// AggregationError names every counter that failed. No partial summary
// accompanies it.
type AggregationError struct {
	Failed []string
	errs   []error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("dashboard aggregation failed for counters: %s", strings.Join(e.Failed, ", "))
}

func (e *AggregationError) Unwrap() []error {
	return e.errs
}

// Service fans out the count queries and joins the results.
type Service struct {
	counters Counters
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithTracer sets the tracer used for the aggregation span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMetrics sets the metrics instance for the dashboard service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(counters Counters, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{counters: counters, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("idadmin/dashboard")
	}
	return s
}

// countResult holds one counter's outcome. Each goroutine writes to its own
// slot, avoiding data races; results are assembled after all complete.
type countResult struct {
	name  string
	value int
	err   error
}

// GetSummary issues all count queries concurrently and waits for every one.
// If any sub-query fails the whole operation fails with an error naming the
// failed counters; no partial summary is returned. Cancelling the parent
// context propagates to all in-flight sub-queries.
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.get_summary")
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAggregationLatency(time.Since(start))
		}
	}()

	fetches := []struct {
		name  string
		count func(context.Context) (int, error)
	}{
		{CounterUsers, s.counters.CountUsers},
		{CounterRoles, s.counters.CountRoles},
		{CounterClients, s.counters.CountClients},
		{CounterAPIResources, s.counters.CountAPIResources},
		{CounterAPIScopes, s.counters.CountAPIScopes},
		{CounterIdentityResources, s.counters.CountIdentityResources},
		{CounterIdentityProviders, s.counters.CountIdentityProviders},
	}

	results := make([]countResult, len(fetches))
	g, gctx := errgroup.WithContext(ctx)
	for i, fetch := range fetches {
		g.Go(func() error {
			value, err := fetch.count(gctx)
			// Record in the isolated slot instead of failing the group, so
			// the final error can name every failed counter rather than
			// just the first.
			results[i] = countResult{name: fetch.name, value: value, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCancelled, "dashboard aggregation cancelled")
	}

	aggErr := &AggregationError{}
	for _, result := range results {
		if result.err != nil {
			if errors.Is(result.err, context.Canceled) || errors.Is(result.err, context.DeadlineExceeded) {
				return nil, dErrors.Wrap(result.err, dErrors.CodeCancelled, "dashboard aggregation cancelled")
			}
			aggErr.Failed = append(aggErr.Failed, result.name)
			aggErr.errs = append(aggErr.errs, result.err)
			if s.metrics != nil {
				s.metrics.IncrementCounterFailure(result.name)
			}
		}
	}
	if len(aggErr.Failed) > 0 {
		sort.Strings(aggErr.Failed)
		s.logger.ErrorContext(ctx, "dashboard aggregation failed",
			"counters", aggErr.Failed,
		)
		return nil, dErrors.Wrap(aggErr, dErrors.CodeAggregation, aggErr.Error())
	}

	summary := &Summary{GeneratedAt: time.Now()}
	for _, result := range results {
		switch result.name {
		case CounterUsers:
			summary.Users = result.value
		case CounterRoles:
			summary.Roles = result.value
		case CounterClients:
			summary.Clients = result.value
		case CounterAPIResources:
			summary.APIResources = result.value
		case CounterAPIScopes:
			summary.APIScopes = result.value
		case CounterIdentityResources:
			summary.IdentityResources = result.value
		case CounterIdentityProviders:
			summary.IdentityProviders = result.value
		}
	}
	return summary, nil
}
