package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idadmin/internal/grant/models"
	"idadmin/internal/transport/http/shared"
	respond "idadmin/internal/transport/http/shared/json"
	dErrors "idadmin/pkg/domain-errors"
	"idadmin/pkg/requestcontext"
)

// Defaults applied when paging parameters are omitted from the query string.
const (
	defaultPage     = 1
	defaultPageSize = 10
)

// QueryService defines the read operations for grant endpoints.
type QueryService interface {
	Search(ctx context.Context, term string, page, pageSize int) (*models.SubjectsPage, error)
	GetByKey(ctx context.Context, key string) (*models.Grant, error)
	ListBySubject(ctx context.Context, subjectID string, page, pageSize int) (*models.GrantsPage, error)
}

// CommandService defines the write operations for grant endpoints.
type CommandService interface {
	DeleteGrant(ctx context.Context, key string) error
	DeleteGrantsForSubject(ctx context.Context, subjectID string) error
}

// Handler handles grant administration endpoints.
type Handler struct {
	logger   *slog.Logger
	queries  QueryService
	commands CommandService
	pageSize int
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithDefaultPageSize overrides the page size used when the query string
// omits pageSize.
func WithDefaultPageSize(size int) HandlerOption {
	return func(h *Handler) {
		if size > 0 {
			h.pageSize = size
		}
	}
}

// New creates a new grant Handler.
func New(queries QueryService, commands CommandService, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:   logger,
		queries:  queries,
		commands: commands,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the grant routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/grants", h.handleSearchGrants)
	r.Get("/admin/grants/{key}", h.handleGetGrant)
	r.Delete("/admin/grants/{key}", h.handleDeleteGrant)
	r.Get("/admin/subjects/{subjectID}/grants", h.handleListSubjectGrants)
	r.Delete("/admin/subjects/{subjectID}/grants", h.handleDeleteSubjectGrants)
}

func (h *Handler) handleSearchGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, pageSize, err := h.pagingParams(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.queries.Search(ctx, r.URL.Query().Get("search"), page, pageSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to search grants",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatSubjectsPage(res))
}

func (h *Handler) handleGetGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	grant, err := h.queries.GetByKey(ctx, key)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get grant",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatGrant(*grant))
}

func (h *Handler) handleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	if err := h.commands.DeleteGrant(ctx, key); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete grant",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, deleteResponse{
		Message: "Grant deleted",
	})
}

func (h *Handler) handleListSubjectGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := chi.URLParam(r, "subjectID")

	page, pageSize, err := h.pagingParams(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	res, err := h.queries.ListBySubject(ctx, subjectID, page, pageSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list subject grants",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatGrantsPage(res))
}

func (h *Handler) handleDeleteSubjectGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := chi.URLParam(r, "subjectID")

	if err := h.commands.DeleteGrantsForSubject(ctx, subjectID); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete subject grants",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, deleteResponse{
		Message: "Grants deleted for subject",
	})
}

// pagingParams reads page and pageSize from the query string. Omitted
// parameters fall back to defaults; present but unparsable values are a
// caller fault.
func (h *Handler) pagingParams(r *http.Request) (int, int, error) {
	page, err := intParam(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intParam(r, "pageSize", h.pageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, fmt.Sprintf("%s must be an integer", name))
	}
	return value, nil
}
