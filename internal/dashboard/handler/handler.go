package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idadmin/internal/dashboard"
	"idadmin/internal/transport/http/shared"
	respond "idadmin/internal/transport/http/shared/json"
	"idadmin/pkg/requestcontext"
)

// Service defines the interface for dashboard operations.
type Service interface {
	GetSummary(ctx context.Context) (*dashboard.Summary, error)
}

// Handler handles the dashboard endpoint.
type Handler struct {
	logger    *slog.Logger
	dashboard Service
}

// New creates a new dashboard Handler.
func New(dashboard Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		dashboard: dashboard,
	}
}

// Register registers the dashboard route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/dashboard", h.handleGetDashboard)
}

func (h *Handler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.dashboard.GetSummary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to aggregate dashboard",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, summary)
}
