package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idadmin/internal/platform/middleware"
	respond "idadmin/internal/transport/http/shared/json"
)

// Registrar is implemented by domain handlers that attach their routes to
// the router.
type Registrar interface {
	Register(r chi.Router)
}

// Options collects transport-level wiring for NewRouter.
type Options struct {
	Logger          *slog.Logger
	AdminSigningKey []byte
	RequestTimeout  time.Duration
	Health          func(ctx context.Context) error
}

// NewRouter wires operational endpoints and the admin API with middleware.
// Every admin route sits behind bearer authentication; /metrics and /healthz
// stay open for scrapers and probes.
func NewRouter(opts Options, admin ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.ClientMetadata)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealth(opts.Health))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(opts.AdminSigningKey, opts.Logger))
		for _, registrar := range admin {
			registrar.Register(r)
		}
	})

	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
