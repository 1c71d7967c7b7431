package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkroom/inkroom/internal/documents"
	"github.com/inkroom/inkroom/internal/observability"
	"github.com/inkroom/inkroom/internal/platform/httpx"
	"github.com/inkroom/inkroom/internal/users"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	DB               Pinger
	Cache            Pinger
	UsersHandler     *users.Handler
	DocumentsHandler *documents.Handler
	Metrics          *observability.Metrics
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}

// NewRouter constructs the chi.Router with inkroom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params))

	r.Route("/api", func(r chi.Router) {
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.DocumentsHandler != nil {
			r.Route("/documents", params.DocumentsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// healthHandler pings the database, and the cache when configured. A cache
// outage degrades the status but keeps the service healthy.
func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Database: "ok"}
		status := http.StatusOK
		if params.DB != nil {
			if err := params.DB.Ping(ctx); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("health: database ping", slog.Any("error", err))
				}
				resp.Status, resp.Database = "unavailable", "down"
				status = http.StatusServiceUnavailable
			}
		}
		if params.Cache != nil {
			resp.Cache = "ok"
			if err := params.Cache.Ping(ctx); err != nil {
				resp.Cache = "down"
				if resp.Status == "ok" {
					resp.Status = "degraded"
				}
			}
		}
		httpx.JSON(w, status, resp)
	}
}
