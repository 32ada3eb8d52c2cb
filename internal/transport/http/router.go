package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"console/internal/platform/metrics"
	"console/internal/platform/middleware"
	"console/pkg/platform/httputil"
	"console/pkg/platform/middleware/admin"
	"console/pkg/platform/middleware/metadata"
	"console/pkg/platform/middleware/requesttime"
)

// Registrar is a module handler that mounts its routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds what the router needs beyond the module handlers.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AdminToken     string
	RequestTimeout time.Duration
	Checks         map[string]HealthCheck
	// RateLimit, when set, runs ahead of the admin token check.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter wires the platform middleware, the operational endpoints and the
// console modules. Module routes sit behind the admin token and forward the
// caller's Authorization to the admin API.
func NewRouter(cfg Config, modules ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", healthHandler(cfg.Checks, logger))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
		r.Use(middleware.ForwardAuthorization)
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		for _, mod := range modules {
			mod.Register(r)
		}
	})

	return otelhttp.NewHandler(r, "console",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
