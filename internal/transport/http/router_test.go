package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"console/internal/platform/metrics"
	"console/pkg/requestcontext"
	"console/pkg/testutil"
)

// echoModule reports what the module group sees.
type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/console/echo", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, hasDeadline := ctx.Deadline()
		w.Header().Set("X-Seen-Auth", requestcontext.Authorization(ctx))
		w.Header().Set("X-Seen-IP", requestcontext.ClientIP(ctx))
		if hasDeadline {
			w.Header().Set("X-Seen-Deadline", "yes")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/console/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newRouter(checks map[string]HealthCheck) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		AdminToken:     "ops-token",
		RequestTimeout: 5 * time.Second,
		Checks:         checks,
	}, echoModule{})
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the console router", func(t *testing.T) {
		router := newRouter(nil)

		testutil.When(t, "calling GET /healthz without a token", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			testutil.Then(t, "it should respond ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				if rec.Header().Get("X-Request-ID") == "" {
					t.Fatal("expected a request id header")
				}
			})
		})

		testutil.When(t, "calling a module route without the admin token", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/console/echo", nil))

			testutil.Then(t, "it should be rejected", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "calling a module route with the admin token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/console/echo", nil)
			req.Header.Set("X-Admin-Token", "ops-token")
			req.Header.Set("Authorization", "Bearer operator")
			req.Header.Set("X-Real-IP", "198.51.100.9")
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "the request context is populated", func(t *testing.T) {
				if rec.Code != http.StatusNoContent {
					t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
				}
				if got := rec.Header().Get("X-Seen-Auth"); got != "Bearer operator" {
					t.Fatalf("expected forwarded authorization, got %q", got)
				}
				if got := rec.Header().Get("X-Seen-IP"); got != "198.51.100.9" {
					t.Fatalf("expected client ip, got %q", got)
				}
				if rec.Header().Get("X-Seen-Deadline") != "yes" {
					t.Fatal("expected a request deadline")
				}
			})
		})

		testutil.When(t, "posting a non-JSON body", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/console/echo", strings.NewReader("<xml/>"))
			req.Header.Set("X-Admin-Token", "ops-token")
			req.Header.Set("Content-Type", "text/xml")
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it should be refused", func(t *testing.T) {
				if rec.Code != http.StatusUnsupportedMediaType {
					t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, rec.Code)
				}
			})
		})

		testutil.When(t, "calling GET /metrics after traffic", func(t *testing.T) {
			rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			testutil.Then(t, "request latency is exported", func(t *testing.T) {
				if !strings.Contains(rec.Body.String(), "console_http_request_duration_seconds") {
					t.Fatal("expected latency histogram in /metrics output")
				}
			})
		})
	})
}

func TestHealthReportsFailingCheck(t *testing.T) {
	router := newRouter(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRouterRateLimitGuardsModulesOnly(t *testing.T) {
	refuse := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		RateLimit: refuse,
	}, echoModule{})

	rec := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/console/echo", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
	rec = testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
