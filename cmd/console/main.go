package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"console/internal/adminapi"
	"console/internal/audit"
	"console/internal/notify"
	"console/internal/platform/config"
	"console/internal/platform/httpserver"
	"console/internal/platform/logger"
	platformmetrics "console/internal/platform/metrics"
	"console/internal/platform/otel"
	"console/internal/platform/redis"
	ratelimitmetrics "console/internal/ratelimit/metrics"
	ratelimitmw "console/internal/ratelimit/middleware"
	ratelimitstore "console/internal/ratelimit/store"
	httptransport "console/internal/transport/http"
	"console/internal/users/form"
	usershandler "console/internal/users/handler"
	usersmetrics "console/internal/users/metrics"
	"console/internal/users/service"
	"console/internal/users/store"
	"console/pkg/platform/circuit"
)

// main wires the console's dependencies and runs the HTTP server until
// SIGINT or SIGTERM. Business logic lives in the internal module packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "console:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "console", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := adminapi.New(cfg.APIBaseURL,
		adminapi.WithTimeout(cfg.APITimeout),
		adminapi.WithBreaker(circuit.New("adminapi",
			circuit.WithFailureThreshold(cfg.Circuit.Threshold),
			circuit.WithCooldown(cfg.Circuit.Cooldown),
		)),
		adminapi.WithLogger(log),
		adminapi.WithMetrics(adminapi.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}

	checks := map[string]httptransport.HealthCheck{}
	var cache service.ListCache = store.NewInMemoryListStore(store.WithMemoryTTL(cfg.Cache.TTL))
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		cache = store.NewRedisListStore(rc.Client,
			store.WithKey(cfg.Redis.Key),
			store.WithRedisTTL(cfg.Cache.TTL),
		)
		checks["redis"] = rc.Health
		log.Info("user list cache backed by redis", "key", cfg.Redis.Key)
	}

	feed := notify.New(notify.WithLogger(log))
	um := usersmetrics.New(reg)
	users, err := service.New(client, cache,
		service.WithNotifier(feed),
		service.WithLogger(log),
		service.WithMetrics(um),
	)
	if err != nil {
		return err
	}
	forms, err := service.NewFormRegistry(users,
		service.WithFormTTL(cfg.Form.IdleTTL),
		service.WithEngineOptions(
			form.WithDebounce(cfg.Form.Debounce),
			form.WithCheckTimeout(cfg.Form.CheckTimeout),
		),
		service.WithFormLogger(log),
		service.WithFormMetrics(um),
	)
	if err != nil {
		return err
	}
	defer forms.Close()
	go func() {
		if err := forms.StartCleanup(ctx, cfg.Form.CleanupInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("form cleanup stopped", "error", err)
		}
	}()

	auditViews, err := audit.NewService(client, audit.WithLogger(log))
	if err != nil {
		return err
	}

	limits := ratelimitstore.NewInMemoryWindowStore(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if !cfg.RateLimit.Disabled {
		go func() {
			if err := limits.StartCleanup(ctx, cfg.RateLimit.Window); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("rate limit cleanup stopped", "error", err)
			}
		}()
	}
	limiter := ratelimitmw.New(limits, log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        platformmetrics.New(reg),
		Gatherer:       reg,
		AdminToken:     cfg.AdminToken,
		RequestTimeout: cfg.RequestTimeout,
		Checks:         checks,
		RateLimit:      limiter.RateLimit,
	},
		usershandler.New(users, forms, log),
		audit.NewHandler(auditViews),
		notify.NewHandler(feed),
	)

	log.Info("starting console", "addr", cfg.Addr, "api", cfg.APIBaseURL)
	if err := httpserver.Run(ctx, httpserver.New(cfg.Addr, router), cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("console stopped")
	return nil
}
