// errorgate is the HTTP service that renders every failure through the error
// boundary: a configurable catalog of codes and messages, metrics per error
// and asynchronous reports for server-side failures.
package main

import (
	"context"
	"errorgate/internal/api"
	"errorgate/internal/boundary"
	"errorgate/internal/config"
	"errorgate/internal/health"
	"errorgate/internal/observability"
	"errorgate/internal/ratelimit"
	"errorgate/internal/report"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg, err := config.LoadServiceConfig()
	if err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(svcCfg.CatalogPath)
	if err != nil {
		return err
	}
	slog.Info("Error catalog loaded",
		"path", svcCfg.CatalogPath,
		"keys", catalog.Len(),
		"application", catalog.ApplicationName(),
	)

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	checks := []health.Check{{Name: "catalog", Checker: catalog}}
	pipelineCfg := boundary.Config{
		Lookup:   catalog,
		Metadata: catalog,
		Recorder: metrics,
	}

	// Create error reporter
	var reporter *report.Reporter
	if svcCfg.ReportURL != "" {
		reporter = report.New(report.Config{
			URL:        svcCfg.ReportURL,
			SigningKey: svcCfg.ReportKey,
			Source:     catalog.ApplicationName(),
			BufferSize: svcCfg.ReportBufferSize,
			Workers:    svcCfg.ReportWorkers,
		}, metrics)
		pipelineCfg.Reporter = reporter
		checks = append(checks, health.Check{Name: "reporter", Checker: reporter, Optional: true})
		slog.Info("Error reporting enabled", "workers", svcCfg.ReportWorkers, "signed", svcCfg.ReportKey != "")
	} else {
		slog.Warn("Error reporting disabled - no ERROR_REPORT_URL configured")
	}

	errs := boundary.New(pipelineCfg)
	healthChecker := health.NewChecker(checks...)

	limiter := ratelimit.New(svcCfg.RateLimitRPS, svcCfg.RateLimitBurst, 0)
	if limiter != nil {
		slog.Info("Rate limiting enabled", "rps", svcCfg.RateLimitRPS, "burst", svcCfg.RateLimitBurst)
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Metrics:       metrics,
		HealthChecker: healthChecker,
		Errors:        errs,
		Limiter:       limiter,
		APIKey:        svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY_FILE configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: fail readiness so load balancers stop routing here
	healthChecker.SetShuttingDown()

	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: flush pending error reports
	if reporter != nil {
		slog.Info("Draining error reporter")
		reportCtx, reportCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer reportCancel()
		if err := reporter.Close(reportCtx); err != nil {
			slog.Warn("Reporter shutdown error", "error", err)
		}

		stats := reporter.Stats()
		slog.Info("Reporter stats",
			"delivered", stats.Delivered,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
			"skipped", stats.Skipped,
		)
	}

	slog.Info("Shutdown complete")
	return nil
}
