package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/document-explainer/internal/adapters/http"
	"github.com/kirillkom/document-explainer/internal/bootstrap"
	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/observability/logging"
	"github.com/kirillkom/document-explainer/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	analysisMetrics := metrics.NewAnalysisMetrics("api", httpMetrics.Registry())

	app, err := bootstrap.New(ctx, cfg, analysisMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.Analyzer, app.Contracts, app.Auth).WithMetrics(httpMetrics)
	if app.LocalFiles != nil {
		router.WithFiles(app.LocalFiles)
	}

	// WriteTimeout leaves room for the synchronous analysis endpoint.
	writeTimeout := cfg.AnalysisTimeout + 30*time.Second
	if cfg.AnalysisTimeout <= 0 {
		writeTimeout = 0
	}
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr, "storage_backend", cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
