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

	"github.com/kirillkom/document-explainer/internal/bootstrap"
	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/observability/logging"
	"github.com/kirillkom/document-explainer/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analysisMetrics := metrics.NewAnalysisMetrics("worker", nil)
	app, err := bootstrap.New(ctx, cfg, analysisMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           analysisMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	// handlerCtx outlives shutdown so drained jobs still reach a terminal
	// state; ANALYSIS_TIMEOUT bounds each one.
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, job domain.AnalysisJob) error {
		if !job.SubmittedAt.IsZero() {
			analysisMetrics.ObserveQueueLag(time.Since(job.SubmittedAt))
		}

		jobCtx := handlerCtx
		if cfg.AnalysisTimeout > 0 {
			var cancel context.CancelFunc
			jobCtx, cancel = context.WithTimeout(handlerCtx, cfg.AnalysisTimeout)
			defer cancel()
		}

		// The job runs as the user who submitted it.
		_, err := app.Analyzer.Analyze(jobCtx, domain.Identity{UserID: job.UserID}, job.AnalysisRequest)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
