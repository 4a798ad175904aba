package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/document-explainer/internal/adapters/mcp"
	"github.com/kirillkom/document-explainer/internal/bootstrap"
	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/observability/logging"
)

const version = "0.1.0"

// EXPLAINER_TOKEN selects whose contracts the tools can see. Logs go to
// stderr because stdout carries the protocol.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	identity, err := app.Auth.Authenticate(ctx, os.Getenv("EXPLAINER_TOKEN"))
	if err != nil {
		slog.Error("mcp_authentication_failed", "error", err)
		os.Exit(1)
	}

	slog.Info("mcp_serving", "user_id", identity.UserID)
	if err := mcpadapter.NewServer(app.Contracts, identity).ServeStdio(version); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
