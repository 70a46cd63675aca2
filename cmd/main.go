package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/richard-senior/mcp/internal/app"
	"github.com/richard-senior/mcp/internal/config"
	"github.com/richard-senior/mcp/internal/logger"
)

// main runs the stdio-transport MCP server: one JSON-RPC connection over
// stdin/stdout, torn down on EOF or a terminating signal. Adapted from the
// teacher's cmd/main.go, which drove pkg/server's singleton the same way.
func main() {
	logger.SetShowDateTime(true)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", err)
	}
	if !cfg.Transport.Stdio.Enabled {
		logger.Fatal("transport.stdio.enabled is false; nothing to serve from this binary")
	}

	logger.SetLevel(logger.LevelFromString(cfg.Logging.Level))

	services, err := app.Build(cfg)
	if err != nil {
		logger.Fatal("failed to build server", err)
	}
	defer services.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("mcp stdio server starting", app.ServerName, app.ServerVersion)
	if err := services.RunTransports(ctx); err != nil {
		logger.Fatal("server exited with error", err)
	}
	logger.Info("mcp stdio server stopped")
}
