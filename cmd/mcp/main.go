package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richard-senior/mcp/internal/app"
	"github.com/richard-senior/mcp/internal/config"
	"github.com/richard-senior/mcp/internal/logger"
)

// main runs the HTTP-facing transports (SSE and/or WebSocket), overriding
// whatever config.Load found with flags the way the teacher's cmd/mcp/main.go
// took -debug/-input/-output flags for its CLI mode.
func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	sseAddr := flag.String("sse-addr", "", "Listen address for the SSE transport (enables it), e.g. :8080")
	wsAddr := flag.String("ws-addr", "", "Listen address for the WebSocket transport (enables it), e.g. :8081")
	stdio := flag.Bool("stdio", false, "Also serve the stdio transport from this process")
	flag.Parse()

	logger.SetShowDateTime(true)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", err)
	}
	if *debug {
		logger.SetLevel(logger.DEBUG)
	} else {
		logger.SetLevel(logger.LevelFromString(cfg.Logging.Level))
	}

	cfg.Transport.Stdio.Enabled = *stdio
	if *sseAddr != "" {
		cfg.Transport.SSE.Enabled = true
		cfg.Transport.SSE.Addr = *sseAddr
	}
	if *wsAddr != "" {
		cfg.Transport.WebSocket.Enabled = true
		cfg.Transport.WebSocket.Addr = *wsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", err)
	}

	services, err := app.Build(cfg)
	if err != nil {
		logger.Fatal("failed to build server", err)
	}
	defer services.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("mcp http server starting", app.ServerName, app.ServerVersion)
	start := time.Now()
	err = services.RunTransports(ctx)
	logger.Info("mcp http server stopped after", time.Since(start))
	if err != nil {
		logger.Fatal("server exited with error", err)
	}
}
