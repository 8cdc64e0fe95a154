package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"urlstore/pkg/app"
	"urlstore/pkg/config"
	httphandler "urlstore/pkg/http"
	"urlstore/pkg/logging"
)

var version = "dev"

// The redirect edge serves public reads only; it never writes links.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handler := httphandler.NewHandler(a.Service, logger, httphandler.Banner{
		Name:    "urlstore",
		Version: version,
		Message: "redirect edge",
	})

	if err := a.Serve(ctx, httphandler.NewRedirectRouter(handler, logger), "urlstore-redirect"); err != nil {
		logger.Error(ctx, "server error", "error", err)
		os.Exit(1)
	}
}
