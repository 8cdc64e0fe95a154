package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"urlstore/pkg/app"
	"urlstore/pkg/config"
	"urlstore/pkg/http"
	"urlstore/pkg/logging"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting urlstore api",
		"address", cfg.Addr,
		"link_store", cfg.LinkStore,
		"ledger", cfg.LedgerDriver,
		"auth_scheme", cfg.AuthScheme,
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := http.NewHandler(a.Service, logger, http.Banner{
		Name:    "urlstore",
		Version: version,
		Message: "Short links at the edge",
	})

	return a.Serve(ctx, http.NewRouter(handler, logger), "urlstore-api")
}
