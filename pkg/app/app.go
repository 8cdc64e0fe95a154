// Package app wires configuration into stores, the link service and an HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"urlstore/pkg/config"
	"urlstore/pkg/logging"
	"urlstore/pkg/security"
	"urlstore/pkg/service"
	"urlstore/pkg/storage"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config  *config.Config
	Logger  *logging.Logger
	Links   storage.LinkStore
	Views   storage.ViewLedger
	Service *service.LinkService
}

// New opens both stores, migrates the ledger, seeds the secret from AUTH_SECRET when
// none is stored, and builds the link service.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	links, err := OpenLinkStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	views, err := OpenViewLedger(ctx, cfg)
	if err != nil {
		links.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Links: links, Views: views}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	if err := a.Views.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating view ledger: %w", err)
	}

	reserved := service.DefaultReserved()
	if a.Config.ReservedFile != "" {
		var err error
		if reserved, err = service.LoadReserved(a.Config.ReservedFile); err != nil {
			return err
		}
	}

	verifier, err := security.NewVerifier(ctx, a.Config.AuthScheme, a.Links, security.OIDCConfig{
		IssuerURL: a.Config.OIDCIssuer,
		Audience:  a.Config.OIDCAudience,
	})
	if err != nil {
		return err
	}

	a.Service = service.NewLinkService(a.Links, a.Views, reserved, verifier, a.Logger, service.Config{
		BaseURL:     a.Config.BaseURL,
		ViewMode:    service.ViewMode(a.Config.ViewMode),
		ViewTimeout: a.Config.ViewTimeout,
	})

	if a.Config.AuthSecret != "" {
		secret := a.Config.AuthSecret
		if a.Config.AuthScheme == security.SchemeBcrypt {
			if secret, err = security.HashSecret(secret); err != nil {
				return fmt.Errorf("hashing secret: %w", err)
			}
		}
		seeded, err := a.Service.BootstrapSecret(ctx, secret)
		if err != nil {
			return fmt.Errorf("seeding secret: %w", err)
		}
		if seeded {
			a.Logger.Info(ctx, "secret seeded from AUTH_SECRET")
		}
	}
	return nil
}

func OpenLinkStore(ctx context.Context, cfg *config.Config) (storage.LinkStore, error) {
	switch cfg.LinkStore {
	case "memory":
		return storage.NewMemoryLinkStore(), nil
	case "redis":
		return storage.OpenRedisLinkStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown link store %q", cfg.LinkStore)
	}
}

func OpenViewLedger(ctx context.Context, cfg *config.Config) (storage.ViewLedger, error) {
	switch cfg.LedgerDriver {
	case "memory":
		return storage.NewMemoryViewLedger(), nil
	case "pgx":
		return storage.OpenPostgresViewLedger(ctx, cfg.DatabaseURL)
	case "postgres", "sqlite", "libsql":
		return storage.OpenSQLViewLedger(ctx, cfg.LedgerDriver, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
	}
}

// Serve runs handler until ctx is done, then shuts the server down and drains
// pending view writes.
func (a *App) Serve(ctx context.Context, handler http.Handler, operation string) error {
	server := &http.Server{
		Addr:         a.Config.Addr,
		Handler:      otelhttp.NewHandler(handler, operation),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info(ctx, "server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return err
		}
		if err := a.Service.Wait(shutdownCtx); err != nil {
			return fmt.Errorf("draining view writes: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.Logger.Info(ctx, "server stopped")
	return err
}

func (a *App) Close() error {
	return errors.Join(a.Links.Close(), a.Views.Close())
}
