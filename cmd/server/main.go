package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/finvelo/ledger-backend/internal/app"
	"github.com/finvelo/ledger-backend/internal/db"
	"github.com/finvelo/ledger-backend/internal/observability"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.LoadConfig(log)

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "ledger-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	if shutdownOTel != nil {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	application := app.New(postgresService.DB(), cfg, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		return application.Server.Run(groupCtx, cfg.HTTPAddr)
	})
	if cfg.DispatcherEnabled {
		group.Go(func() error {
			return application.Dispatcher.Start(groupCtx)
		})
	} else {
		log.Warn("outbox dispatcher disabled, events will accumulate until it is re-enabled")
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
