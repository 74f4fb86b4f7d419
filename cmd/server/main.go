// Package main runs the text2learn API server: the HTTP API, the background
// course generation workers and the stuck-course sweeper.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/telemetry"
)

type options struct {
	migrate      string
	seedEmail    string
	seedPassword string
}

func main() {
	var opts options
	flag.StringVar(&opts.migrate, "migrate", "",
		"run a migration command (up, down, redo, reset, status, version) and exit")
	flag.StringVar(&opts.seedEmail, "dev-seed-email", "",
		"memory driver only: seed a user with this email and print an access token")
	flag.StringVar(&opts.seedPassword, "dev-seed-password", "password123",
		"password for the -dev-seed-email user")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("server exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver)

	if opts.migrate != "" {
		return runMigrations(ctx, cfg, log, opts.migrate)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if opts.seedEmail != "" {
		if err := app.seedDevUser(ctx, opts.seedEmail, opts.seedPassword, os.Stdout); err != nil {
			return err
		}
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
