package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/postgres"
)

var migrationCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"redo":    true,
	"reset":   true,
	"status":  true,
	"version": true,
}

// runMigrations executes one goose command against the configured database.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string) error {
	if !migrationCommands[command] {
		return fmt.Errorf("unknown migration command %q", command)
	}
	if cfg.Database.Driver != driverPostgres {
		return errors.New("migrations require the postgres database driver")
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}()

	if err := postgres.RunMigrations(ctx, db, logger, command); err != nil {
		return err
	}
	logger.Info("migration command completed", "command", command)
	return nil
}
