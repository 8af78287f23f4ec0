// Package main implements the entry point for the bulletin API server:
// a message board where submitted messages are processed asynchronously
// by a Redis-backed worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/bulletin-api/internal/config"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status, version, reset) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("bulletin-api: %v", err)
	}
}

// run loads configuration, wires the application, and either executes a
// migration command or starts the server.
func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue", cfg.Task.Queue)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if migrateCmd != "" {
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database connection", "error", err)
			}
		}()
		return runMigrations(db, migrateCmd)
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		// The application owns the connection once constructed; before
		// that, close it here.
		if closeErr := db.Close(); closeErr != nil {
			appLogger.Error("error closing database connection", "error", closeErr)
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(context.Background())
}
