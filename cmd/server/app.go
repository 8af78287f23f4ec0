package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/bulletin-api/internal/config"
	"github.com/phrazzld/bulletin-api/internal/health"
	"github.com/phrazzld/bulletin-api/internal/platform/postgres"
	"github.com/phrazzld/bulletin-api/internal/store"
	"github.com/phrazzld/bulletin-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Broker connections
	redisClient *redis.Client
	inspector   *asynq.Inspector

	// Stores (using interfaces for proper abstraction)
	messageStore store.MessageStore
	taskLogStore store.TaskLogStore

	// Task handling
	taskClient *task.Client
	worker     *task.Worker

	// Health checks
	healthChecker *health.Checker
}

// newApplication creates a new application instance with all
// dependencies initialized. It accepts the core dependencies that must
// be established before wiring: configuration, logger, and the database
// connection.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Stores
	app.messageStore = postgres.NewPostgresMessageStore(db, logger)
	app.taskLogStore = postgres.NewPostgresTaskLogStore(db, logger)

	// Task queue client and worker
	app.taskClient = task.NewClient(redisOpt, cfg.Task, logger)

	processor := task.NewProcessor(
		app.messageStore,
		app.taskLogStore,
		time.Duration(cfg.Task.ProcessingDelaySeconds)*time.Second,
		logger,
	)
	app.worker = task.NewWorker(redisOpt, cfg.Task, processor, logger)

	// Broker connections for health checks
	app.redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	app.inspector = asynq.NewInspector(redisOpt)

	app.healthChecker = health.NewChecker(
		db,
		app.redisClient,
		app.inspector,
		app.messageStore,
		app.taskLogStore,
		logger,
	)

	logger.Info("application initialized",
		"redis_addr", cfg.Redis.Addr,
		"task_concurrency", cfg.Task.Concurrency,
		"processing_delay_seconds", cfg.Task.ProcessingDelaySeconds)
	return app, nil
}

// Run starts the worker and the HTTP server, blocking until shutdown.
func (app *application) Run(ctx context.Context) error {
	if err := app.worker.Start(app.config.Task); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	app.worker.Shutdown()

	if err := app.taskClient.Close(); err != nil {
		app.logger.Error("error closing task client", "error", err)
	}

	if err := app.inspector.Close(); err != nil {
		app.logger.Error("error closing task inspector", "error", err)
	}

	if err := app.redisClient.Close(); err != nil {
		app.logger.Error("error closing redis connection", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database connection", "error", err)
	}

	app.logger.Info("application shutdown completed")
}
