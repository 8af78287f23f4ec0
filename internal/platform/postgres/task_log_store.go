package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// PostgresTaskLogStore implements the store.TaskLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskLogStore creates a new PostgreSQL implementation of the
// TaskLogStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskLogStore(db store.DBTX, logger *slog.Logger) *PostgresTaskLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_log_store")),
	}
}

// Ensure PostgresTaskLogStore implements store.TaskLogStore interface
var _ store.TaskLogStore = (*PostgresTaskLogStore)(nil)

// WithTx returns a new PostgresTaskLogStore that uses the provided transaction.
func (s *PostgresTaskLogStore) WithTx(tx *sql.Tx) store.TaskLogStore {
	return &PostgresTaskLogStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskLogStore.Create
// It saves a new task log to the database, handling domain validation.
// Returns store.ErrTaskIDExists if a log with the same task ID already exists.
func (s *PostgresTaskLogStore) Create(ctx context.Context, taskLog *domain.TaskLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := taskLog.Validate(); err != nil {
		log.Warn("task log validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", taskLog.TaskID))
		return err
	}

	query := `
		INSERT INTO task_logs (id, task_name, task_id, status, result, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		taskLog.ID,
		taskLog.TaskName,
		taskLog.TaskID,
		taskLog.Status,
		taskLog.Result,
		taskLog.StartedAt,
		taskLog.CompletedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate task ID during task log creation",
				slog.String("task_id", taskLog.TaskID))
			return fmt.Errorf("%w: %s", store.ErrTaskIDExists, taskLog.TaskID)
		}

		log.Error("failed to create task log",
			slog.String("error", err.Error()),
			slog.String("task_id", taskLog.TaskID),
			slog.String("task_name", taskLog.TaskName))
		return MapError(err)
	}

	log.Info("task log created",
		slog.String("task_id", taskLog.TaskID),
		slog.String("task_name", taskLog.TaskName),
		slog.String("status", string(taskLog.Status)))
	return nil
}

// GetByID implements store.TaskLogStore.GetByID
// Returns store.ErrTaskLogNotFound if the log does not exist.
func (s *PostgresTaskLogStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_name, task_id, status, result, started_at, completed_at
		FROM task_logs
		WHERE id = $1
	`

	taskLog, err := s.scanTaskLog(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task log not found", slog.String("task_log_id", id.String()))
			return nil, store.ErrTaskLogNotFound
		}
		log.Error("failed to get task log by ID",
			slog.String("error", err.Error()),
			slog.String("task_log_id", id.String()))
		return nil, MapError(err)
	}

	return taskLog, nil
}

// GetByTaskID implements store.TaskLogStore.GetByTaskID
// Returns store.ErrTaskLogNotFound if the log does not exist.
func (s *PostgresTaskLogStore) GetByTaskID(ctx context.Context, taskID string) (*domain.TaskLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_name, task_id, status, result, started_at, completed_at
		FROM task_logs
		WHERE task_id = $1
	`

	taskLog, err := s.scanTaskLog(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task log not found", slog.String("task_id", taskID))
			return nil, store.ErrTaskLogNotFound
		}
		log.Error("failed to get task log by task ID",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID))
		return nil, MapError(err)
	}

	return taskLog, nil
}

// Finish implements store.TaskLogStore.Finish
// It records the terminal status, result, and completion time on the log
// with the given queue task ID.
// Returns store.ErrTaskLogNotFound if the log does not exist.
func (s *PostgresTaskLogStore) Finish(
	ctx context.Context,
	taskID string,
	status domain.TaskStatus,
	result string,
	completedAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate the status against the fixed enumeration before writing.
	tempLog := &domain.TaskLog{
		ID:       uuid.New(),
		TaskName: "temp",
		TaskID:   taskID,
		Status:   status,
	}
	if err := tempLog.Validate(); err != nil {
		log.Warn("task log validation failed during finish",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID),
			slog.String("status", string(status)))
		return err
	}

	query := `
		UPDATE task_logs
		SET status = $1, result = $2, completed_at = $3
		WHERE task_id = $4
	`

	res, err := s.db.ExecContext(ctx, query, status, result, completedAt.UTC(), taskID)
	if err != nil {
		log.Error("failed to finish task log",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(res, "task log"); err != nil {
		log.Debug("task log not found for finish",
			slog.String("task_id", taskID))
		return store.ErrTaskLogNotFound
	}

	log.Info("task log finished",
		slog.String("task_id", taskID),
		slog.String("status", string(status)))
	return nil
}

// List implements store.TaskLogStore.List
// It retrieves task logs matching the filter, newest first.
// Returns an empty slice if no logs match the criteria.
func (s *PostgresTaskLogStore) List(
	ctx context.Context,
	filter store.TaskLogFilter,
) ([]*domain.TaskLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, task_name, task_id, status, result, started_at, completed_at
		FROM task_logs
		WHERE 1=1
	`
	args := []any{}

	if filter.TaskName != "" {
		args = append(args, filter.TaskName)
		query += " AND task_name = $" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	query += " ORDER BY started_at DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task logs",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var logs []*domain.TaskLog
	for rows.Next() {
		var taskLog domain.TaskLog
		var status string

		err := rows.Scan(
			&taskLog.ID,
			&taskLog.TaskName,
			&taskLog.TaskID,
			&status,
			&taskLog.Result,
			&taskLog.StartedAt,
			&taskLog.CompletedAt,
		)
		if err != nil {
			log.Error("failed to scan task log row",
				slog.String("error", err.Error()))
			return nil, err
		}

		taskLog.Status = domain.TaskStatus(status)
		logs = append(logs, &taskLog)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no logs found
	if logs == nil {
		logs = []*domain.TaskLog{}
	}

	log.Debug("listed task logs", slog.Int("count", len(logs)))
	return logs, nil
}

// Stats implements store.TaskLogStore.Stats
// It aggregates execution counts in a single query.
func (s *PostgresTaskLogStore) Stats(ctx context.Context) (store.TaskLogStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'SUCCESS'),
			COUNT(*) FILTER (WHERE status = 'FAILURE'),
			COUNT(*) FILTER (WHERE status = 'STARTED')
		FROM task_logs
	`

	var stats store.TaskLogStats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Succeeded,
		&stats.Failed,
		&stats.Started,
	)
	if err != nil {
		log.Error("failed to aggregate task log stats",
			slog.String("error", err.Error()))
		return store.TaskLogStats{}, MapError(err)
	}

	return stats, nil
}

// CountSince implements store.TaskLogStore.CountSince
// It reports how many executions started at or after the given time.
func (s *PostgresTaskLogStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM task_logs
		WHERE started_at >= $1
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(&count)
	if err != nil {
		log.Error("failed to count recent task logs",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	return count, nil
}

// scanTaskLog scans a single task log row.
func (s *PostgresTaskLogStore) scanTaskLog(row *sql.Row) (*domain.TaskLog, error) {
	var taskLog domain.TaskLog
	var status string

	err := row.Scan(
		&taskLog.ID,
		&taskLog.TaskName,
		&taskLog.TaskID,
		&status,
		&taskLog.Result,
		&taskLog.StartedAt,
		&taskLog.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	taskLog.Status = domain.TaskStatus(status)
	return &taskLog, nil
}
