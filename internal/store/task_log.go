package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bulletin-api/internal/domain"
)

// TaskLogFilter narrows the result set of TaskLogStore.List.
// The zero value matches every task log.
type TaskLogFilter struct {
	// TaskName filters for executions of a specific task type.
	TaskName string

	// Status filters by execution status.
	Status domain.TaskStatus

	// Limit caps the number of results. Zero means the store default.
	Limit int

	// Offset skips the given number of results for pagination.
	Offset int
}

// TaskLogStats summarizes task executions for the stats endpoint.
type TaskLogStats struct {
	Total     int64
	Succeeded int64
	Failed    int64
	Started   int64
}

// SuccessRate returns the percentage of successful executions,
// rounded to two decimal places. Returns zero when no tasks ran.
func (s TaskLogStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(int64(float64(s.Succeeded)/float64(s.Total)*10000)) / 100
}

// TaskLogStore defines the interface for task log persistence.
type TaskLogStore interface {
	// Create saves a new task log to the store.
	// It handles domain validation internally.
	// Returns ErrTaskIDExists if a log with the same task ID already exists.
	Create(ctx context.Context, log *domain.TaskLog) error

	// GetByID retrieves a task log by its unique ID.
	// Returns ErrTaskLogNotFound if the log does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskLog, error)

	// GetByTaskID retrieves a task log by its queue task ID.
	// Returns ErrTaskLogNotFound if the log does not exist.
	GetByTaskID(ctx context.Context, taskID string) (*domain.TaskLog, error)

	// Finish records the terminal status, result, and completion time of the
	// log with the given queue task ID.
	// Returns ErrTaskLogNotFound if the log does not exist.
	Finish(ctx context.Context, taskID string, status domain.TaskStatus, result string, completedAt time.Time) error

	// List retrieves task logs matching the filter, newest first.
	// Returns an empty slice if no logs match.
	List(ctx context.Context, filter TaskLogFilter) ([]*domain.TaskLog, error)

	// Stats reports aggregate execution counts.
	Stats(ctx context.Context) (TaskLogStats, error)

	// CountSince reports how many task executions started at or after
	// the given time. Used by the application health check.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// WithTx returns a new TaskLogStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskLogStore
}
