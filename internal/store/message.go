package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bulletin-api/internal/domain"
)

// MessageFilter narrows the result set of MessageStore.List.
// The zero value matches every message.
type MessageFilter struct {
	// Processed filters by processing state when non-nil:
	// true for processed messages, false for unprocessed ones.
	Processed *bool

	// TaskID filters for messages processed by a specific task.
	TaskID string

	// Search filters for messages whose content contains the given
	// substring, case-insensitively.
	Search string

	// Limit caps the number of results. Zero means the store default.
	Limit int

	// Offset skips the given number of results for pagination.
	Offset int
}

// MessageCounts summarizes the message table for the status endpoint
// and the health report.
type MessageCounts struct {
	Total     int64
	Processed int64
}

// MessageStore defines the interface for message data persistence.
type MessageStore interface {
	// Create saves a new message to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Message if data is invalid.
	Create(ctx context.Context, msg *domain.Message) error

	// GetByID retrieves a message by its unique ID.
	// Returns ErrMessageNotFound if the message does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)

	// UpdateContent replaces the content of an existing message.
	// Returns ErrMessageNotFound if the message does not exist.
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*domain.Message, error)

	// Delete removes a message from the store.
	// Returns ErrMessageNotFound if the message does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves messages matching the filter, newest first.
	// Returns an empty slice if no messages match.
	List(ctx context.Context, filter MessageFilter) ([]*domain.Message, error)

	// MarkProcessed records that the background worker handled the message
	// at the given time under the given task ID.
	// Returns ErrMessageNotFound if the message does not exist.
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time, taskID string) error

	// Counts reports the total and processed message counts.
	Counts(ctx context.Context) (MessageCounts, error)

	// CountSince reports how many messages were created at or after
	// the given time. Used by the application health check.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// WithTx returns a new MessageStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) MessageStore
}
