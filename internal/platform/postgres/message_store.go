package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// defaultListLimit caps List results when the caller does not set a limit.
const defaultListLimit = 100

// PostgresMessageStore implements the store.MessageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMessageStore creates a new PostgreSQL implementation of the
// MessageStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMessageStore{
		db:     db,
		logger: logger.With(slog.String("component", "message_store")),
	}
}

// Ensure PostgresMessageStore implements store.MessageStore interface
var _ store.MessageStore = (*PostgresMessageStore)(nil)

// WithTx returns a new PostgresMessageStore that uses the provided transaction.
func (s *PostgresMessageStore) WithTx(tx *sql.Tx) store.MessageStore {
	return &PostgresMessageStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.MessageStore.Create
// It saves a new message to the database, handling domain validation.
func (s *PostgresMessageStore) Create(ctx context.Context, msg *domain.Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		log.Warn("message validation failed during create",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()))
		return err
	}

	query := `
		INSERT INTO messages (id, content, created_at, processed_at, task_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		msg.ID,
		msg.Content,
		msg.CreatedAt,
		msg.ProcessedAt,
		msg.TaskID,
	)

	if err != nil {
		log.Error("failed to create message",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()))
		return MapError(err)
	}

	log.Info("message created successfully",
		slog.String("message_id", msg.ID.String()))
	return nil
}

// GetByID implements store.MessageStore.GetByID
// It retrieves a message by its unique ID.
// Returns store.ErrMessageNotFound if the message does not exist.
func (s *PostgresMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving message by ID", slog.String("message_id", id.String()))

	query := `
		SELECT id, content, created_at, processed_at, task_id
		FROM messages
		WHERE id = $1
	`

	var msg domain.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.ProcessedAt,
		&msg.TaskID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("message not found", slog.String("message_id", id.String()))
			return nil, store.ErrMessageNotFound
		}
		log.Error("failed to get message by ID",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return nil, MapError(err)
	}

	return &msg, nil
}

// UpdateContent implements store.MessageStore.UpdateContent
// It replaces the content of an existing message and returns the updated row.
// Returns store.ErrMessageNotFound if the message does not exist.
func (s *PostgresMessageStore) UpdateContent(
	ctx context.Context,
	id uuid.UUID,
	content string,
) (*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if content == "" {
		log.Warn("message validation failed during update",
			slog.String("message_id", id.String()))
		return nil, domain.ErrEmptyMessageContent
	}

	query := `
		UPDATE messages
		SET content = $1
		WHERE id = $2
		RETURNING id, content, created_at, processed_at, task_id
	`

	var msg domain.Message
	err := s.db.QueryRowContext(ctx, query, content, id).Scan(
		&msg.ID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.ProcessedAt,
		&msg.TaskID,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("message not found for update",
				slog.String("message_id", id.String()))
			return nil, store.ErrMessageNotFound
		}
		log.Error("failed to update message",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return nil, MapError(err)
	}

	log.Info("message updated successfully",
		slog.String("message_id", id.String()))
	return &msg, nil
}

// Delete implements store.MessageStore.Delete
// It removes a message from the database.
// Returns store.ErrMessageNotFound if the message does not exist.
func (s *PostgresMessageStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM messages
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete message",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "message"); err != nil {
		log.Debug("message not found for delete",
			slog.String("message_id", id.String()))
		return store.ErrMessageNotFound
	}

	log.Info("message deleted successfully",
		slog.String("message_id", id.String()))
	return nil
}

// List implements store.MessageStore.List
// It retrieves messages matching the filter, newest first.
// Returns an empty slice if no messages match the criteria.
func (s *PostgresMessageStore) List(
	ctx context.Context,
	filter store.MessageFilter,
) ([]*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Build the WHERE clause from the filter. Positional parameters are
	// appended in the same order as the conditions.
	query := `
		SELECT id, content, created_at, processed_at, task_id
		FROM messages
		WHERE 1=1
	`
	args := []any{}

	if filter.Processed != nil {
		if *filter.Processed {
			query += " AND processed_at IS NOT NULL"
		} else {
			query += " AND processed_at IS NULL"
		}
	}

	if filter.TaskID != "" {
		args = append(args, filter.TaskID)
		query += " AND task_id = $" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += " AND content ILIKE $" + strconv.Itoa(len(args))
	}

	args = append(args, limit)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query messages",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		err := rows.Scan(
			&msg.ID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.ProcessedAt,
			&msg.TaskID,
		)
		if err != nil {
			log.Error("failed to scan message row",
				slog.String("error", err.Error()))
			return nil, err
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	// Return empty slice instead of nil if no messages found
	if messages == nil {
		messages = []*domain.Message{}
	}

	log.Debug("listed messages", slog.Int("count", len(messages)))
	return messages, nil
}

// MarkProcessed implements store.MessageStore.MarkProcessed
// It records the processing timestamp and task ID on the message.
// Returns store.ErrMessageNotFound if the message does not exist.
func (s *PostgresMessageStore) MarkProcessed(
	ctx context.Context,
	id uuid.UUID,
	processedAt time.Time,
	taskID string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE messages
		SET processed_at = $1, task_id = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, processedAt.UTC(), taskID, id)
	if err != nil {
		log.Error("failed to mark message processed",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()),
			slog.String("task_id", taskID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "message"); err != nil {
		log.Debug("message not found for processing update",
			slog.String("message_id", id.String()))
		return store.ErrMessageNotFound
	}

	log.Info("message marked processed",
		slog.String("message_id", id.String()),
		slog.String("task_id", taskID))
	return nil
}

// Counts implements store.MessageStore.Counts
// It reports total and processed message counts in a single query.
func (s *PostgresMessageStore) Counts(ctx context.Context) (store.MessageCounts, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*), COUNT(processed_at)
		FROM messages
	`

	var counts store.MessageCounts
	err := s.db.QueryRowContext(ctx, query).Scan(&counts.Total, &counts.Processed)
	if err != nil {
		log.Error("failed to count messages",
			slog.String("error", err.Error()))
		return store.MessageCounts{}, MapError(err)
	}

	return counts, nil
}

// CountSince implements store.MessageStore.CountSince
// It reports how many messages were created at or after the given time.
func (s *PostgresMessageStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE created_at >= $1
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(&count)
	if err != nil {
		log.Error("failed to count recent messages",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	return count, nil
}
