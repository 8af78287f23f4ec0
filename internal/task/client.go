package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/phrazzld/bulletin-api/internal/config"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
)

// Enqueuer defines the interface for submitting background tasks.
// HTTP handlers depend on this interface rather than on the queue
// library directly, so tests can substitute a fake.
type Enqueuer interface {
	// EnqueueProcessMessage submits a task to process the message with the
	// given ID. Returns the queue task ID assigned to the submission.
	EnqueueProcessMessage(ctx context.Context, messageID uuid.UUID) (string, error)
}

// Client enqueues tasks onto the Redis-backed queue.
type Client struct {
	client *asynq.Client
	queue  string
	retry  int
	logger *slog.Logger
}

// NewClient creates a task queue client from the given Redis connection
// options and task settings.
// If log is nil, a default logger will be used.
func NewClient(redisOpt asynq.RedisClientOpt, cfg config.TaskConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  cfg.Queue,
		retry:  cfg.MaxRetry,
		logger: log.With(slog.String("component", "task_client")),
	}
}

// Ensure Client implements the Enqueuer interface
var _ Enqueuer = (*Client)(nil)

// EnqueueProcessMessage implements Enqueuer.EnqueueProcessMessage
// It is fire-and-forget: the task result is observed later by polling
// the task-log table.
func (c *Client) EnqueueProcessMessage(ctx context.Context, messageID uuid.UUID) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	t, err := NewProcessMessageTask(messageID)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, t,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.retry),
	)
	if err != nil {
		log.Error("failed to enqueue process message task",
			slog.String("error", err.Error()),
			slog.String("message_id", messageID.String()))
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info("enqueued process message task",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("message_id", messageID.String()))
	return info.ID, nil
}

// Close releases the underlying queue client connection.
func (c *Client) Close() error {
	return c.client.Close()
}
