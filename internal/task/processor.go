package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// previewLength is how many characters of the message content end up in
// the task result.
const previewLength = 50

// Processor holds the task handlers the worker dispatches to. Each
// execution is recorded in the task-log table: a STARTED row when the
// worker picks the task up and a terminal SUCCESS or FAILURE update when
// it finishes.
type Processor struct {
	messageStore store.MessageStore
	taskLogStore store.TaskLogStore
	delay        time.Duration
	logger       *slog.Logger
}

// NewProcessor creates a Processor backed by the given stores.
// The delay simulates work in the message processing task.
// If log is nil, a default logger will be used.
func NewProcessor(messageStore store.MessageStore, taskLogStore store.TaskLogStore, delay time.Duration, log *slog.Logger) *Processor {
	if messageStore == nil {
		panic("messageStore cannot be nil")
	}
	if taskLogStore == nil {
		panic("taskLogStore cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Processor{
		messageStore: messageStore,
		taskLogStore: taskLogStore,
		delay:        delay,
		logger:       log.With(slog.String("component", "task_processor")),
	}
}

// HandleProcessMessage marks the message named in the task payload as
// processed after the configured delay. A missing message is a permanent
// failure: the task log records FAILURE and the task is not retried.
func (p *Processor) HandleProcessMessage(ctx context.Context, t *asynq.Task) error {
	var payload ProcessMessagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal process message payload: %w", asynq.SkipRetry)
	}

	taskID := taskIDFromContext(ctx)
	log := p.logger.With(
		slog.String("task_id", taskID),
		slog.String("message_id", payload.MessageID.String()))

	if err := p.recordStarted(ctx, TypeProcessMessage, taskID); err != nil {
		log.Error("failed to record task start", slog.String("error", err.Error()))
		return fmt.Errorf("failed to record task start: %w", err)
	}

	msg, err := p.messageStore.GetByID(ctx, payload.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			result := fmt.Sprintf("message not found: %s", payload.MessageID)
			p.finish(ctx, taskID, domain.TaskStatusFailure, result, log)
			log.Warn("message not found, skipping retries")
			return fmt.Errorf("%s: %w", result, asynq.SkipRetry)
		}
		p.finish(ctx, taskID, domain.TaskStatusFailure, fmt.Sprintf("failed to load message: %s", err), log)
		return fmt.Errorf("failed to load message: %w", err)
	}

	// Simulated work, cut short if the server is shutting down.
	if err := sleepContext(ctx, p.delay); err != nil {
		return err
	}

	processedAt := time.Now().UTC()
	if err := p.messageStore.MarkProcessed(ctx, msg.ID, processedAt, taskID); err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			result := fmt.Sprintf("message deleted during processing: %s", payload.MessageID)
			p.finish(ctx, taskID, domain.TaskStatusFailure, result, log)
			return fmt.Errorf("%s: %w", result, asynq.SkipRetry)
		}
		p.finish(ctx, taskID, domain.TaskStatusFailure, fmt.Sprintf("failed to mark message processed: %s", err), log)
		return fmt.Errorf("failed to mark message processed: %w", err)
	}

	result := fmt.Sprintf("processed message: %s", msg.Preview(previewLength))
	p.finish(ctx, taskID, domain.TaskStatusSuccess, result, log)

	log.Info("processed message",
		slog.Duration("delay", p.delay),
		slog.Time("processed_at", processedAt))
	return nil
}

// HandlePeriodicMessage creates a system message on the schedule
// configured for the periodic task. The message is created already
// processed since no further work is queued for it.
func (p *Processor) HandlePeriodicMessage(ctx context.Context, t *asynq.Task) error {
	taskID := taskIDFromContext(ctx)
	log := p.logger.With(slog.String("task_id", taskID))

	if err := p.recordStarted(ctx, TypePeriodicMessage, taskID); err != nil {
		log.Error("failed to record task start", slog.String("error", err.Error()))
		return fmt.Errorf("failed to record task start: %w", err)
	}

	now := time.Now().UTC()
	msg, err := domain.NewMessage(fmt.Sprintf("Periodic message created at %s", now.Format(time.RFC3339)))
	if err != nil {
		p.finish(ctx, taskID, domain.TaskStatusFailure, fmt.Sprintf("failed to build periodic message: %s", err), log)
		return fmt.Errorf("failed to build periodic message: %w", err)
	}
	msg.MarkProcessed(now, taskID)

	if err := p.messageStore.Create(ctx, msg); err != nil {
		result := fmt.Sprintf("failed to create periodic message: %s", err)
		p.finish(ctx, taskID, domain.TaskStatusFailure, result, log)
		return fmt.Errorf("failed to create periodic message: %w", err)
	}

	result := fmt.Sprintf("created periodic message: %s", msg.ID)
	p.finish(ctx, taskID, domain.TaskStatusSuccess, result, log)

	log.Info("created periodic message", slog.String("message_id", msg.ID.String()))
	return nil
}

// recordStarted inserts the STARTED task-log row for this execution.
// A retried task reuses its queue task ID, so an existing row is left
// in place rather than treated as an error.
func (p *Processor) recordStarted(ctx context.Context, taskName, taskID string) error {
	taskLog, err := domain.NewTaskLog(taskName, taskID)
	if err != nil {
		return err
	}

	if err := p.taskLogStore.Create(ctx, taskLog); err != nil {
		if errors.Is(err, store.ErrTaskIDExists) {
			return nil
		}
		return err
	}
	return nil
}

// finish records the terminal task-log state. Failures to update the log
// are logged but not propagated: the task itself already ran.
func (p *Processor) finish(ctx context.Context, taskID string, status domain.TaskStatus, result string, log *slog.Logger) {
	if err := p.taskLogStore.Finish(ctx, taskID, status, result, time.Now().UTC()); err != nil {
		log.Error("failed to finish task log",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
}

// taskIDFromContext extracts the queue task ID the server attached to the
// handler context. Tasks run outside a server (tests, direct invocation)
// get a generated ID so the task log still has a usable key.
func taskIDFromContext(ctx context.Context) string {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return id
	}
	return fmt.Sprintf("local:%d", time.Now().UnixNano())
}

// sleepContext waits for the given duration or until the context is
// cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
