package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store"
	"github.com/phrazzld/bulletin-api/internal/store/storetest"
)

// onlyLog returns the single task log in the fake store, failing the
// test if there is not exactly one.
func onlyLog(t *testing.T, s *storetest.TaskLogStore) *domain.TaskLog {
	t.Helper()
	logs := s.All()
	require.Len(t, logs, 1)
	return logs[0]
}

func TestHandleProcessMessage(t *testing.T) {
	t.Run("marks message processed and records success", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, 0, nil)

		msg, err := domain.NewMessage("hello from the board")
		require.NoError(t, err)
		require.NoError(t, messages.Create(context.Background(), msg))

		asynqTask, err := NewProcessMessageTask(msg.ID)
		require.NoError(t, err)

		err = processor.HandleProcessMessage(context.Background(), asynqTask)
		require.NoError(t, err)

		processed, err := messages.GetByID(context.Background(), msg.ID)
		require.NoError(t, err)
		assert.True(t, processed.Processed())
		require.NotNil(t, processed.TaskID)

		taskLog := onlyLog(t, taskLogs)
		assert.Equal(t, TypeProcessMessage, taskLog.TaskName)
		assert.Equal(t, domain.TaskStatusSuccess, taskLog.Status)
		require.NotNil(t, taskLog.Result)
		assert.Equal(t, "processed message: hello from the board", *taskLog.Result)
		assert.NotNil(t, taskLog.CompletedAt)
		assert.Equal(t, taskLog.TaskID, *processed.TaskID)
	})

	t.Run("truncates long content in the task result", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, 0, nil)

		content := strings.Repeat("0123456789", 10)
		msg, err := domain.NewMessage(content)
		require.NoError(t, err)
		require.NoError(t, messages.Create(context.Background(), msg))

		asynqTask, err := NewProcessMessageTask(msg.ID)
		require.NoError(t, err)
		require.NoError(t, processor.HandleProcessMessage(context.Background(), asynqTask))

		taskLog := onlyLog(t, taskLogs)
		require.NotNil(t, taskLog.Result)
		assert.Equal(t, "processed message: "+content[:previewLength], *taskLog.Result)
	})

	t.Run("records failure and skips retries for missing message", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, 0, nil)

		missingID := uuid.New()
		asynqTask, err := NewProcessMessageTask(missingID)
		require.NoError(t, err)

		err = processor.HandleProcessMessage(context.Background(), asynqTask)
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))

		taskLog := onlyLog(t, taskLogs)
		assert.Equal(t, domain.TaskStatusFailure, taskLog.Status)
		require.NotNil(t, taskLog.Result)
		assert.Contains(t, *taskLog.Result, missingID.String())
	})

	t.Run("records failure when the message cannot be loaded", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		messages.GetErr = errors.New("connection reset by peer")
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, 0, nil)

		asynqTask, err := NewProcessMessageTask(uuid.New())
		require.NoError(t, err)

		err = processor.HandleProcessMessage(context.Background(), asynqTask)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))

		taskLog := onlyLog(t, taskLogs)
		assert.Equal(t, domain.TaskStatusFailure, taskLog.Status)
		require.NotNil(t, taskLog.Result)
		assert.Contains(t, *taskLog.Result, "connection reset by peer")
	})

	t.Run("records failure when marking the message fails", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, 0, nil)

		msg, err := domain.NewMessage("doomed")
		require.NoError(t, err)
		require.NoError(t, messages.Create(context.Background(), msg))
		messages.MarkProcessedErr = errors.New("deadlock detected")

		asynqTask, err := NewProcessMessageTask(msg.ID)
		require.NoError(t, err)

		err = processor.HandleProcessMessage(context.Background(), asynqTask)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))

		taskLog := onlyLog(t, taskLogs)
		assert.Equal(t, domain.TaskStatusFailure, taskLog.Status)
		require.NotNil(t, taskLog.Result)
		assert.Contains(t, *taskLog.Result, "deadlock detected")
	})

	t.Run("rejects malformed payload without retrying", func(t *testing.T) {
		processor := NewProcessor(storetest.NewMessageStore(), storetest.NewTaskLogStore(), 0, nil)

		err := processor.HandleProcessMessage(
			context.Background(),
			asynq.NewTask(TypeProcessMessage, []byte("not json")),
		)
		require.Error(t, err)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("stops during the delay when the context is cancelled", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		processor := NewProcessor(messages, taskLogs, time.Minute, nil)

		msg, err := domain.NewMessage("slow one")
		require.NoError(t, err)
		require.NoError(t, messages.Create(context.Background(), msg))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		asynqTask, err := NewProcessMessageTask(msg.ID)
		require.NoError(t, err)

		err = processor.HandleProcessMessage(ctx, asynqTask)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))

		unprocessed, err := messages.GetByID(context.Background(), msg.ID)
		require.NoError(t, err)
		assert.False(t, unprocessed.Processed())
	})

	t.Run("tolerates an existing task log row", func(t *testing.T) {
		messages := storetest.NewMessageStore()
		taskLogs := storetest.NewTaskLogStore()
		taskLogs.CreateErr = store.ErrTaskIDExists
		processor := NewProcessor(messages, taskLogs, 0, nil)

		msg, err := domain.NewMessage("retried")
		require.NoError(t, err)
		require.NoError(t, messages.Create(context.Background(), msg))

		asynqTask, err := NewProcessMessageTask(msg.ID)
		require.NoError(t, err)
		require.NoError(t, processor.HandleProcessMessage(context.Background(), asynqTask))

		processed, err := messages.GetByID(context.Background(), msg.ID)
		require.NoError(t, err)
		assert.True(t, processed.Processed())
	})
}

func TestHandlePeriodicMessage(t *testing.T) {
	messages := storetest.NewMessageStore()
	taskLogs := storetest.NewTaskLogStore()
	processor := NewProcessor(messages, taskLogs, 0, nil)

	err := processor.HandlePeriodicMessage(context.Background(), NewPeriodicMessageTask())
	require.NoError(t, err)

	all, err := messages.List(context.Background(), store.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Processed())
	assert.Contains(t, all[0].Content, "Periodic message created at")

	taskLog := onlyLog(t, taskLogs)
	assert.Equal(t, TypePeriodicMessage, taskLog.TaskName)
	assert.Equal(t, domain.TaskStatusSuccess, taskLog.Status)
	require.NotNil(t, taskLog.Result)
	assert.Contains(t, *taskLog.Result, all[0].ID.String())
}
