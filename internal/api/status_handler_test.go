package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store/storetest"
)

func TestGetStatus(t *testing.T) {
	now := time.Now().UTC()

	messages := storetest.NewMessageStore()
	processed, err := domain.NewMessage("done")
	require.NoError(t, err)
	processed.MarkProcessed(now, "task-1")
	pending, err := domain.NewMessage("waiting")
	require.NoError(t, err)
	messages.Seed(processed, pending)

	taskLogs := storetest.NewTaskLogStore()
	longResult := strings.Repeat("x", 150)
	finished := seededTaskLog(t, "message:process", "task-1", domain.TaskStatusSuccess, now)
	finished.Result = &longResult
	taskLogs.Seed(finished)
	for i := 0; i < 6; i++ {
		taskLogs.Seed(seededTaskLog(t, "message:process",
			"old-"+string(rune('a'+i)), domain.TaskStatusSuccess,
			now.Add(-time.Duration(i+1)*time.Hour)))
	}

	handler := NewStatusHandler(messages, taskLogs, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	handler.GetStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp StatusSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	assert.Equal(t, int64(2), resp.TotalMessages)
	assert.Equal(t, int64(1), resp.ProcessedMessages)
	assert.Equal(t, int64(1), resp.PendingMessages)

	// Only the five most recent executions, newest first, results capped.
	require.Len(t, resp.RecentTasks, statusRecentTasks)
	assert.Equal(t, "message:process", resp.RecentTasks[0].TaskName)
	require.NotNil(t, resp.RecentTasks[0].Result)
	assert.Len(t, *resp.RecentTasks[0].Result, statusResultLength)
}
