package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store/storetest"
)

func newTaskLogRouter(h *TaskLogHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/api/task-logs", func(r chi.Router) {
		r.Get("/", h.ListTaskLogs)
		r.Get("/recent", h.RecentTaskLogs)
		r.Get("/stats", h.TaskLogStats)
		r.Get("/{id}", h.GetTaskLog)
	})
	return r
}

// seededTaskLog builds a finished task log for tests.
func seededTaskLog(t *testing.T, taskName, taskID string, status domain.TaskStatus, startedAt time.Time) *domain.TaskLog {
	t.Helper()
	log, err := domain.NewTaskLog(taskName, taskID)
	require.NoError(t, err)
	log.StartedAt = startedAt
	log.Status = status
	return log
}

func TestListTaskLogs(t *testing.T) {
	now := time.Now().UTC()
	taskLogs := storetest.NewTaskLogStore()
	taskLogs.Seed(
		seededTaskLog(t, "message:process", "task-1", domain.TaskStatusSuccess, now.Add(-2*time.Minute)),
		seededTaskLog(t, "message:process", "task-2", domain.TaskStatusFailure, now.Add(-time.Minute)),
		seededTaskLog(t, "message:periodic", "task-3", domain.TaskStatusStarted, now),
	)

	handler := NewTaskLogHandler(taskLogs, testLogger())
	router := newTaskLogRouter(handler)

	list := func(t *testing.T, path string) TaskLogListResponse {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp TaskLogListResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		return resp
	}

	t.Run("all newest first", func(t *testing.T) {
		resp := list(t, "/api/task-logs")
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "task-3", resp.Results[0].TaskID)
	})

	t.Run("by task name", func(t *testing.T) {
		resp := list(t, "/api/task-logs?task_name=message:periodic")
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "task-3", resp.Results[0].TaskID)
	})

	t.Run("by status", func(t *testing.T) {
		resp := list(t, "/api/task-logs?status=FAILURE")
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "task-2", resp.Results[0].TaskID)
	})

	t.Run("invalid status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/task-logs?status=EXPLODED", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("recent caps the page", func(t *testing.T) {
		resp := list(t, "/api/task-logs/recent")
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("limit", func(t *testing.T) {
		resp := list(t, "/api/task-logs?limit=1")
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "task-3", resp.Results[0].TaskID)
	})
}

func TestGetTaskLog(t *testing.T) {
	taskLogs := storetest.NewTaskLogStore()
	log := seededTaskLog(t, "message:process", "task-9", domain.TaskStatusSuccess, time.Now().UTC())
	taskLogs.Seed(log)

	handler := NewTaskLogHandler(taskLogs, testLogger())
	router := newTaskLogRouter(handler)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/task-logs/"+log.ID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp TaskLogResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "task-9", resp.TaskID)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/task-logs/"+uuid.NewString(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/task-logs/nope", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTaskLogStats(t *testing.T) {
	now := time.Now().UTC()
	taskLogs := storetest.NewTaskLogStore()
	taskLogs.Seed(
		seededTaskLog(t, "message:process", "s-1", domain.TaskStatusSuccess, now),
		seededTaskLog(t, "message:process", "s-2", domain.TaskStatusSuccess, now),
		seededTaskLog(t, "message:process", "f-1", domain.TaskStatusFailure, now),
		seededTaskLog(t, "message:process", "p-1", domain.TaskStatusStarted, now),
	)

	handler := NewTaskLogHandler(taskLogs, testLogger())
	router := newTaskLogRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/task-logs/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp TaskLogStatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(4), resp.TotalTasks)
	assert.Equal(t, int64(2), resp.CompletedTasks)
	assert.Equal(t, int64(1), resp.FailedTasks)
	assert.Equal(t, int64(1), resp.PendingTasks)
	assert.Equal(t, 50.0, resp.SuccessRate)
}
