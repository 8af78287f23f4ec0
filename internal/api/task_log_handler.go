package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/bulletin-api/internal/api/shared"
	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// recentTaskLogLimit caps GET /api/task-logs/recent.
const recentTaskLogLimit = 50

// TaskLogHandler handles task-log HTTP requests. The task-log table is
// read-only over HTTP; rows are written by the worker.
type TaskLogHandler struct {
	taskLogStore store.TaskLogStore
	logger       *slog.Logger
}

// NewTaskLogHandler creates a new TaskLogHandler
func NewTaskLogHandler(taskLogStore store.TaskLogStore, log *slog.Logger) *TaskLogHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskLogHandler")
	}

	return &TaskLogHandler{
		taskLogStore: taskLogStore,
		logger:       log.With(slog.String("component", "task_log_handler")),
	}
}

// ListTaskLogs handles GET /api/task-logs requests.
// Supported query parameters: task_name, status, limit, offset.
func (h *TaskLogHandler) ListTaskLogs(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	filter, err := taskLogFilterFromQuery(r)
	if err != nil {
		log.Warn("invalid list query", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.respondWithList(w, r, filter)
}

// RecentTaskLogs handles GET /api/task-logs/recent requests, returning
// the most recent executions.
func (h *TaskLogHandler) RecentTaskLogs(w http.ResponseWriter, r *http.Request) {
	h.respondWithList(w, r, store.TaskLogFilter{Limit: recentTaskLogLimit})
}

func (h *TaskLogHandler) respondWithList(w http.ResponseWriter, r *http.Request, filter store.TaskLogFilter) {
	logs, err := h.taskLogStore.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list task logs", err)
		return
	}

	results := taskLogsToResponses(logs)
	shared.RespondWithJSON(w, r, http.StatusOK, TaskLogListResponse{
		Count:   len(results),
		Results: results,
	})
}

// GetTaskLog handles GET /api/task-logs/{id} requests.
func (h *TaskLogHandler) GetTaskLog(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	pathID := chi.URLParam(r, "id")
	id, err := uuid.Parse(pathID)
	if err != nil {
		log.Warn("invalid task log ID format", slog.String("task_log_id", pathID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task log ID format")
		return
	}

	taskLog, err := h.taskLogStore.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskLogToResponse(taskLog))
}

// TaskLogStats handles GET /api/task-logs/stats requests.
func (h *TaskLogHandler) TaskLogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskLogStore.Stats(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to compute task stats", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskLogStatsResponse{
		TotalTasks:     stats.Total,
		CompletedTasks: stats.Succeeded,
		FailedTasks:    stats.Failed,
		PendingTasks:   stats.Started,
		SuccessRate:    stats.SuccessRate(),
	})
}

// taskLogFilterFromQuery builds a store filter from list query parameters.
func taskLogFilterFromQuery(r *http.Request) (store.TaskLogFilter, error) {
	q := r.URL.Query()
	filter := store.TaskLogFilter{
		TaskName: q.Get("task_name"),
	}

	if raw := q.Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !isKnownStatus(status) {
			return store.TaskLogFilter{}, errInvalidQueryParam("status")
		}
		filter.Status = status
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return store.TaskLogFilter{}, errInvalidQueryParam("limit")
		}
		filter.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return store.TaskLogFilter{}, errInvalidQueryParam("offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func isKnownStatus(status domain.TaskStatus) bool {
	switch status {
	case domain.TaskStatusPending, domain.TaskStatusStarted,
		domain.TaskStatusSuccess, domain.TaskStatusFailure,
		domain.TaskStatusRetry:
		return true
	default:
		return false
	}
}
