package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bulletin-api/internal/api/shared"
	"github.com/phrazzld/bulletin-api/internal/store"
)

const (
	// statusRecentTasks is how many recent task executions the status
	// endpoint includes.
	statusRecentTasks = 5

	// statusResultLength truncates task results in the status payload.
	statusResultLength = 100
)

// StatusSummary is the payload of GET /status: a compact snapshot of
// the board and its recent background activity.
type StatusSummary struct {
	TotalMessages     int64             `json:"total_messages"`
	ProcessedMessages int64             `json:"processed_messages"`
	PendingMessages   int64             `json:"pending_messages"`
	RecentTasks       []StatusTaskEntry `json:"recent_tasks"`
}

// StatusTaskEntry is one recent task execution in the status payload.
type StatusTaskEntry struct {
	TaskName  string    `json:"task_name"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Result    *string   `json:"result"`
}

// StatusHandler serves the lightweight processing-status endpoint.
type StatusHandler struct {
	messageStore store.MessageStore
	taskLogStore store.TaskLogStore
	logger       *slog.Logger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(
	messageStore store.MessageStore,
	taskLogStore store.TaskLogStore,
	log *slog.Logger,
) *StatusHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StatusHandler")
	}

	return &StatusHandler{
		messageStore: messageStore,
		taskLogStore: taskLogStore,
		logger:       log.With(slog.String("component", "status_handler")),
	}
}

// GetStatus handles GET /status requests.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.messageStore.Counts(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to load message counts", err)
		return
	}

	logs, err := h.taskLogStore.List(r.Context(), store.TaskLogFilter{Limit: statusRecentTasks})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to load recent tasks", err)
		return
	}

	recent := make([]StatusTaskEntry, 0, len(logs))
	for _, taskLog := range logs {
		recent = append(recent, StatusTaskEntry{
			TaskName:  taskLog.TaskName,
			Status:    string(taskLog.Status),
			StartedAt: taskLog.StartedAt,
			Result:    truncateResult(taskLog.Result, statusResultLength),
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusSummary{
		TotalMessages:     counts.Total,
		ProcessedMessages: counts.Processed,
		PendingMessages:   counts.Total - counts.Processed,
		RecentTasks:       recent,
	})
}

// truncateResult caps a task result at n characters, leaving nil results
// untouched.
func truncateResult(result *string, n int) *string {
	if result == nil {
		return nil
	}
	runes := []rune(*result)
	if len(runes) <= n {
		return result
	}
	truncated := string(runes[:n])
	return &truncated
}
