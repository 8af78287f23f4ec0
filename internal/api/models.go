package api

import (
	"time"

	"github.com/phrazzld/bulletin-api/internal/domain"
)

// CreateMessageRequest represents the request body for creating a new message
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// UpdateMessageRequest represents the request body for updating a message
type UpdateMessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// MessageResponse represents the response data for a message
type MessageResponse struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	TaskID      *string    `json:"task_id"`
}

// MessageListResponse wraps a page of messages with its count.
type MessageListResponse struct {
	Count   int               `json:"count"`
	Results []MessageResponse `json:"results"`
}

// SearchResponse wraps content-search results with the query that
// produced them.
type SearchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []MessageResponse `json:"results"`
}

// ProcessAcceptedResponse is returned when a processing task has been
// enqueued for a message.
type ProcessAcceptedResponse struct {
	Message   string `json:"message"`
	TaskID    string `json:"task_id"`
	MessageID string `json:"message_id"`
}

// TaskLogResponse represents the response data for a task log
type TaskLogResponse struct {
	ID          string     `json:"id"`
	TaskName    string     `json:"task_name"`
	TaskID      string     `json:"task_id"`
	Status      string     `json:"status"`
	Result      *string    `json:"result"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskLogListResponse wraps a page of task logs with its count.
type TaskLogListResponse struct {
	Count   int               `json:"count"`
	Results []TaskLogResponse `json:"results"`
}

// TaskLogStatsResponse summarizes task executions for the stats endpoint.
type TaskLogStatsResponse struct {
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	FailedTasks    int64   `json:"failed_tasks"`
	PendingTasks   int64   `json:"pending_tasks"`
	SuccessRate    float64 `json:"success_rate"`
}

// messageToResponse converts a domain.Message to a MessageResponse
func messageToResponse(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:          msg.ID.String(),
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
		ProcessedAt: msg.ProcessedAt,
		TaskID:      msg.TaskID,
	}
}

// messagesToResponses converts a slice of domain messages, always
// returning a non-nil slice so lists serialize as [] rather than null.
func messagesToResponses(msgs []*domain.Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		responses = append(responses, messageToResponse(msg))
	}
	return responses
}

// taskLogToResponse converts a domain.TaskLog to a TaskLogResponse
func taskLogToResponse(log *domain.TaskLog) TaskLogResponse {
	return TaskLogResponse{
		ID:          log.ID.String(),
		TaskName:    log.TaskName,
		TaskID:      log.TaskID,
		Status:      string(log.Status),
		Result:      log.Result,
		StartedAt:   log.StartedAt,
		CompletedAt: log.CompletedAt,
	}
}

// taskLogsToResponses converts a slice of domain task logs, always
// returning a non-nil slice so lists serialize as [] rather than null.
func taskLogsToResponses(logs []*domain.TaskLog) []TaskLogResponse {
	responses := make([]TaskLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, taskLogToResponse(log))
	}
	return responses
}
