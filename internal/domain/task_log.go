package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the execution state of a background task.
type TaskStatus string

// Possible task status values. These mirror the status callbacks of the
// task-queue library; the worker records STARTED when it picks a task up
// and SUCCESS or FAILURE when it finishes.
const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusStarted TaskStatus = "STARTED"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
	TaskStatusRetry   TaskStatus = "RETRY"
)

// Common validation errors for TaskLog
var (
	ErrEmptyTaskLogID    = errors.New("task log ID cannot be empty")
	ErrEmptyTaskName     = errors.New("task name cannot be empty")
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// TaskLog records one execution of a background task. Each worker
// attempt writes its own row; there is no retry bookkeeping beyond
// what the queue library itself does.
type TaskLog struct {
	ID          uuid.UUID  `json:"id"`
	TaskName    string     `json:"task_name"`
	TaskID      string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	Result      *string    `json:"result"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewTaskLog creates a new TaskLog for the given task name and queue task ID.
// The log starts in the STARTED state with the start timestamp set, matching
// the moment the worker picks the task up.
// Returns an error if validation fails.
func NewTaskLog(taskName, taskID string) (*TaskLog, error) {
	log := &TaskLog{
		ID:        uuid.New(),
		TaskName:  taskName,
		TaskID:    taskID,
		Status:    TaskStatusStarted,
		StartedAt: time.Now().UTC(),
	}

	if err := log.Validate(); err != nil {
		return nil, err
	}

	return log, nil
}

// Validate checks if the TaskLog has valid data.
// Returns an error if any field fails validation.
func (l *TaskLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyTaskLogID
	}

	if l.TaskName == "" {
		return ErrEmptyTaskName
	}

	if l.TaskID == "" {
		return ErrEmptyTaskID
	}

	if !isValidTaskStatus(l.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// Complete marks the task log as finished with the given status and result,
// setting the completion timestamp.
// Returns an error if the status is not valid.
func (l *TaskLog) Complete(status TaskStatus, result string) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	now := time.Now().UTC()
	l.Status = status
	l.Result = &result
	l.CompletedAt = &now
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusStarted, TaskStatusSuccess,
		TaskStatusFailure, TaskStatusRetry:
		return true
	default:
		return false
	}
}
