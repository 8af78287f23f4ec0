package task

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names. These double as the task_name recorded in task logs.
const (
	// TypeProcessMessage marks a message as processed after a fixed delay.
	TypeProcessMessage = "message:process"

	// TypePeriodicMessage creates a system message on a fixed schedule.
	TypePeriodicMessage = "message:periodic"
)

// ProcessMessagePayload is the JSON payload of a TypeProcessMessage task.
type ProcessMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

// NewProcessMessageTask creates a queue task instructing the worker to
// process the message with the given ID.
func NewProcessMessageTask(messageID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessMessagePayload{MessageID: messageID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal process message payload: %w", err)
	}
	return asynq.NewTask(TypeProcessMessage, payload), nil
}

// NewPeriodicMessageTask creates the periodic system message task.
// The payload is empty; the handler generates the message content.
func NewPeriodicMessageTask() *asynq.Task {
	return asynq.NewTask(TypePeriodicMessage, nil)
}
