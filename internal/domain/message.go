package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Message
var (
	ErrEmptyMessageID      = errors.New("message ID cannot be empty")
	ErrEmptyMessageContent = errors.New("message content cannot be empty")
)

// Message represents a text entry submitted by a user through the
// form or the REST API. It tracks when the message was created and,
// once the background worker has handled it, when it was processed
// and by which task.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	TaskID      *string    `json:"task_id"`
}

// NewMessage creates a new Message with the given content.
// It generates a new UUID for the message ID and sets the creation
// timestamp. The message starts out unprocessed.
// Returns an error if validation fails.
func NewMessage(content string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// Validate checks if the Message has valid data.
// Returns an error if any field fails validation.
func (m *Message) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMessageID
	}

	if m.Content == "" {
		return ErrEmptyMessageContent
	}

	return nil
}

// Processed reports whether the background worker has handled this message.
func (m *Message) Processed() bool {
	return m.ProcessedAt != nil
}

// MarkProcessed records that the message was handled at the given time
// by the task with the given ID.
func (m *Message) MarkProcessed(processedAt time.Time, taskID string) {
	t := processedAt.UTC()
	m.ProcessedAt = &t
	m.TaskID = &taskID
}

// Preview returns the first n characters of the message content,
// used in task results and log lines.
func (m *Message) Preview(n int) string {
	runes := []rune(m.Content)
	if len(runes) <= n {
		return m.Content
	}
	return string(runes[:n])
}
