package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewMessage(t *testing.T) {
	t.Parallel() // Enable parallel execution
	content := "This is a test message submitted through the form."

	msg, err := NewMessage(content)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if msg.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if msg.Content != content {
		t.Errorf("Expected content %s, got %s", content, msg.Content)
	}

	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	if msg.ProcessedAt != nil {
		t.Error("Expected new message to be unprocessed")
	}

	if msg.TaskID != nil {
		t.Error("Expected new message to have no task ID")
	}

	// Test empty content
	_, err = NewMessage("")
	if err != ErrEmptyMessageContent {
		t.Errorf("Expected error %v, got %v", ErrEmptyMessageContent, err)
	}
}

func TestMessageValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution
	validMsg := Message{
		ID:        uuid.New(),
		Content:   "Test message",
		CreatedAt: time.Now().UTC(),
	}

	// Test valid message
	if err := validMsg.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test nil ID
	invalidMsg := validMsg
	invalidMsg.ID = uuid.Nil
	if err := invalidMsg.Validate(); err != ErrEmptyMessageID {
		t.Errorf("Expected error %v, got %v", ErrEmptyMessageID, err)
	}

	// Test empty content
	invalidMsg = validMsg
	invalidMsg.Content = ""
	if err := invalidMsg.Validate(); err != ErrEmptyMessageContent {
		t.Errorf("Expected error %v, got %v", ErrEmptyMessageContent, err)
	}
}

func TestMessageMarkProcessed(t *testing.T) {
	t.Parallel() // Enable parallel execution
	msg, err := NewMessage("mark me")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if msg.Processed() {
		t.Error("Expected new message to be unprocessed")
	}

	processedAt := time.Now()
	msg.MarkProcessed(processedAt, "task-123")

	if !msg.Processed() {
		t.Error("Expected message to be processed after MarkProcessed")
	}

	if msg.ProcessedAt == nil || !msg.ProcessedAt.Equal(processedAt.UTC()) {
		t.Errorf("Expected processed_at %v, got %v", processedAt.UTC(), msg.ProcessedAt)
	}

	if msg.TaskID == nil || *msg.TaskID != "task-123" {
		t.Errorf("Expected task ID task-123, got %v", msg.TaskID)
	}
}

func TestMessagePreview(t *testing.T) {
	t.Parallel() // Enable parallel execution
	msg := Message{ID: uuid.New(), Content: "abcdefghij"}

	if got := msg.Preview(4); got != "abcd" {
		t.Errorf("Expected preview abcd, got %s", got)
	}

	if got := msg.Preview(50); got != "abcdefghij" {
		t.Errorf("Expected full content for long preview, got %s", got)
	}
}
