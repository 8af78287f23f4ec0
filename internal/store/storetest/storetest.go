// Package storetest provides in-memory store implementations for tests
// that exercise handlers and task processors without a live database.
package storetest

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// MessageStore is an in-memory store.MessageStore.
// Error fields, when set, are returned by the corresponding method so
// tests can force failures.
type MessageStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.Message

	CreateErr        error
	GetErr           error
	ListErr          error
	CountsErr        error
	MarkProcessedErr error
}

// NewMessageStore creates an empty in-memory message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[uuid.UUID]*domain.Message)}
}

var _ store.MessageStore = (*MessageStore)(nil)

// Seed inserts messages directly, bypassing validation.
func (s *MessageStore) Seed(msgs ...*domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		copied := *msg
		s.messages[msg.ID] = &copied
	}
}

func (s *MessageStore) Create(_ context.Context, msg *domain.Message) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *MessageStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

func (s *MessageStore) UpdateContent(_ context.Context, id uuid.UUID, content string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	msg.Content = content
	copied := *msg
	return &copied, nil
}

func (s *MessageStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return store.ErrMessageNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s *MessageStore) List(_ context.Context, filter store.MessageFilter) ([]*domain.Message, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if filter.Processed != nil && msg.Processed() != *filter.Processed {
			continue
		}
		if filter.TaskID != "" && (msg.TaskID == nil || *msg.TaskID != filter.TaskID) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(msg.Content), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *msg
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.Message{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MessageStore) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time, taskID string) error {
	if s.MarkProcessedErr != nil {
		return s.MarkProcessedErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return store.ErrMessageNotFound
	}
	msg.MarkProcessed(processedAt, taskID)
	return nil
}

func (s *MessageStore) Counts(_ context.Context) (store.MessageCounts, error) {
	if s.CountsErr != nil {
		return store.MessageCounts{}, s.CountsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := store.MessageCounts{Total: int64(len(s.messages))}
	for _, msg := range s.messages {
		if msg.Processed() {
			counts.Processed++
		}
	}
	return counts, nil
}

func (s *MessageStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, msg := range s.messages {
		if !msg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MessageStore) WithTx(_ *sql.Tx) store.MessageStore {
	return s
}

// TaskLogStore is an in-memory store.TaskLogStore keyed by queue task ID.
type TaskLogStore struct {
	mu   sync.Mutex
	logs map[string]*domain.TaskLog

	CreateErr error
	ListErr   error
	StatsErr  error
}

// NewTaskLogStore creates an empty in-memory task log store.
func NewTaskLogStore() *TaskLogStore {
	return &TaskLogStore{logs: make(map[string]*domain.TaskLog)}
}

var _ store.TaskLogStore = (*TaskLogStore)(nil)

// Seed inserts task logs directly, bypassing validation.
func (s *TaskLogStore) Seed(logs ...*domain.TaskLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, log := range logs {
		copied := *log
		s.logs[log.TaskID] = &copied
	}
}

// All returns every stored task log, newest first.
func (s *TaskLogStore) All() []*domain.TaskLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.TaskLog, 0, len(s.logs))
	for _, log := range s.logs {
		copied := *log
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result
}

func (s *TaskLogStore) Create(_ context.Context, log *domain.TaskLog) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if err := log.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[log.TaskID]; ok {
		return store.ErrTaskIDExists
	}
	copied := *log
	s.logs[log.TaskID] = &copied
	return nil
}

func (s *TaskLogStore) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, log := range s.logs {
		if log.ID == id {
			copied := *log
			return &copied, nil
		}
	}
	return nil, store.ErrTaskLogNotFound
}

func (s *TaskLogStore) GetByTaskID(_ context.Context, taskID string) (*domain.TaskLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[taskID]
	if !ok {
		return nil, store.ErrTaskLogNotFound
	}
	copied := *log
	return &copied, nil
}

func (s *TaskLogStore) Finish(_ context.Context, taskID string, status domain.TaskStatus, result string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[taskID]
	if !ok {
		return store.ErrTaskLogNotFound
	}
	log.Status = status
	log.Result = &result
	log.CompletedAt = &completedAt
	return nil
}

func (s *TaskLogStore) List(_ context.Context, filter store.TaskLogFilter) ([]*domain.TaskLog, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.TaskLog, 0, len(s.logs))
	for _, log := range s.logs {
		if filter.TaskName != "" && log.TaskName != filter.TaskName {
			continue
		}
		if filter.Status != "" && log.Status != filter.Status {
			continue
		}
		copied := *log
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*domain.TaskLog{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *TaskLogStore) Stats(_ context.Context) (store.TaskLogStats, error) {
	if s.StatsErr != nil {
		return store.TaskLogStats{}, s.StatsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := store.TaskLogStats{Total: int64(len(s.logs))}
	for _, log := range s.logs {
		switch log.Status {
		case domain.TaskStatusSuccess:
			stats.Succeeded++
		case domain.TaskStatusFailure:
			stats.Failed++
		case domain.TaskStatusStarted:
			stats.Started++
		}
	}
	return stats, nil
}

func (s *TaskLogStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, log := range s.logs {
		if !log.StartedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *TaskLogStore) WithTx(_ *sql.Tx) store.TaskLogStore {
	return s
}
