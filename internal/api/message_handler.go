// Package api provides HTTP handlers for the API.
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
	"github.com/phrazzld/bulletin-api/internal/redact"
	"github.com/phrazzld/bulletin-api/internal/store"
	"github.com/phrazzld/bulletin-api/internal/task"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messageStore store.MessageStore
	enqueuer     task.Enqueuer
	logger       *slog.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(
	messageStore store.MessageStore,
	enqueuer task.Enqueuer,
	log *slog.Logger,
) *MessageHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for MessageHandler")
	}

	return &MessageHandler{
		messageStore: messageStore,
		enqueuer:     enqueuer,
		logger:       log.With(slog.String("component", "message_handler")),
	}
}

// ListMessages handles GET /api/messages requests.
// Supported query parameters: processed (true/false), task_id,
// search (content substring), limit, offset.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	filter, err := messageFilterFromQuery(r)
	if err != nil {
		log.Warn("invalid list query", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.respondWithList(w, r, filter)
}

// ListProcessedMessages handles GET /api/messages/processed requests.
func (h *MessageHandler) ListProcessedMessages(w http.ResponseWriter, r *http.Request) {
	processed := true
	h.respondWithList(w, r, store.MessageFilter{Processed: &processed})
}

// ListUnprocessedMessages handles GET /api/messages/unprocessed requests.
func (h *MessageHandler) ListUnprocessedMessages(w http.ResponseWriter, r *http.Request) {
	processed := false
	h.respondWithList(w, r, store.MessageFilter{Processed: &processed})
}

// respondWithList runs the filter against the store and writes the
// standard list envelope.
func (h *MessageHandler) respondWithList(w http.ResponseWriter, r *http.Request, filter store.MessageFilter) {
	msgs, err := h.messageStore.List(r.Context(), filter)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list messages", err)
		return
	}

	results := messagesToResponses(msgs)
	shared.RespondWithJSON(w, r, http.StatusOK, MessageListResponse{
		Count:   len(results),
		Results: results,
	})
}

// SearchMessages handles GET /api/messages/search requests.
// A missing q parameter falls through to the generic accepted response
// instead of an error.
func (h *MessageHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		shared.RespondWithJSON(w, r, http.StatusAccepted, map[string]string{
			"message": "Message processing started",
		})
		return
	}

	msgs, err := h.messageStore.List(r.Context(), store.MessageFilter{Search: query})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to search messages", err)
		return
	}

	results := messagesToResponses(msgs)
	shared.RespondWithJSON(w, r, http.StatusOK, SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// CreateMessage handles POST /api/messages requests.
// The new message is persisted and a processing task is enqueued for it.
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateMessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: content is required")
		return
	}

	msg, err := domain.NewMessage(req.Content)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.messageStore.Create(r.Context(), msg); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to create message", err)
		return
	}

	// Fire-and-forget: the message is already persisted, so a broker
	// outage downgrades to a log line and shows up in /health instead
	// of failing the request.
	if taskID, err := h.enqueuer.EnqueueProcessMessage(r.Context(), msg.ID); err != nil {
		log.Error("failed to enqueue processing for new message",
			slog.String("error", redact.Error(err)),
			slog.String("message_id", msg.ID.String()))
	} else {
		log.Debug("enqueued processing for new message",
			slog.String("task_id", taskID),
			slog.String("message_id", msg.ID.String()))
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, messageToResponse(msg))
}

// GetMessage handles GET /api/messages/{id} requests.
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageIDFromURL(w, r)
	if !ok {
		return
	}

	msg, err := h.messageStore.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, messageToResponse(msg))
}

// UpdateMessage handles PUT /api/messages/{id} requests.
func (h *MessageHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := h.messageIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: content is required")
		return
	}

	msg, err := h.messageStore.UpdateContent(r.Context(), id, req.Content)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, messageToResponse(msg))
}

// DeleteMessage handles DELETE /api/messages/{id} requests.
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.messageStore.Delete(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ProcessMessage handles POST /api/messages/{id}/process requests.
// It re-enqueues the processing task for an existing message and
// returns 202 with the new task ID.
func (h *MessageHandler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := h.messageIDFromURL(w, r)
	if !ok {
		return
	}

	msg, err := h.messageStore.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	taskID, err := h.enqueuer.EnqueueProcessMessage(r.Context(), msg.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to start message processing", err)
		return
	}

	log.Info("re-enqueued message processing",
		slog.String("task_id", taskID),
		slog.String("message_id", msg.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ProcessAcceptedResponse{
		Message:   "Message processing started",
		TaskID:    taskID,
		MessageID: msg.ID.String(),
	})
}

// messageIDFromURL extracts and parses the {id} path parameter,
// responding with 400 on failure.
func (h *MessageHandler) messageIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	pathID := chi.URLParam(r, "id")
	if pathID == "" {
		log.Warn("message ID not found in URL path")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(pathID)
	if err != nil {
		log.Warn("invalid message ID format", slog.String("message_id", pathID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid message ID format")
		return uuid.Nil, false
	}

	return id, true
}

// messageFilterFromQuery builds a store filter from list query parameters.
func messageFilterFromQuery(r *http.Request) (store.MessageFilter, error) {
	q := r.URL.Query()
	filter := store.MessageFilter{
		TaskID: q.Get("task_id"),
		Search: q.Get("search"),
	}

	if raw := q.Get("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			return store.MessageFilter{}, errInvalidQueryParam("processed")
		}
		filter.Processed = &processed
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return store.MessageFilter{}, errInvalidQueryParam("limit")
		}
		filter.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return store.MessageFilter{}, errInvalidQueryParam("offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}
