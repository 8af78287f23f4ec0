// Package web serves the HTML message board: a form to post messages
// plus the current board state, rendered server-side.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/platform/logger"
	"github.com/phrazzld/bulletin-api/internal/redact"
	"github.com/phrazzld/bulletin-api/internal/store"
	"github.com/phrazzld/bulletin-api/internal/task"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// boardMessageLimit caps how many messages the page shows.
	boardMessageLimit = 20

	// boardTaskLimit caps how many recent task executions the page shows.
	boardTaskLimit = 10
)

// boardData is the template context for the home page.
type boardData struct {
	Messages   []*domain.Message
	RecentLogs []*domain.TaskLog
	Total      int64
	Processed  int64
	Pending    int64
	Error      string
}

// Handler renders the board page and accepts form submissions.
type Handler struct {
	messageStore store.MessageStore
	taskLogStore store.TaskLogStore
	enqueuer     task.Enqueuer
	tmpl         *template.Template
	logger       *slog.Logger
}

// NewHandler creates the board page handler.
func NewHandler(
	messageStore store.MessageStore,
	taskLogStore store.TaskLogStore,
	enqueuer task.Enqueuer,
	log *slog.Logger,
) *Handler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for web Handler")
	}

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"timefmt": func(t interface{}) string {
			const layout = "2006-01-02 15:04:05"
			switch v := t.(type) {
			case time.Time:
				return v.Format(layout)
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format(layout)
			default:
				return ""
			}
		},
		"str": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}).ParseFS(templateFS, "templates/*.html"))

	return &Handler{
		messageStore: messageStore,
		taskLogStore: taskLogStore,
		enqueuer:     enqueuer,
		tmpl:         tmpl,
		logger:       log.With(slog.String("component", "web_handler")),
	}
}

// Home handles GET / requests, rendering the board.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "")
}

// Submit handles POST / requests: it creates a message from the form,
// enqueues processing, and redirects back to the board.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", slog.String("error", redact.Error(err)))
		h.renderWithStatus(w, r, "Could not read the submitted form.", http.StatusBadRequest)
		return
	}

	content := r.PostFormValue("content")
	msg, err := domain.NewMessage(content)
	if err != nil {
		h.renderWithStatus(w, r, "Message content cannot be empty.", http.StatusBadRequest)
		return
	}

	if err := h.messageStore.Create(r.Context(), msg); err != nil {
		log.Error("failed to create message from form", slog.String("error", redact.Error(err)))
		h.renderWithStatus(w, r, "Could not save the message. Try again.", http.StatusInternalServerError)
		return
	}

	if taskID, err := h.enqueuer.EnqueueProcessMessage(r.Context(), msg.ID); err != nil {
		log.Error("failed to enqueue processing for form message",
			slog.String("error", redact.Error(err)),
			slog.String("message_id", msg.ID.String()))
	} else {
		log.Debug("enqueued processing for form message",
			slog.String("task_id", taskID),
			slog.String("message_id", msg.ID.String()))
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, errMsg string) {
	h.renderWithStatus(w, r, errMsg, http.StatusOK)
}

func (h *Handler) renderWithStatus(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	data := boardData{Error: errMsg}

	msgs, err := h.messageStore.List(r.Context(), store.MessageFilter{Limit: boardMessageLimit})
	if err != nil {
		log.Error("failed to load messages for board", slog.String("error", redact.Error(err)))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Messages = msgs

	logs, err := h.taskLogStore.List(r.Context(), store.TaskLogFilter{Limit: boardTaskLimit})
	if err != nil {
		log.Error("failed to load task logs for board", slog.String("error", redact.Error(err)))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.RecentLogs = logs

	counts, err := h.messageStore.Counts(r.Context())
	if err != nil {
		log.Error("failed to load counts for board", slog.String("error", redact.Error(err)))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Total = counts.Total
	data.Processed = counts.Processed
	data.Pending = counts.Total - counts.Processed

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, "home.html", data); err != nil {
		log.Error("failed to render board template", slog.String("error", redact.Error(err)))
	}
}
