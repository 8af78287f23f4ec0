package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/bulletin-api/internal/api"
	apiMiddleware "github.com/phrazzld/bulletin-api/internal/api/middleware"
	"github.com/phrazzld/bulletin-api/internal/health"
	"github.com/phrazzld/bulletin-api/internal/web"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	messageHandler := api.NewMessageHandler(app.messageStore, app.taskClient, app.logger)
	taskLogHandler := api.NewTaskLogHandler(app.taskLogStore, app.logger)
	statusHandler := api.NewStatusHandler(app.messageStore, app.taskLogStore, app.logger)
	healthHandler := health.NewHandler(app.healthChecker, app.logger)
	webHandler := web.NewHandler(app.messageStore, app.taskLogStore, app.taskClient, app.logger)

	// REST API
	r.Route("/api", func(r chi.Router) {
		r.Route("/messages", func(r chi.Router) {
			r.Get("/", messageHandler.ListMessages)
			r.Post("/", messageHandler.CreateMessage)
			r.Get("/processed", messageHandler.ListProcessedMessages)
			r.Get("/unprocessed", messageHandler.ListUnprocessedMessages)
			r.Get("/search", messageHandler.SearchMessages)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", messageHandler.GetMessage)
				r.Put("/", messageHandler.UpdateMessage)
				r.Delete("/", messageHandler.DeleteMessage)
				r.Post("/process", messageHandler.ProcessMessage)
			})
		})

		r.Route("/task-logs", func(r chi.Router) {
			r.Get("/", taskLogHandler.ListTaskLogs)
			r.Get("/recent", taskLogHandler.RecentTaskLogs)
			r.Get("/stats", taskLogHandler.TaskLogStats)
			r.Get("/{id}", taskLogHandler.GetTaskLog)
		})
	})

	// Processing status snapshot
	r.Get("/status", statusHandler.GetStatus)

	// Health probes
	r.Get("/health", healthHandler.Health)
	r.Get("/health/readiness", healthHandler.Readiness)
	r.Get("/health/liveness", healthHandler.Liveness)

	// HTML board
	r.Get("/", webHandler.Home)
	r.Post("/", webHandler.Submit)

	return r
}
