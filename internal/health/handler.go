package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bulletin-api/internal/api/shared"
)

// Handler serves the health probe endpoints.
type Handler struct {
	checker *Checker
	logger  *slog.Logger
}

// NewHandler creates a health Handler over the given checker.
func NewHandler(checker *Checker, log *slog.Logger) *Handler {
	if checker == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("checker cannot be nil for health Handler")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		checker: checker,
		logger:  log.With(slog.String("component", "health_handler")),
	}
}

// Health handles GET /health requests: the comprehensive dependency
// report. Responds 503 when any check fails so load balancers can act
// on the status code alone.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check failed",
			slog.Int("failed_checks", report.Summary.Failed),
			slog.Int("total_checks", report.Summary.TotalChecks))
	}

	shared.RespondWithJSON(w, r, status, report)
}

// Readiness handles GET /health/readiness requests: fast probes of the
// database and the broker, for startup and traffic gating.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.checker.Ready(r.Context())

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}

	shared.RespondWithJSON(w, r, status, map[string]interface{}{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

// Liveness handles GET /health/liveness requests. It only proves the
// process is serving HTTP, so it always responds 200.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}
