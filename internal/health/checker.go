// Package health implements the dependency health checks behind the
// health probe endpoints: database, Redis broker, worker fleet, and
// overall application activity.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/bulletin-api/internal/platform/logger"
	"github.com/phrazzld/bulletin-api/internal/redact"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// Check status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// redisProbeTTL bounds the lifetime of the round-trip probe key so a
// crashed check cannot leave garbage behind.
const redisProbeTTL = 10 * time.Second

// DBPinger is the database surface the checker needs. *sql.DB satisfies it.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RedisCommander is the Redis surface the checker needs.
// *redis.Client satisfies it.
type RedisCommander interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// WorkerInspector reports on running worker processes.
// *asynq.Inspector satisfies it.
type WorkerInspector interface {
	Servers() ([]*asynq.ServerInfo, error)
}

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Summary counts passed and failed checks in a report.
type Summary struct {
	TotalChecks int `json:"total_checks"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
}

// Report is the full health report returned by GET /health.
type Report struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Checks         map[string]CheckResult `json:"checks"`
	Summary        Summary                `json:"summary"`
	ResponseTimeMS int64                  `json:"response_time_ms"`
}

// Healthy reports whether every check in the report passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker runs the dependency checks.
type Checker struct {
	db           DBPinger
	redis        RedisCommander
	inspector    WorkerInspector
	messageStore store.MessageStore
	taskLogStore store.TaskLogStore
	logger       *slog.Logger
}

// NewChecker creates a Checker over the given dependencies.
// If log is nil, a default logger will be used.
func NewChecker(
	db DBPinger,
	rdb RedisCommander,
	inspector WorkerInspector,
	messageStore store.MessageStore,
	taskLogStore store.TaskLogStore,
	log *slog.Logger,
) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		db:           db,
		redis:        rdb,
		inspector:    inspector,
		messageStore: messageStore,
		taskLogStore: taskLogStore,
		logger:       log.With(slog.String("component", "health_checker")),
	}
}

// Check runs every dependency check and aggregates them into a report.
func (c *Checker) Check(ctx context.Context) Report {
	start := time.Now()

	checks := map[string]CheckResult{
		"database":    c.CheckDatabase(ctx),
		"redis":       c.CheckRedis(ctx),
		"worker":      c.CheckWorker(ctx),
		"application": c.CheckApplication(ctx),
	}

	summary := Summary{TotalChecks: len(checks)}
	for _, result := range checks {
		if result.Status == StatusHealthy {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	status := StatusHealthy
	if summary.Failed > 0 {
		status = StatusUnhealthy
	}

	return Report{
		Status:         status,
		Timestamp:      time.Now().UTC(),
		Checks:         checks,
		Summary:        summary,
		ResponseTimeMS: time.Since(start).Milliseconds(),
	}
}

// CheckDatabase verifies database connectivity and that the messages
// table is reachable.
func (c *Checker) CheckDatabase(ctx context.Context) CheckResult {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := c.db.PingContext(ctx); err != nil {
		log.Warn("database health check failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "database connection failed",
		}
	}

	counts, err := c.messageStore.Counts(ctx)
	if err != nil {
		log.Warn("message table health check failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "messages table is not reachable",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "database connection ok",
		Details: map[string]interface{}{
			"message_count": counts.Total,
		},
	}
}

// CheckRedis verifies the broker with a set/get/delete round-trip on a
// volatile key.
func (c *Checker) CheckRedis(ctx context.Context) CheckResult {
	log := logger.FromContextOrDefault(ctx, c.logger)

	key := fmt.Sprintf("health:check:%d", time.Now().UnixNano())

	if err := c.redis.Set(ctx, key, "ok", redisProbeTTL).Err(); err != nil {
		log.Warn("redis set failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "redis write failed",
		}
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		log.Warn("redis get failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "redis read failed",
		}
	}
	if val != "ok" {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "redis round-trip returned unexpected value",
		}
	}

	if err := c.redis.Del(ctx, key).Err(); err != nil {
		log.Warn("redis del failed", slog.String("error", redact.Error(err)))
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "redis round-trip ok",
	}
}

// CheckWorker verifies that at least one worker process is consuming
// from the queue, via the queue library's inspector.
func (c *Checker) CheckWorker(ctx context.Context) CheckResult {
	log := logger.FromContextOrDefault(ctx, c.logger)

	servers, err := c.inspector.Servers()
	if err != nil {
		log.Warn("worker inspection failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "worker inspection failed",
		}
	}

	if len(servers) == 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "no workers are running",
			Details: map[string]interface{}{
				"active_workers": 0,
			},
		}
	}

	queues := make(map[string]bool)
	active := 0
	for _, srv := range servers {
		active += len(srv.ActiveWorkers)
		for queue := range srv.Queues {
			queues[queue] = true
		}
	}
	queueNames := make([]string, 0, len(queues))
	for queue := range queues {
		queueNames = append(queueNames, queue)
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d worker server(s) running", len(servers)),
		Details: map[string]interface{}{
			"servers":        len(servers),
			"active_workers": active,
			"queues":         queueNames,
		},
	}
}

// CheckApplication reports on processing progress: message and task
// counts, the processed ratio, and activity over the last 24 hours.
func (c *Checker) CheckApplication(ctx context.Context) CheckResult {
	log := logger.FromContextOrDefault(ctx, c.logger)

	counts, err := c.messageStore.Counts(ctx)
	if err != nil {
		log.Warn("application health check failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "failed to load message counts",
		}
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	messages24h, err := c.messageStore.CountSince(ctx, since)
	if err != nil {
		log.Warn("application health check failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "failed to load recent message activity",
		}
	}

	tasks24h, err := c.taskLogStore.CountSince(ctx, since)
	if err != nil {
		log.Warn("application health check failed", slog.String("error", redact.Error(err)))
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "failed to load recent task activity",
		}
	}

	var processingRate float64
	if counts.Total > 0 {
		processingRate = float64(int64(float64(counts.Processed)/float64(counts.Total)*10000)) / 100
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "application is processing messages",
		Details: map[string]interface{}{
			"total_messages":     counts.Total,
			"processed_messages": counts.Processed,
			"pending_messages":   counts.Total - counts.Processed,
			"processing_rate":    processingRate,
			"messages_24h":       messages24h,
			"tasks_24h":          tasks24h,
		},
	}
}

// Ready runs the fast dependency probes used by the readiness endpoint:
// a database ping and a Redis ping. It returns per-dependency outcomes
// and whether both passed.
func (c *Checker) Ready(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, 2)
	ready := true

	if err := c.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if err := c.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unreachable"
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	return checks, ready
}
