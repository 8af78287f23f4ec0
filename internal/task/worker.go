package task

import (
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/phrazzld/bulletin-api/internal/config"
)

// Worker runs the background task server and, when a periodic interval
// is configured, the scheduler that enqueues the periodic system
// message task.
type Worker struct {
	srv       *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewWorker creates a worker consuming from the configured queue and
// dispatching to the given processor's handlers.
// If log is nil, a default logger will be used.
func NewWorker(redisOpt asynq.RedisClientOpt, cfg config.TaskConfig, processor *Processor, log *slog.Logger) *Worker {
	if processor == nil {
		panic("processor cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "task_worker"))

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.Queue: 1,
		},
		Logger: newSlogAdapter(log),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessMessage, processor.HandleProcessMessage)
	mux.HandleFunc(TypePeriodicMessage, processor.HandlePeriodicMessage)

	var scheduler *asynq.Scheduler
	if cfg.PeriodicInterval != "" {
		scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
			Logger: newSlogAdapter(log.With(slog.String("component", "task_scheduler"))),
		})
	}

	return &Worker{
		srv:       srv,
		mux:       mux,
		scheduler: scheduler,
		logger:    log,
	}
}

// Start launches the task server and the scheduler in the background.
// It returns once both are running; task handling continues until
// Shutdown is called.
func (w *Worker) Start(cfg config.TaskConfig) error {
	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	if w.scheduler != nil {
		entryID, err := w.scheduler.Register(cfg.PeriodicInterval, NewPeriodicMessageTask(),
			asynq.Queue(cfg.Queue), asynq.MaxRetry(cfg.MaxRetry))
		if err != nil {
			w.srv.Shutdown()
			return fmt.Errorf("failed to register periodic task: %w", err)
		}

		if err := w.scheduler.Start(); err != nil {
			w.srv.Shutdown()
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		w.logger.Info("scheduler started",
			slog.String("entry_id", entryID),
			slog.String("interval", cfg.PeriodicInterval))
	}

	w.logger.Info("task worker started",
		slog.Int("concurrency", cfg.Concurrency),
		slog.String("queue", cfg.Queue))
	return nil
}

// Shutdown stops the scheduler and then the task server, waiting for
// in-flight tasks to finish.
func (w *Worker) Shutdown() {
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.srv.Shutdown()
	w.logger.Info("task worker stopped")
}
