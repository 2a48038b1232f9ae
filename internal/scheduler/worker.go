package scheduler

import (
	"context"
	"fmt"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ImportRunner processes one queued lead import.
type ImportRunner interface {
	Run(ctx context.Context, tenantID, jobID uuid.UUID) error
}

// Worker consumes the import queue.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	imports ImportRunner
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, imports ImportRunner, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := newWorker(imports, log)
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueOf(cfg): 1},
		Logger:      asynqLogger{log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Error("scheduler_task_failed", "type", task.Type(), "retry", retried, "maxRetry", maxRetry, "error", err)
		}),
	})
	return w, nil
}

func newWorker(imports ImportRunner, log *logger.Logger) *Worker {
	w := &Worker{mux: asynq.NewServeMux(), imports: imports, log: log}
	w.mux.HandleFunc(TaskLeadImport, w.runLeadImport)
	return w
}

// Run blocks until ctx is cancelled, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.log.Info("scheduler_worker_started")
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// runLeadImport drops malformed payloads rather than retrying them.
func (w *Worker) runLeadImport(ctx context.Context, task *asynq.Task) error {
	tenantID, jobID, err := ParseLeadImportPayload(task)
	if err != nil {
		metrics.ScheduledTasks.WithLabelValues(task.Type(), "invalid").Inc()
		w.log.Error("lead_import_task_invalid", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	started := time.Now()
	w.log.Info("lead_import_started", "tenantId", tenantID.String(), "jobId", jobID.String())
	if err := w.imports.Run(ctx, tenantID, jobID); err != nil {
		metrics.ScheduledTasks.WithLabelValues(task.Type(), "error").Inc()
		return err
	}
	metrics.ScheduledTasks.WithLabelValues(task.Type(), "done").Inc()
	w.log.Info("lead_import_finished", "tenantId", tenantID.String(), "jobId", jobID.String(),
		"durationMs", time.Since(started).Milliseconds())
	return nil
}

// asynqLogger routes the queue library's own logs through slog.
type asynqLogger struct{ log *logger.Logger }

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...), "component", "asynq", "fatal", true) }
