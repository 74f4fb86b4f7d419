package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when a stored record has no registered
// Rehydrator.
var ErrUnknownTaskType = errors.New("unknown task type")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	WorkerCount int
	QueueSize   int

	// StuckTaskAge is how long a task may stay processing before the monitor
	// marks it failed.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defaults to 5 minutes when zero.
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger

	mu          sync.RWMutex
	rehydrators map[string]Rehydrator
	sweeper     Sweeper
	errHandler  func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	logger = logger.With("component", "task_runner")
	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:       store,
		queue:       NewTaskQueue(config.QueueSize, logger),
		ctx:         ctx,
		cancelFunc:  cancel,
		config:      config,
		logger:      logger,
		rehydrators: make(map[string]Rehydrator),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// RegisterType installs the constructor used to rebuild stored tasks of
// taskType during recovery.
func (r *TaskRunner) RegisterType(taskType string, fn Rehydrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rehydrators[taskType] = fn
}

// SetSweeper installs work to run on every stuck task check.
func (r *TaskRunner) SetSweeper(s Sweeper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeper = s
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errHandler = handler
}

// Submit persists task and queues it. When the queue cannot take the task
// the stored record is marked failed and the queue error is returned.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return err
	}
	return nil
}

// Start recovers stored tasks, then launches the workers and the stuck task
// monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started", "worker_count", r.config.WorkerCount)
	return nil
}

// Stop signals the workers to exit, waits for in-flight tasks and closes the
// queue. Tasks still buffered stay pending in the store for the next Start.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()
	r.logger.Info("task runner stopped")
}

// Recover requeues pending tasks and fails tasks left processing by a
// previous run. Interrupted work is repaired by the Sweeper, not by rerunning
// the task.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range processing {
		r.fail(ctx, rec.ID, "interrupted by restart")
	}

	for _, rec := range pending {
		task, err := r.rehydrate(rec)
		if err != nil {
			r.logger.Error("failed to rehydrate pending task",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			r.fail(ctx, rec.ID, err.Error())
			continue
		}
		if err := r.queue.Enqueue(task); err != nil {
			// Leave it pending; the next restart picks it up again.
			r.logger.Error("failed to requeue pending task",
				"task_id", rec.ID,
				"error", err)
		}
	}

	return nil
}

func (r *TaskRunner) rehydrate(rec Record) (Task, error) {
	r.mu.RLock()
	fn, ok := r.rehydrators[rec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}
	return fn(rec)
}

func (r *TaskRunner) fail(ctx context.Context, taskID uuid.UUID, msg string) {
	if err := r.store.UpdateTaskStatus(ctx, taskID, TaskStatusFailed, msg); err != nil {
		r.logger.Error("failed to mark task as failed",
			"task_id", taskID,
			"error", err)
	}
}

func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)
	tasks := r.queue.GetChannel()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-tasks:
			if !ok {
				return
			}
			r.processTask(task, id)
		}
	}
}

func (r *TaskRunner) processTask(task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)
	// In-flight tasks run to completion on shutdown; their own deadlines
	// bound how long Stop waits.
	ctx := logger.WithLogger(context.Background(), log)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")

	if err := task.Execute(ctx); err != nil {
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}

		r.mu.RLock()
		handler := r.errHandler
		r.mu.RUnlock()
		handler(task, err)
		return
	}

	log.Info("task completed")
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to update task status to completed", "error", err)
	}
}

func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkStuck(r.ctx)
		}
	}
}

// checkStuck fails tasks stuck in processing and runs the sweeper.
func (r *TaskRunner) checkStuck(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
	} else if len(stuck) > 0 {
		r.logger.Warn("found stuck tasks", "count", len(stuck))
		for _, rec := range stuck {
			r.fail(ctx, rec.ID, "stuck in processing")
		}
	}

	r.mu.RLock()
	sweeper := r.sweeper
	r.mu.RUnlock()
	if sweeper == nil {
		return
	}
	if err := sweeper.Sweep(ctx); err != nil {
		r.logger.Error("sweep failed", "error", err)
	}
}
