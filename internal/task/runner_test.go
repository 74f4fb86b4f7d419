package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunnerConfig() TaskRunnerConfig {
	cfg := DefaultTaskRunnerConfig()
	cfg.WorkerCount = 2
	cfg.QueueSize = 10
	cfg.StuckTaskCheckInterval = time.Hour
	return cfg
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("saves then queues", func(t *testing.T) {
		store := newMockTaskStore()
		runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())

		task := newMockTask()
		require.NoError(t, runner.Submit(context.Background(), task))

		status, _ := store.status(task.ID())
		assert.Equal(t, TaskStatusPending, status)
		assert.Equal(t, 1, runner.queue.Len())
	})

	t.Run("queue full marks the record failed", func(t *testing.T) {
		store := newMockTaskStore()
		cfg := testRunnerConfig()
		cfg.QueueSize = 1
		runner := NewTaskRunner(store, cfg, discardLogger())

		require.NoError(t, runner.Submit(context.Background(), newMockTask()))

		rejected := newMockTask()
		err := runner.Submit(context.Background(), rejected)
		assert.ErrorIs(t, err, ErrQueueFull)

		status, msg := store.status(rejected.ID())
		assert.Equal(t, TaskStatusFailed, status)
		assert.Contains(t, msg, "full")
	})

	t.Run("store error", func(t *testing.T) {
		store := newMockTaskStore()
		errDB := errors.New("db down")
		store.SaveFn = func(context.Context, Task) error { return errDB }
		runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())

		err := runner.Submit(context.Background(), newMockTask())
		assert.ErrorIs(t, err, errDB)
		assert.Equal(t, 0, runner.queue.Len())
	})
}

func TestTaskRunner_ProcessesTasks(t *testing.T) {
	t.Parallel()

	store := newMockTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	var ran atomic.Int32
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		ran.Add(1)
		return nil
	}
	require.NoError(t, runner.Submit(context.Background(), task))

	assert.Eventually(t, func() bool {
		s, _ := store.status(task.ID())
		return s == TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t,
		[]TaskStatus{TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted},
		store.statusHistory(task.ID()))
}

func TestTaskRunner_TaskFailure(t *testing.T) {
	t.Parallel()

	store := newMockTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())

	handled := make(chan error, 1)
	runner.SetErrorHandler(func(_ Task, err error) { handled <- err })
	require.NoError(t, runner.Start())
	defer runner.Stop()

	errBoom := errors.New("boom")
	task := newMockTask()
	task.execFn = func(context.Context) error { return errBoom }
	require.NoError(t, runner.Submit(context.Background(), task))

	select {
	case err := <-handled:
		assert.ErrorIs(t, err, errBoom)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}

	assert.Eventually(t, func() bool {
		s, msg := store.status(task.ID())
		return s == TaskStatusFailed && msg == "boom"
	}, time.Second, 10*time.Millisecond)
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()

	store := newMockTaskStore()
	now := time.Now()

	pendingID := uuid.New()
	store.put(Record{ID: pendingID, Type: "mock", Payload: []byte(`{}`), Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now})
	processingID := uuid.New()
	store.put(Record{ID: processingID, Type: "mock", Status: TaskStatusProcessing, CreatedAt: now, UpdatedAt: now})
	orphanID := uuid.New()
	store.put(Record{ID: orphanID, Type: "retired", Status: TaskStatusPending, CreatedAt: now, UpdatedAt: now})

	runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())

	executed := make(chan uuid.UUID, 1)
	runner.RegisterType("mock", func(rec Record) (Task, error) {
		task := newMockTask()
		task.id = rec.ID
		task.execFn = func(context.Context) error {
			executed <- rec.ID
			return nil
		}
		return task, nil
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	select {
	case id := <-executed:
		assert.Equal(t, pendingID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("pending task was not requeued")
	}

	status, msg := store.status(processingID)
	assert.Equal(t, TaskStatusFailed, status)
	assert.Equal(t, "interrupted by restart", msg)

	status, msg = store.status(orphanID)
	assert.Equal(t, TaskStatusFailed, status)
	assert.Contains(t, msg, "unknown task type")
}

func TestTaskRunner_RecoverStoreError(t *testing.T) {
	t.Parallel()

	store := &failingListStore{mockTaskStore: newMockTaskStore(), err: errors.New("db down")}
	runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())

	err := runner.Start()
	assert.ErrorIs(t, err, store.err)
}

type failingListStore struct {
	*mockTaskStore
	err error
}

func (s *failingListStore) GetPendingTasks(context.Context) ([]Record, error) {
	return nil, s.err
}

func TestTaskRunner_CheckStuck(t *testing.T) {
	t.Parallel()

	store := newMockTaskStore()
	old := time.Now().Add(-time.Hour)
	stuckID := uuid.New()
	store.put(Record{ID: stuckID, Type: "mock", Status: TaskStatusProcessing, CreatedAt: old, UpdatedAt: old})
	freshID := uuid.New()
	store.put(Record{ID: freshID, Type: "mock", Status: TaskStatusProcessing, CreatedAt: time.Now(), UpdatedAt: time.Now()})

	cfg := testRunnerConfig()
	cfg.StuckTaskAge = 30 * time.Minute
	runner := NewTaskRunner(store, cfg, discardLogger())

	var swept atomic.Int32
	runner.SetSweeper(SweeperFunc(func(context.Context) error {
		swept.Add(1)
		return errors.New("sweep errors are only logged")
	}))

	runner.checkStuck(context.Background())

	status, msg := store.status(stuckID)
	assert.Equal(t, TaskStatusFailed, status)
	assert.Equal(t, "stuck in processing", msg)

	status, _ = store.status(freshID)
	assert.Equal(t, TaskStatusProcessing, status)
	assert.Equal(t, int32(1), swept.Load())
}

func TestTaskRunner_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	store := newMockTaskStore()
	runner := NewTaskRunner(store, testRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())
	runner.Stop()

	task := newMockTask()
	err := runner.Submit(context.Background(), task)
	assert.ErrorIs(t, err, ErrQueueClosed)

	status, _ := store.status(task.ID())
	assert.Equal(t, TaskStatusFailed, status)
}
