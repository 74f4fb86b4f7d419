package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeCourseGeneration runs the generation pipeline for one course.
const TaskTypeCourseGeneration = "course_generation"

// Task represents a unit of background work to be processed
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// Record is the persisted form of a task.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rehydrator rebuilds an executable task from its stored record.
type Rehydrator func(rec Record) (Task, error)

// TaskStore persists task records.
type TaskStore interface {
	// SaveTask persists a new task in its current status.
	SaveTask(ctx context.Context, task Task) error

	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks returns every pending task, oldest first.
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks returns processing tasks last updated more than
	// olderThan ago. Zero returns all of them.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)
}

// Sweeper performs periodic repair work alongside the stuck task monitor.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// SweeperFunc adapts a function to the Sweeper interface.
type SweeperFunc func(ctx context.Context) error

// Sweep calls f.
func (f SweeperFunc) Sweep(ctx context.Context) error { return f(ctx) }
