package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNilGenerator   = errors.New("course generator cannot be nil")
	ErrEmptyCourseID  = errors.New("course ID cannot be empty")
	ErrInvalidPayload = errors.New("invalid task payload")
)

// CourseGenerator runs the generation pipeline for a course that has already
// been moved to GENERATING.
type CourseGenerator interface {
	Resume(ctx context.Context, courseID uuid.UUID) error
}

// CourseGeneratorFunc adapts a function to the CourseGenerator interface.
type CourseGeneratorFunc func(ctx context.Context, courseID uuid.UUID) error

// Resume calls f.
func (f CourseGeneratorFunc) Resume(ctx context.Context, courseID uuid.UUID) error {
	return f(ctx, courseID)
}

type courseGenerationPayload struct {
	CourseID uuid.UUID `json:"course_id"`
}

// CourseGenerationTask drives one course through generation.
type CourseGenerationTask struct {
	id        uuid.UUID
	courseID  uuid.UUID
	status    TaskStatus
	generator CourseGenerator
}

// NewCourseGenerationTask creates a pending task for courseID.
func NewCourseGenerationTask(courseID uuid.UUID, generator CourseGenerator) (*CourseGenerationTask, error) {
	if courseID == uuid.Nil {
		return nil, ErrEmptyCourseID
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	return &CourseGenerationTask{
		id:        uuid.New(),
		courseID:  courseID,
		status:    TaskStatusPending,
		generator: generator,
	}, nil
}

func (t *CourseGenerationTask) ID() uuid.UUID      { return t.id }
func (t *CourseGenerationTask) Type() string       { return TaskTypeCourseGeneration }
func (t *CourseGenerationTask) Status() TaskStatus { return t.status }

// CourseID returns the course this task generates.
func (t *CourseGenerationTask) CourseID() uuid.UUID { return t.courseID }

// Payload returns the JSON form of the task's course reference.
func (t *CourseGenerationTask) Payload() []byte {
	b, _ := json.Marshal(courseGenerationPayload{CourseID: t.courseID})
	return b
}

// Execute runs the pipeline. The course ends PUBLISHED or FAILED either way;
// a returned error only marks the task record.
func (t *CourseGenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	if err := t.generator.Resume(ctx, t.courseID); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("course %s: %w", t.courseID, err)
	}
	t.status = TaskStatusCompleted
	return nil
}

// CourseGenerationTaskFactory builds course generation tasks bound to a
// generator.
type CourseGenerationTaskFactory struct {
	generator CourseGenerator
}

// NewCourseGenerationTaskFactory returns a factory using generator.
func NewCourseGenerationTaskFactory(generator CourseGenerator) *CourseGenerationTaskFactory {
	return &CourseGenerationTaskFactory{generator: generator}
}

// CreateTask returns a new pending task for courseID.
func (f *CourseGenerationTaskFactory) CreateTask(courseID uuid.UUID) (Task, error) {
	return NewCourseGenerationTask(courseID, f.generator)
}

// Rehydrate rebuilds a stored course generation task, keeping its ID.
func (f *CourseGenerationTaskFactory) Rehydrate(rec Record) (Task, error) {
	var p courseGenerationPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	t, err := NewCourseGenerationTask(p.CourseID, f.generator)
	if err != nil {
		return nil, err
	}
	t.id = rec.ID
	t.status = rec.Status
	return t, nil
}
