package store

import (
	"context"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/google/uuid"
)

// GenerationResult is the terminal outcome of one generation attempt.
// For PUBLISHED, Modules and ReservationID must be set and are written
// together with the status flip in one transaction.
type GenerationResult struct {
	CourseID      uuid.UUID
	Status        domain.CourseStatus
	Modules       []*domain.Module
	ReservationID uuid.UUID
	FailureReason domain.FailureReason
}

// CourseStore defines the interface for course and subtree persistence.
type CourseStore interface {
	// Create saves a new course draft.
	Create(ctx context.Context, course *domain.Course) error

	// GetByID retrieves a course without its subtree.
	// Returns ErrCourseNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)

	// GetTree retrieves a course with modules, lessons, contents, quizzes and
	// questions populated and ordered.
	GetTree(ctx context.Context, id uuid.UUID) (*domain.Course, error)

	// ListByCreator returns the creator's courses, newest first.
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Course, error)

	// BeginGeneration moves a DRAFT or FAILED course at expectedVersion to
	// GENERATING, clears its failure reason, bumps version and attempts, and
	// returns the updated course. Returns ErrStatusConflict if another writer
	// got there first.
	BeginGeneration(ctx context.Context, id uuid.UUID, expectedVersion int) (*domain.Course, error)

	// SetStatus records a status and failure reason without touching the subtree.
	SetStatus(
		ctx context.Context,
		id uuid.UUID,
		status domain.CourseStatus,
		reason domain.FailureReason,
	) error

	// PersistGenerationResult atomically applies a terminal outcome to a
	// GENERATING course. For PUBLISHED it inserts the subtree and commits the
	// reservation in the same transaction. A FAILED result whose reason does
	// not count as an attempt gives back the attempt BeginGeneration took.
	// Returns ErrStatusConflict if the course is no longer GENERATING; nothing
	// is written in that case.
	PersistGenerationResult(ctx context.Context, result GenerationResult) error

	// FindStuckGenerating returns courses that have been GENERATING since
	// before now minus olderThan.
	FindStuckGenerating(ctx context.Context, olderThan time.Duration) ([]*domain.Course, error)
}
