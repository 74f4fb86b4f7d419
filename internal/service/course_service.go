package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// CreateCourseInput holds the user-supplied fields of a new course.
type CreateCourseInput struct {
	Title       string
	Description *string
	RawText     string
	Difficulty  domain.Difficulty
	Language    string
}

// CourseGenerator is the part of the orchestrator the course service drives.
type CourseGenerator interface {
	Begin(ctx context.Context, courseID uuid.UUID) (*domain.Course, error)
	Run(ctx context.Context, course *domain.Course) (*Outcome, error)
	Abort(ctx context.Context, course *domain.Course, reason domain.FailureReason, cause error) (*Outcome, error)
}

// CourseService exposes course use cases to the API. Every read and
// generation request is restricted to the course creator.
type CourseService interface {
	CreateCourseDraft(ctx context.Context, creatorID uuid.UUID, in CreateCourseInput) (*domain.Course, error)
	GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Course, error)
	GetCourseTree(ctx context.Context, userID, courseID uuid.UUID) (*domain.Course, error)
	ListCourses(ctx context.Context, userID uuid.UUID) ([]*domain.Course, error)

	// RequestGeneration starts generation. With wait set it returns the
	// terminal outcome; otherwise the work is handed to the background runner
	// and the returned outcome reports GENERATING.
	RequestGeneration(ctx context.Context, userID, courseID uuid.UUID, wait bool) (*Outcome, error)
}

type courseServiceImpl struct {
	courses   store.CourseStore
	generator CourseGenerator
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewCourseService creates a CourseService.
func NewCourseService(
	courses store.CourseStore,
	generator CourseGenerator,
	emitter events.EventEmitter,
	logger *slog.Logger,
) CourseService {
	return &courseServiceImpl{
		courses:   courses,
		generator: generator,
		emitter:   emitter,
		logger:    logger.With("component", "course_service"),
	}
}

func (s *courseServiceImpl) CreateCourseDraft(
	ctx context.Context,
	creatorID uuid.UUID,
	in CreateCourseInput,
) (*domain.Course, error) {
	course, err := domain.NewCourse(creatorID, in.Title, in.Description, in.RawText, in.Difficulty, in.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.courses.Create(ctx, course); err != nil {
		s.logger.ErrorContext(ctx, "failed to save course draft",
			"error", err,
			"creator_id", creatorID)
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.InfoContext(ctx, "course draft created",
		"course_id", course.ID,
		"creator_id", creatorID,
		"language", course.Language)
	return course, nil
}

func (s *courseServiceImpl) GetCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.CreatorID != userID {
		return nil, ErrNotOwned
	}
	return course, nil
}

func (s *courseServiceImpl) GetCourseTree(ctx context.Context, userID, courseID uuid.UUID) (*domain.Course, error) {
	course, err := s.GetCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != domain.CourseStatusPublished {
		return nil, fmt.Errorf("%w: course is %s", ErrNotPublished, course.Status)
	}
	return s.courses.GetTree(ctx, courseID)
}

func (s *courseServiceImpl) ListCourses(ctx context.Context, userID uuid.UUID) ([]*domain.Course, error) {
	courses, err := s.courses.ListByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *courseServiceImpl) RequestGeneration(
	ctx context.Context,
	userID, courseID uuid.UUID,
	wait bool,
) (*Outcome, error) {
	if _, err := s.GetCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	course, err := s.generator.Begin(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if wait {
		return s.generator.Run(ctx, course)
	}

	if err := s.enqueue(ctx, course); err != nil {
		s.logger.ErrorContext(ctx, "failed to hand course to background runner",
			"course_id", courseID,
			"error", err)
		return s.generator.Abort(ctx, course, domain.FailureReasonEnqueueFailed, err)
	}

	return &Outcome{CourseID: course.ID, Status: course.Status}, nil
}

func (s *courseServiceImpl) enqueue(ctx context.Context, course *domain.Course) error {
	if s.emitter == nil {
		return errors.New("no event emitter configured")
	}
	event, err := events.NewEvent(events.TypeCourseGenerationRequested, events.CourseGenerationPayload{
		CourseID: course.ID,
	})
	if err != nil {
		return err
	}
	return s.emitter.EmitEvent(ctx, event)
}
