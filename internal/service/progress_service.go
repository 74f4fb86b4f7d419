package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// ProgressService records learner progress on lessons of courses the learner
// owns.
type ProgressService interface {
	RecordProgress(
		ctx context.Context,
		userID, lessonID uuid.UUID,
		completed bool,
		score *float64,
	) (*domain.Progress, error)
}

type progressServiceImpl struct {
	progress store.ProgressStore
	logger   *slog.Logger
}

// NewProgressService creates a ProgressService.
func NewProgressService(progress store.ProgressStore, logger *slog.Logger) ProgressService {
	return &progressServiceImpl{
		progress: progress,
		logger:   logger.With("component", "progress_service"),
	}
}

func (s *progressServiceImpl) RecordProgress(
	ctx context.Context,
	userID, lessonID uuid.UUID,
	completed bool,
	score *float64,
) (*domain.Progress, error) {
	p, err := domain.NewProgress(userID, lessonID, completed, score)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	owner, err := s.progress.LessonOwner(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrNotOwned
	}

	if err := s.progress.Upsert(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to save progress",
			"error", err,
			"user_id", userID,
			"lesson_id", lessonID)
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	s.logger.DebugContext(ctx, "progress recorded",
		"user_id", userID,
		"lesson_id", lessonID,
		"completed", completed)
	return s.progress.Get(ctx, userID, lessonID)
}
