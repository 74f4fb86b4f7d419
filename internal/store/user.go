package store

import (
	"context"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/google/uuid"
)

// UserStore defines the user persistence operations the service needs.
type UserStore interface {
	// Create saves a user. Returns ErrEmailExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// SessionStore answers session questions from the refresh-token table.
type SessionStore interface {
	// HasActiveSession reports whether the user holds at least one refresh
	// token that is unrevoked and unexpired at now.
	HasActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	// CreateRefreshToken stores a hashed refresh token.
	CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error
}

// ProgressStore persists per-lesson learner progress.
type ProgressStore interface {
	// Upsert inserts or replaces the progress row for (user, lesson).
	Upsert(ctx context.Context, progress *domain.Progress) error

	// Get returns the progress row. Returns ErrNotFound if absent.
	Get(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Progress, error)

	// LessonOwner returns the creator of the course the lesson belongs to.
	// Returns ErrLessonNotFound if the lesson does not exist.
	LessonOwner(ctx context.Context, lessonID uuid.UUID) (uuid.UUID, error)
}
