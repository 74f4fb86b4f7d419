package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db store.DBTX
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection or transaction that is managed by the caller.
func NewPostgresUserStore(db store.DBTX) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.HashedPassword, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, "user", "users_email_key", store.ErrEmailExists)
		}
		logger.FromContext(ctx).Error("failed to insert user", "user_id", user.ID, "error", err)
		return MapError(err)
	}
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, hashed_password, role, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", MapError(err))
	}
	return &u, nil
}

// PostgresSessionStore implements store.SessionStore on the refresh_tokens table.
type PostgresSessionStore struct {
	db store.DBTX
}

// NewPostgresSessionStore creates a session store.
func NewPostgresSessionStore(db store.DBTX) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// HasActiveSession implements store.SessionStore.HasActiveSession
func (s *PostgresSessionStore) HasActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE user_id = $1 AND NOT revoked AND expires_at > $2
		)`, userID, now.UTC()).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", MapError(err))
	}
	return active, nil
}

// CreateRefreshToken implements store.SessionStore.CreateRefreshToken
func (s *PostgresSessionStore) CreateRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.TokenHash, token.Revoked, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", MapError(err))
	}
	return nil
}

// PostgresProgressStore implements store.ProgressStore.
type PostgresProgressStore struct {
	db store.DBTX
}

// NewPostgresProgressStore creates a progress store.
func NewPostgresProgressStore(db store.DBTX) *PostgresProgressStore {
	return &PostgresProgressStore{db: db}
}

var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// Upsert implements store.ProgressStore.Upsert
func (s *PostgresProgressStore) Upsert(ctx context.Context, p *domain.Progress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, user_id, lesson_id, completed, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.UserID, p.LessonID, p.Completed, p.Score, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", MapError(err))
	}
	return nil
}

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Progress, error) {
	var (
		p     domain.Progress
		score sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, lesson_id, completed, score, updated_at
		FROM progress WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID).
		Scan(&p.ID, &p.UserID, &p.LessonID, &p.Completed, &score, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", MapError(err))
	}
	if score.Valid {
		p.Score = &score.Float64
	}
	return &p, nil
}

// LessonOwner implements store.ProgressStore.LessonOwner
func (s *PostgresProgressStore) LessonOwner(ctx context.Context, lessonID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT c.creator_id
		FROM lessons l
		JOIN modules m ON m.id = l.module_id
		JOIN courses c ON c.id = m.course_id
		WHERE l.id = $1`, lessonID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, store.ErrLessonNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve lesson owner: %w", MapError(err))
	}
	return owner, nil
}
