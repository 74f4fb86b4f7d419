package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
	"github.com/google/uuid"
)

// TokenIssuer issues signed access tokens.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// QuotaWriter replaces a user's quota row.
type QuotaWriter interface {
	PutQuota(ctx context.Context, q *domain.Quota) error
}

// SeedRequest describes the development account to create.
type SeedRequest struct {
	Email    string
	Password string
	Plan     domain.Plan
	Limit    int
	// SessionTTL is how long the seeded refresh token stays active.
	SessionTTL time.Duration
}

// SeedResult is what a client needs to call the API as the seeded user.
type SeedResult struct {
	UserID      uuid.UUID
	AccessToken string
}

// DevSeeder creates a user with an active session and a quota row, then
// issues an access token for it. Signup and token refresh are not exposed
// over HTTP, so this is how local environments get a usable account.
type DevSeeder struct {
	users    UserService
	sessions store.SessionStore
	quotas   QuotaWriter
	tokens   TokenIssuer
	hasher   PasswordHasher
	now      func() time.Time
	logger   *slog.Logger
}

// NewDevSeeder creates a DevSeeder.
func NewDevSeeder(
	users UserService,
	sessions store.SessionStore,
	quotas QuotaWriter,
	tokens TokenIssuer,
	hasher PasswordHasher,
	logger *slog.Logger,
) *DevSeeder {
	return &DevSeeder{
		users:    users,
		sessions: sessions,
		quotas:   quotas,
		tokens:   tokens,
		hasher:   hasher,
		now:      time.Now,
		logger:   logger.With("component", "dev_seeder"),
	}
}

// Seed runs req and returns the new user's ID and access token.
func (s *DevSeeder) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	if !req.Plan.IsValid() {
		return nil, fmt.Errorf("%w: invalid plan %q", domain.ErrValidation, req.Plan)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
	}
	if req.SessionTTL <= 0 {
		req.SessionTTL = 30 * 24 * time.Hour
	}

	user, err := s.users.CreateUser(ctx, req.Email, req.Password, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.quotas.PutQuota(ctx, domain.NewQuota(user.ID, req.Plan, req.Limit, now)); err != nil {
		return nil, fmt.Errorf("failed to seed quota: %w", err)
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	refresh := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(req.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to seed session: %w", err)
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.logger.InfoContext(ctx, "development user seeded",
		"user_id", user.ID,
		"plan", req.Plan,
		"limit", req.Limit)
	return &SeedResult{UserID: user.ID, AccessToken: token}, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
