package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/redact"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service/auth"
	"github.com/google/uuid"
)

// SessionChecker reports whether a user still holds a live session.
type SessionChecker interface {
	HasActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
}

// AuthMiddleware authenticates requests with a bearer access token and
// requires the token's user to hold an active session.
type AuthMiddleware struct {
	jwtService auth.JWTService
	sessions   SessionChecker
	now        func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware. sessions may be nil to
// skip the session check.
func NewAuthMiddleware(jwtService auth.JWTService, sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		sessions:   sessions,
		now:        time.Now,
	}
}

// Authenticate validates the Authorization header and adds the user ID to the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), slog.Default())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrWrongTokenType):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				log.Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		if m.sessions != nil {
			active, err := m.sessions.HasActiveSession(r.Context(), claims.UserID, m.now())
			if err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
					"Authentication error", err)
				return
			}
			if !active {
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized,
					"Session expired", auth.ErrNoActiveSession, shared.WithElevatedLogLevel())
				return
			}
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		ctx = logger.WithLogger(ctx, log.With("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID placed in the request context by Authenticate.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}
