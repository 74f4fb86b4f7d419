package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/google/uuid"
)

// QuotaReader returns a user's current quota.
type QuotaReader interface {
	Status(ctx context.Context, userID uuid.UUID) (*domain.Quota, error)
}

// QuotaHandler serves the caller's quota.
type QuotaHandler struct {
	quotas QuotaReader
	logger *slog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(quotas QuotaReader, logger *slog.Logger) *QuotaHandler {
	return &QuotaHandler{
		quotas: quotas,
		logger: logger.With(slog.String("component", "quota_handler")),
	}
}

// GetQuota handles GET /api/quota.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	q, err := h.quotas.Status(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get quota")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, QuotaResponse{
		Plan:         string(q.Plan),
		MonthlyLimit: q.MonthlyLimit,
		Used:         q.Used,
		Remaining:    q.Remaining(),
		ResetAt:      q.ResetAt,
	})
}
