package api

import (
	"log/slog"
	"net/http"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
)

// ProgressHandler records lesson progress.
type ProgressHandler struct {
	progress service.ProgressService
	logger   *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progress service.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger.With(slog.String("component", "progress_handler")),
	}
}

// RecordProgress handles PUT /api/lessons/{id}/progress.
func (h *ProgressHandler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, lessonID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req ProgressRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	p, err := h.progress.RecordProgress(r.Context(), userID, lessonID, *req.Completed, req.Score)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record progress")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{
		LessonID:  p.LessonID,
		Completed: p.Completed,
		Score:     p.Score,
		UpdatedAt: p.UpdatedAt,
	})
}
