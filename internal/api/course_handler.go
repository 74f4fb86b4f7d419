package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/platform/logger"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
)

// CourseHandler handles course and generation requests.
type CourseHandler struct {
	courses service.CourseService
	logger  *slog.Logger
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courses service.CourseService, logger *slog.Logger) *CourseHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CourseHandler")
	}
	return &CourseHandler{
		courses: courses,
		logger:  logger.With(slog.String("component", "course_handler")),
	}
}

// CreateCourse handles POST /api/courses.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req CreateCourseRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	course, err := h.courses.CreateCourseDraft(r.Context(), userID, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create course")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, courseToResponse(course))
}

// ListCourses handles GET /api/courses.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	courses, err := h.courses.ListCourses(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list courses")
		return
	}

	resp := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		resp = append(resp, courseToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetCourse handles GET /api/courses/{id}. Clients poll it for the status of
// a background generation.
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, courseID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	course, err := h.courses.GetCourse(r.Context(), userID, courseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get course")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, courseToResponse(course))
}

// GetCourseTree handles GET /api/courses/{id}/tree.
func (h *CourseHandler) GetCourseTree(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, courseID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	course, err := h.courses.GetCourseTree(r.Context(), userID, courseID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get course")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CourseTreeResponse{
		CourseResponse: courseToResponse(course),
		Modules:        course.Modules,
	})
}

// RequestGeneration handles POST /api/courses/{id}/generate. By default the
// work runs in the background and 202 is returned; with ?wait=true the
// request blocks until the course is PUBLISHED or FAILED.
func (h *CourseHandler) RequestGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, courseID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid wait parameter")
			return
		}
		wait = parsed
	}

	outcome, err := h.courses.RequestGeneration(r.Context(), userID, courseID, wait)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate course")
		return
	}

	status := http.StatusOK
	if !wait {
		status = http.StatusAccepted
	}
	log.Info("generation requested",
		slog.String("course_id", courseID.String()),
		slog.Bool("wait", wait),
		slog.String("status", string(outcome.Status)))
	shared.RespondWithJSON(w, r, status, GenerationResponse{
		CourseID:      outcome.CourseID,
		Status:        string(outcome.Status),
		FailureReason: string(outcome.Reason),
	})
}
