package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api/shared"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/assembly"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/generation"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/quota"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service/auth"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their messages to clients. Quota exhaustion is checked first
// because it also surfaces wrapped in a *service.GenerationError.
func MapErrorToStatusCode(err error) int {
	var genErr *service.GenerationError

	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrNoActiveSession),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrNotPublished),
		errors.Is(err, service.ErrAttemptsExhausted),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.As(err, &genErr):
		switch genErr.Reason {
		case domain.FailureReasonPersistence, domain.FailureReasonInternal:
			return http.StatusInternalServerError
		case domain.FailureReasonEnqueueFailed:
			return http.StatusServiceUnavailable
		default:
			return http.StatusUnprocessableEntity
		}

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var (
		genErr      *service.GenerationError
		assemblyErr *assembly.AssemblyError
	)

	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "Monthly generation quota exceeded"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrNoActiveSession):
		return "Session expired"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this resource"

	case errors.Is(err, store.ErrCourseNotFound):
		return "Course not found"
	case errors.Is(err, store.ErrLessonNotFound):
		return "Lesson not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrNotPublished):
		return "Course is not published"
	case errors.Is(err, service.ErrAttemptsExhausted):
		return "Generation attempts exhausted for this course"
	case errors.Is(err, service.ErrInvalidState):
		return "Course cannot be generated in its current state"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, domain.ErrInvalidScore):
		return "Score must be between 0 and 100"
	case errors.Is(err, domain.ErrInvalidDifficulty):
		return "Invalid difficulty"
	case errors.Is(err, domain.ErrInvalidLanguage):
		return "Invalid language"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.As(err, &assemblyErr):
		return "Generated content failed validation: " + assemblyErr.Kind.Error()
	case errors.Is(err, generation.ErrContentBlocked):
		return "Generated content was blocked"
	case errors.As(err, &genErr):
		if genErr.Reason == domain.FailureReasonGenerationTimeout {
			return "Course generation timed out"
		}
		return "Course generation failed"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err, logging the
// redacted error. A non-empty fallback replaces the generic 500 message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	var genErr *service.GenerationError
	if errors.As(err, &genErr) {
		opts = append(opts, shared.WithReason(string(genErr.Reason)))
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns a validator error into a message naming the
// field and the failed rule.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example: "Key: 'CreateCourseRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
