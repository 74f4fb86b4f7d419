package service

import (
	"errors"
	"fmt"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/google/uuid"
)

// Sentinel errors checked by callers with errors.Is. The API layer maps each
// to a status code.
var (
	// ErrNotOwned is returned when a user touches another user's resource.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInvalidState is returned when a course is not in a status that
	// allows the requested operation, including losing a race to start
	// generation.
	ErrInvalidState = errors.New("course is not in a valid state for this operation")

	// ErrAttemptsExhausted is returned when a course has used all of its
	// generation attempts.
	ErrAttemptsExhausted = errors.New("generation attempts exhausted")

	// ErrNotPublished is returned when the subtree of an unpublished course
	// is requested.
	ErrNotPublished = errors.New("course is not published")
)

// GenerationError reports a generation attempt that ended FAILED. Err is the
// underlying cause and stays reachable through errors.Is and errors.As.
type GenerationError struct {
	CourseID uuid.UUID
	Reason   domain.FailureReason
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation of course %s failed (%s): %v", e.CourseID, e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
