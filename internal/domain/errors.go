package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is usually wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidDifficulty is returned for a difficulty outside the known set.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrInvalidLanguage is returned for a malformed language tag.
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidCourseStatus is returned when a course status is not valid.
	ErrInvalidCourseStatus = errors.New("invalid course status")

	// ErrInvalidPlan is returned when a quota plan tier is unknown.
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrInvalidScore is returned when a progress score is outside 0..100.
	ErrInvalidScore = errors.New("score must be between 0 and 100")

	// ErrUnauthorized is returned when an operation is not permitted for the caller.
	ErrUnauthorized = errors.New("unauthorized operation")
)
