package generation

import "errors"

// Common errors returned by generation capabilities
var (
	// ErrGenerationFailed marks any failed generation attempt, including timeouts.
	ErrGenerationFailed = errors.New("course generation failed")

	// ErrInvalidResponse is returned when the model response cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry.
	ErrTransientFailure = errors.New("transient error during course generation")

	// ErrInvalidConfig is returned when the capability configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput is returned when there is no raw text to generate from.
	ErrEmptyInput = errors.New("raw text cannot be empty")
)
