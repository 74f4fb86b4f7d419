package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrNoLanguages is returned when a call names no content language.
	ErrNoLanguages = errors.New("at least one language is required")
)
