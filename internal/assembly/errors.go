package assembly

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
)

// Validation failure kinds
var (
	// ErrEmptyDraft is returned for a draft without modules or a module without lessons.
	ErrEmptyDraft = errors.New("draft has no content")

	// ErrIncompleteContent is returned when a requested language is missing
	// for a lesson, or a title or body is blank.
	ErrIncompleteContent = errors.New("incomplete content")

	// ErrInvalidQuestion is returned for a question without a prompt, with an
	// empty or duplicated option list, or with an answer that is not an option.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrInvalidQuiz is returned for an unknown quiz type or a quiz without questions.
	ErrInvalidQuiz = errors.New("invalid quiz")
)

// AssemblyError identifies the first offending element of a draft. Indices
// are zero-based positions in the draft lists; -1 means not applicable.
type AssemblyError struct {
	Kind     error
	Module   int
	Lesson   int
	Question int
	Language string
	Detail   string
}

func newError(kind error, module, lesson, question int, detail string) *AssemblyError {
	return &AssemblyError{Kind: kind, Module: module, Lesson: lesson, Question: question, Detail: detail}
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	var loc []string
	if e.Module >= 0 {
		loc = append(loc, fmt.Sprintf("module %d", e.Module))
	}
	if e.Lesson >= 0 {
		loc = append(loc, fmt.Sprintf("lesson %d", e.Lesson))
	}
	if e.Question >= 0 {
		loc = append(loc, fmt.Sprintf("question %d", e.Question))
	}
	if e.Language != "" {
		loc = append(loc, fmt.Sprintf("language %q", e.Language))
	}
	msg := e.Kind.Error()
	if len(loc) > 0 {
		msg += " at " + strings.Join(loc, ", ")
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the failure kind so callers can use errors.Is.
func (e *AssemblyError) Unwrap() error {
	return e.Kind
}

// Reason maps the failure kind to the reason recorded on the course.
func (e *AssemblyError) Reason() domain.FailureReason {
	switch {
	case errors.Is(e.Kind, ErrEmptyDraft):
		return domain.FailureReasonEmptyDraft
	case errors.Is(e.Kind, ErrIncompleteContent):
		return domain.FailureReasonIncompleteContent
	case errors.Is(e.Kind, ErrInvalidQuestion):
		return domain.FailureReasonInvalidQuestion
	case errors.Is(e.Kind, ErrInvalidQuiz):
		return domain.FailureReasonInvalidQuiz
	default:
		return domain.FailureReasonInternal
	}
}
