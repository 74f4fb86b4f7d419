package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CourseStatus is the generation state of a course.
type CourseStatus string

// Possible course status values
const (
	CourseStatusDraft      CourseStatus = "DRAFT"
	CourseStatusGenerating CourseStatus = "GENERATING"
	CourseStatusPublished  CourseStatus = "PUBLISHED"
	CourseStatusFailed     CourseStatus = "FAILED"
)

// Difficulty is the requested level of the generated material.
type Difficulty string

// Possible difficulty values
const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
)

// FailureReason is a stable machine-readable code explaining why a course is FAILED.
type FailureReason string

// Failure reasons recorded on FAILED courses
const (
	FailureReasonNone              FailureReason = ""
	FailureReasonQuotaExceeded     FailureReason = "quota_exceeded"
	FailureReasonGenerationFailed  FailureReason = "generation_failed"
	FailureReasonGenerationTimeout FailureReason = "generation_timeout"
	FailureReasonEmptyDraft        FailureReason = "empty_draft"
	FailureReasonIncompleteContent FailureReason = "incomplete_content"
	FailureReasonInvalidQuestion   FailureReason = "invalid_question"
	FailureReasonInvalidQuiz       FailureReason = "invalid_quiz"
	FailureReasonPersistence       FailureReason = "persistence_failed"
	FailureReasonInterrupted       FailureReason = "interrupted"
	FailureReasonEnqueueFailed     FailureReason = "enqueue_failed"
	FailureReasonInternal          FailureReason = "internal_error"
)

// CountsAsAttempt reports whether a failure with this reason uses up one of
// the course's generation attempts. Failures that never held quota past the
// run, or that were not the run's own doing, are refunded.
func (r FailureReason) CountsAsAttempt() bool {
	switch r {
	case FailureReasonQuotaExceeded, FailureReasonEnqueueFailed, FailureReasonInterrupted:
		return false
	}
	return true
}

// Course validation errors
var (
	ErrEmptyCourseID      = errors.New("course ID cannot be empty")
	ErrEmptyCourseTitle   = errors.New("course title cannot be empty")
	ErrEmptyCourseRawText = errors.New("course raw text cannot be empty")
	ErrEmptyCreatorID     = errors.New("course creator ID cannot be empty")
)

var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})?$`)

// Course is the generation unit. Its status transitions are owned by the
// generation orchestrator; Modules is only populated when the tree is loaded.
type Course struct {
	ID            uuid.UUID     `json:"id"`
	CreatorID     uuid.UUID     `json:"creator_id"`
	Title         string        `json:"title"`
	Description   *string       `json:"description,omitempty"`
	RawText       string        `json:"raw_text"`
	Difficulty    Difficulty    `json:"difficulty"`
	Language      string        `json:"language"`
	Status        CourseStatus  `json:"status"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	Attempts      int           `json:"attempts"`
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Modules       []*Module     `json:"modules,omitempty"`
}

// NewCourse creates a Course in DRAFT. The language tag is normalized to lower case.
func NewCourse(
	creatorID uuid.UUID,
	title string,
	description *string,
	rawText string,
	difficulty Difficulty,
	language string,
) (*Course, error) {
	now := time.Now().UTC()
	course := &Course{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Title:       strings.TrimSpace(title),
		Description: description,
		RawText:     rawText,
		Difficulty:  difficulty,
		Language:    NormalizeLanguage(language),
		Status:      CourseStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := course.Validate(); err != nil {
		return nil, err
	}

	return course, nil
}

// Validate checks if the Course has valid data.
func (c *Course) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCourseID
	}
	if c.CreatorID == uuid.Nil {
		return ErrEmptyCreatorID
	}
	if c.Title == "" {
		return ErrEmptyCourseTitle
	}
	if strings.TrimSpace(c.RawText) == "" {
		return ErrEmptyCourseRawText
	}
	if !c.Difficulty.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, c.Difficulty)
	}
	if !languagePattern.MatchString(c.Language) {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, c.Language)
	}
	if !c.Status.IsValid() {
		return ErrInvalidCourseStatus
	}
	return nil
}

// CanBeginGeneration reports whether the course is eligible to enter GENERATING.
func (c *Course) CanBeginGeneration() bool {
	return c.Status == CourseStatusDraft || c.Status == CourseStatusFailed
}

// IsValid reports whether s is a known course status.
func (s CourseStatus) IsValid() bool {
	switch s {
	case CourseStatusDraft, CourseStatusGenerating, CourseStatusPublished, CourseStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s ends a generation attempt.
func (s CourseStatus) IsTerminal() bool {
	return s == CourseStatusPublished || s == CourseStatusFailed
}

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// NormalizeLanguage lower-cases and trims a language tag so that "ES" and "es " compare equal.
func NormalizeLanguage(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
