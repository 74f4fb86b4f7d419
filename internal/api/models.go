package api

import (
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/domain"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/service"
	"github.com/google/uuid"
)

// CreateCourseRequest defines the payload for creating a course draft.
type CreateCourseRequest struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	RawText     string  `json:"raw_text"    validate:"required,max=200000"`
	Difficulty  string  `json:"difficulty"  validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Language    string  `json:"language"    validate:"required,min=2,max=8"`
}

func (r CreateCourseRequest) toInput() service.CreateCourseInput {
	return service.CreateCourseInput{
		Title:       r.Title,
		Description: r.Description,
		RawText:     r.RawText,
		Difficulty:  domain.Difficulty(r.Difficulty),
		Language:    r.Language,
	}
}

// CourseResponse is the course summary returned by course endpoints. The raw
// source text is not echoed back.
type CourseResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description,omitempty"`
	Difficulty    string    `json:"difficulty"`
	Language      string    `json:"language"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CourseTreeResponse is a published course with its full subtree.
type CourseTreeResponse struct {
	CourseResponse
	Modules []*domain.Module `json:"modules"`
}

func courseToResponse(c *domain.Course) CourseResponse {
	return CourseResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Difficulty:    string(c.Difficulty),
		Language:      c.Language,
		Status:        string(c.Status),
		FailureReason: string(c.FailureReason),
		Attempts:      c.Attempts,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// GenerationResponse reports the status of a generation request.
type GenerationResponse struct {
	CourseID      uuid.UUID `json:"course_id"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// QuotaResponse reports the caller's monthly allowance.
type QuotaResponse struct {
	Plan         string    `json:"plan"`
	MonthlyLimit int       `json:"monthly_limit"`
	Used         int       `json:"used"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
}

// ProgressRequest defines the payload for recording lesson progress.
type ProgressRequest struct {
	Completed *bool    `json:"completed" validate:"required"`
	Score     *float64 `json:"score"     validate:"omitempty,gte=0,lte=100"`
}

// ProgressResponse is a stored progress record.
type ProgressResponse struct {
	LessonID  uuid.UUID `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Score     *float64  `json:"score,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
