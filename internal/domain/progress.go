package domain

import (
	"time"

	"github.com/google/uuid"
)

// Progress records a user's completion of a lesson. Unique per (user, lesson).
type Progress struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	Completed bool      `json:"completed"`
	Score     *float64  `json:"score,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProgress builds a progress record, validating the optional score.
func NewProgress(userID, lessonID uuid.UUID, completed bool, score *float64) (*Progress, error) {
	p := &Progress{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lessonID,
		Completed: completed,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the Progress has valid data.
func (p *Progress) Validate() error {
	if p.UserID == uuid.Nil || p.LessonID == uuid.Nil {
		return ErrInvalidID
	}
	if p.Score != nil && (*p.Score < 0 || *p.Score > 100) {
		return ErrInvalidScore
	}
	return nil
}
