package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuizType is the kind of quiz attached to a lesson.
type QuizType string

// Possible quiz types
const (
	QuizTypeMCQ       QuizType = "MCQ"
	QuizTypeTrueFalse QuizType = "TRUE_FALSE"
)

// IsValid reports whether t is a known quiz type.
func (t QuizType) IsValid() bool {
	return t == QuizTypeMCQ || t == QuizTypeTrueFalse
}

// Module belongs to exactly one course. Order is unique and contiguous within the course.
type Module struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	Lessons     []*Lesson `json:"lessons"`
}

// Lesson belongs to exactly one module. Order is unique and contiguous within the module.
type Lesson struct {
	ID        uuid.UUID        `json:"id"`
	ModuleID  uuid.UUID        `json:"module_id"`
	Order     int              `json:"order"`
	CreatedAt time.Time        `json:"created_at"`
	Contents  []*LessonContent `json:"contents"`
	Quiz      *Quiz            `json:"quiz,omitempty"`
}

// ContentFor returns the lesson content for a language, or nil.
func (l *Lesson) ContentFor(language string) *LessonContent {
	lang := NormalizeLanguage(language)
	for _, c := range l.Contents {
		if c.Language == lang {
			return c
		}
	}
	return nil
}

// LessonContent holds one language rendition of a lesson; unique per (lesson, language).
type LessonContent struct {
	ID       uuid.UUID `json:"id"`
	LessonID uuid.UUID `json:"lesson_id"`
	Language string    `json:"language"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
}

// Quiz belongs to exactly one lesson; a lesson has at most one quiz.
type Quiz struct {
	ID        uuid.UUID   `json:"id"`
	LessonID  uuid.UUID   `json:"lesson_id"`
	Type      QuizType    `json:"type"`
	Questions []*Question `json:"questions"`
}

// Question is a single quiz item. Answer is always one of Options.
type Question struct {
	ID      uuid.UUID `json:"id"`
	QuizID  uuid.UUID `json:"quiz_id"`
	Order   int       `json:"order"`
	Prompt  string    `json:"prompt"`
	Options []string  `json:"options"`
	Answer  string    `json:"answer"`
}
