package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the course services.
const (
	// TypeCourseGenerationRequested asks for a course already in GENERATING
	// to be processed in the background.
	TypeCourseGenerationRequested = "course_generation"

	// TypeCourseStatusChanged reports a course reaching PUBLISHED or FAILED.
	TypeCourseStatusChanged = "course_status_changed"
)

// Event is a typed notification with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of the given type with payload serialized as JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CourseGenerationPayload is the payload of TypeCourseGenerationRequested.
type CourseGenerationPayload struct {
	CourseID uuid.UUID `json:"course_id"`
}

// CourseStatusPayload is the payload of TypeCourseStatusChanged.
type CourseStatusPayload struct {
	CourseID      uuid.UUID `json:"course_id"`
	CreatorID     uuid.UUID `json:"creator_id"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventHandler processes events delivered by an EventEmitter.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to whoever is listening.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
