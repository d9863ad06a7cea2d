// Package events defines the notification events produced when students
// reach milestones, and the emitter used to fan them out to handlers such
// as the teacher roster feed and the notification dispatcher.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types understood by the notification pipeline.
const (
	TypeMasteryAchieved = "mastery_achieved"
)

// StudentEvent represents a milestone reached by a student. The payload
// carries event-type-specific data serialized as JSON so handlers can be
// registered without direct dependencies on every payload shape.
type StudentEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates which milestone this event describes
	Type string `json:"type"`

	// StudentID identifies the student the event belongs to
	StudentID uuid.UUID `json:"student_id"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// MasteryPayload is the payload for TypeMasteryAchieved events. It tells
// the roster which grade the student has mastered and which grade the
// engine recommends next.
type MasteryPayload struct {
	StudentName      string `json:"student_name"`
	CurrentGrade     int    `json:"current_grade"`
	RecommendedGrade int    `json:"recommended_grade"`
	Message          string `json:"message"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *StudentEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewStudentEvent creates a new StudentEvent of the given type for the
// given student, serializing the payload to JSON.
func NewStudentEvent(eventType string, studentID uuid.UUID, payload interface{}) (*StudentEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &StudentEvent{
		ID:        uuid.New(),
		Type:      eventType,
		StudentID: studentID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *StudentEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of the
// registered handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *StudentEvent) error
}
