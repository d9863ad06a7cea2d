package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RosterFeed is an append-only, in-memory list of mastery events for
// teacher-facing display. It implements EventHandler so it can subscribe
// to the emitter directly; non-mastery events are ignored.
type RosterFeed struct {
	mu      sync.RWMutex
	entries []RosterEntry
}

// RosterEntry is one row of the teacher roster feed.
type RosterEntry struct {
	EventID          uuid.UUID
	StudentID        uuid.UUID
	StudentName      string
	CurrentGrade     int
	RecommendedGrade int
	Message          string
}

// NewRosterFeed creates an empty roster feed.
func NewRosterFeed() *RosterFeed {
	return &RosterFeed{}
}

// HandleEvent implements the EventHandler interface.
func (f *RosterFeed) HandleEvent(_ context.Context, event *StudentEvent) error {
	if event.Type != TypeMasteryAchieved {
		return nil
	}

	var payload MasteryPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, RosterEntry{
		EventID:          event.ID,
		StudentID:        event.StudentID,
		StudentName:      payload.StudentName,
		CurrentGrade:     payload.CurrentGrade,
		RecommendedGrade: payload.RecommendedGrade,
		Message:          payload.Message,
	})
	return nil
}

// Entries returns a snapshot of the feed in append order.
func (f *RosterFeed) Entries() []RosterEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entries := make([]RosterEntry, len(f.entries))
	copy(entries, f.entries)
	return entries
}

// Ensure RosterFeed implements EventHandler.
var _ EventHandler = (*RosterFeed)(nil)
