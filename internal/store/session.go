package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
)

// SessionStore defines the interface for live quiz session state. Sessions
// are hot, frequently mutated objects with a bounded lifetime, so the store
// must serialize all mutations per session id while allowing operations on
// distinct sessions to proceed in parallel.
type SessionStore interface {
	// Create saves a new session.
	// Returns ErrSessionExists if the ID is already present.
	Create(ctx context.Context, session *domain.QuizSession) error

	// Get retrieves a snapshot of a session by ID. The returned value is
	// a copy; mutating it does not affect stored state.
	// Returns ErrSessionNotFound if the session does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.QuizSession, error)

	// Mutate applies fn to the session under the session's lock and
	// persists the result. If fn returns an error the stored session is
	// left unchanged and the error is returned. The returned session is
	// a snapshot of the post-mutation state.
	// Returns ErrSessionNotFound if the session does not exist.
	Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.QuizSession) error) (*domain.QuizSession, error)

	// Delete removes a session from the store.
	// Returns ErrSessionNotFound if the session does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
