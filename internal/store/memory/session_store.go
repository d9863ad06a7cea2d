// Package memory provides in-memory store implementations. Live quiz
// sessions are always served from here; the user and attempt stores back
// single-process deployments and tests where Postgres is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/store"
)

// sessionEntry pairs a stored session with its own lock so mutations on
// distinct sessions never contend with each other.
type sessionEntry struct {
	mu      sync.Mutex
	session *domain.QuizSession
}

// SessionStore is an in-memory implementation of store.SessionStore with
// per-session locking.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// Create implements store.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *domain.QuizSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return store.ErrSessionExists
	}
	s.sessions[session.ID] = &sessionEntry{session: session.Clone()}
	return nil
}

// Get implements store.SessionStore. The returned session is a snapshot.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.QuizSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Clone(), nil
}

// Mutate implements store.SessionStore. fn runs against a working copy
// under the session's lock; the copy replaces the stored session only if
// fn succeeds, so failed mutations leave no trace.
func (s *SessionStore) Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.QuizSession) error) (*domain.QuizSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	entry.session = working
	return working.Clone(), nil
}

// Delete implements store.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return store.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) entry(id uuid.UUID) (*sessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return entry, nil
}

// Ensure SessionStore implements store.SessionStore.
var _ store.SessionStore = (*SessionStore)(nil)
