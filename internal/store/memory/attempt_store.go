package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/store"
)

// AttemptStore is an in-memory implementation of store.AttemptStore.
type AttemptStore struct {
	mu        sync.RWMutex
	byStudent map[uuid.UUID][]store.AttemptRecord
}

// NewAttemptStore creates an empty in-memory attempt archive.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		byStudent: make(map[uuid.UUID][]store.AttemptRecord),
	}
}

// Save implements store.AttemptStore.
func (s *AttemptStore) Save(ctx context.Context, record *store.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStudent[record.StudentID] = append(s.byStudent[record.StudentID], *record)
	return nil
}

// ListByStudent implements store.AttemptStore, returning the most recent
// attempts first.
func (s *AttemptStore) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]store.AttemptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byStudent[studentID]
	result := make([]store.AttemptRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, records[i])
	}
	return result, nil
}

// WithTx implements store.AttemptStore. The in-memory store has no
// transactional semantics, so the same store is returned.
func (s *AttemptStore) WithTx(_ *sql.Tx) store.AttemptStore {
	return s
}

// Ensure AttemptStore implements store.AttemptStore.
var _ store.AttemptStore = (*AttemptStore)(nil)
