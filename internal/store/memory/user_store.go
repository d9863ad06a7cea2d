package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// userEntry pairs a stored user with its own lock so progression updates
// for different students never contend.
type userEntry struct {
	mu   sync.Mutex
	user *domain.User
}

// UserStore is an in-memory implementation of store.UserStore. Passwords
// are bcrypt-hashed on create, matching the durable implementation.
type UserStore struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*userEntry
	emailIndex map[string]uuid.UUID
	bcryptCost int
}

// NewUserStore creates an empty in-memory user store. A non-positive
// bcryptCost falls back to the bcrypt default.
func NewUserStore(bcryptCost int) *UserStore {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{
		users:      make(map[uuid.UUID]*userEntry),
		emailIndex: make(map[string]uuid.UUID),
		bcryptCost: bcryptCost,
	}
}

// Create implements store.UserStore.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			return store.NewStoreError("user", "create", "failed to hash password", err)
		}
		user.HashedPassword = string(hashed)
		user.Password = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, exists := s.emailIndex[email]; exists {
		return store.ErrEmailExists
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrDuplicate
	}

	stored := *user
	s.users[user.ID] = &userEntry{user: &stored}
	s.emailIndex[email] = user.ID
	return nil
}

// GetByID implements store.UserStore.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	user := *entry.user
	return &user, nil
}

// GetByEmail implements store.UserStore.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	id, ok := s.emailIndex[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

// MutateProgress implements store.UserStore. fn runs against a working
// copy under the user's lock; the copy replaces the stored user only if fn
// succeeds and the result still validates.
func (s *UserStore) MutateProgress(ctx context.Context, id uuid.UUID, fn func(*domain.User) error) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := *entry.user
	if err := fn(&working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	entry.user = &working
	result := working
	return &result, nil
}

// WithTx implements store.UserStore. The in-memory store has no
// transactional semantics, so the same store is returned.
func (s *UserStore) WithTx(_ *sql.Tx) store.UserStore {
	return s
}

func (s *UserStore) entry(id uuid.UUID) (*userEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return entry, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ensure UserStore implements store.UserStore.
var _ store.UserStore = (*UserStore)(nil)
