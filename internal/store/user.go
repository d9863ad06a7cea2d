package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
)

// UserStore defines the interface for student account persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// It handles domain validation and password hashing internally.
	// Returns ErrEmailExists if the email is already taken.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	// The returned user contains all fields except the plaintext password.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// MutateProgress applies fn to the user's current state and persists
	// the result as one atomic step. Concurrent calls for the same user
	// are serialized so no progression update is lost. If fn returns an
	// error the user is left unchanged and the error is returned.
	// Returns ErrUserNotFound if the user does not exist.
	MutateProgress(ctx context.Context, id uuid.UUID, fn func(*domain.User) error) (*domain.User, error)

	// WithTx returns a new UserStore instance that uses the provided
	// transaction, allowing multiple operations in a single transaction.
	// The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) UserStore
}
