package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/platform/logger"
	"github.com/mathquest/mathquest-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// PostgresUserStore implements the store.UserStore interface using a
// PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db         store.DBTX
	logger     *slog.Logger
	bcryptCost int
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil,
// a default logger is used. A non-positive bcryptCost falls back to the
// bcrypt default.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger, bcryptCost int) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	return &PostgresUserStore{
		db:         db,
		logger:     logger.With(slog.String("component", "user_store")),
		bcryptCost: bcryptCost,
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

const userColumns = `id, email, hashed_password, grade, level, total_xp, current_streak, shield_count, created_at, updated_at`

// Create implements store.UserStore.Create.
// Returns store.ErrEmailExists if the email is already taken.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if user.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			log.Error("failed to hash password",
				slog.String("error", err.Error()),
				slog.String("user_id", user.ID.String()))
			return store.NewStoreError("user", "create", "failed to hash password", err)
		}
		user.HashedPassword = string(hashed)
		user.Password = ""
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		user.ID,
		strings.ToLower(user.Email),
		user.HashedPassword,
		user.Grade,
		user.Level,
		user.TotalXP,
		user.CurrentStreak,
		user.ShieldCount,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate email during user creation",
				slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.Int("grade", user.Grade))
	return nil
}

// GetByID implements store.UserStore.GetByID.
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(ctx, s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail implements store.UserStore.GetByEmail.
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(ctx, s.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// MutateProgress implements store.UserStore.MutateProgress. The row is
// locked with SELECT FOR UPDATE for the duration of fn, so concurrent
// completions for the same student serialize instead of losing writes.
// When the store is already scoped to a transaction, the caller's
// transaction provides the atomicity.
func (s *PostgresUserStore) MutateProgress(ctx context.Context, id uuid.UUID, fn func(*domain.User) error) (*domain.User, error) {
	if db, ok := s.db.(*sql.DB); ok {
		var updated *domain.User
		err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			var txErr error
			updated, txErr = s.mutateProgressLocked(ctx, tx, id, fn)
			return txErr
		})
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return s.mutateProgressLocked(ctx, s.db, id, fn)
}

func (s *PostgresUserStore) mutateProgressLocked(ctx context.Context, db store.DBTX, id uuid.UUID, fn func(*domain.User) error) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := s.scanUser(ctx, db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := fn(user); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now().UTC()
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	update := `
		UPDATE users
		SET level = $2, total_xp = $3, current_streak = $4, shield_count = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := db.ExecContext(ctx, update,
		user.ID, user.Level, user.TotalXP, user.CurrentStreak, user.ShieldCount, user.UpdatedAt)
	if err != nil {
		log.Error("failed to update user progression",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, store.ErrUserNotFound
	}

	return user, nil
}

// WithTx implements store.UserStore.WithTx.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:         tx,
		logger:     s.logger,
		bcryptCost: s.bcryptCost,
	}
}

func (s *PostgresUserStore) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&user.Grade,
		&user.Level,
		&user.TotalXP,
		&user.CurrentStreak,
		&user.ShieldCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to scan user row", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &user, nil
}
