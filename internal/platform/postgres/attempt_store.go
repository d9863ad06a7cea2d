package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/platform/logger"
	"github.com/mathquest/mathquest-api/internal/store"
)

// PostgresAttemptStore implements the store.AttemptStore interface using
// a PostgreSQL database as the storage backend.
type PostgresAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttemptStore creates a new PostgreSQL implementation of the
// AttemptStore interface. If logger is nil, a default logger is used.
func NewPostgresAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

// Ensure PostgresAttemptStore implements store.AttemptStore interface
var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

const attemptColumns = `id, session_id, student_id, grade, category, adaptive, total_count, correct_count, score, xp_earned, combo_max, final_difficulty, started_at, completed_at`

// Save implements store.AttemptStore.Save.
func (s *PostgresAttemptStore) Save(ctx context.Context, record *store.AttemptRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.SessionID,
		record.StudentID,
		record.Grade,
		record.Category,
		record.Adaptive,
		record.TotalCount,
		record.CorrectCount,
		record.Score,
		record.XPEarned,
		record.ComboMax,
		record.FinalDifficulty,
		record.StartedAt,
		record.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("attempt already archived",
				slog.String("session_id", record.SessionID.String()))
			return store.ErrDuplicate
		}
		log.Error("failed to save attempt record",
			slog.String("error", err.Error()),
			slog.String("session_id", record.SessionID.String()))
		return MapError(err)
	}

	log.Debug("attempt record saved",
		slog.String("session_id", record.SessionID.String()),
		slog.String("student_id", record.StudentID.String()))
	return nil
}

// ListByStudent implements store.AttemptStore.ListByStudent.
func (s *PostgresAttemptStore) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]store.AttemptRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []store.AttemptRecord{}, nil
	}

	query := `
		SELECT ` + attemptColumns + `
		FROM attempts
		WHERE student_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, studentID, limit)
	if err != nil {
		log.Error("failed to query attempt records",
			slog.String("error", err.Error()),
			slog.String("student_id", studentID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]store.AttemptRecord, 0, limit)
	for rows.Next() {
		var r store.AttemptRecord
		if err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&r.StudentID,
			&r.Grade,
			&r.Category,
			&r.Adaptive,
			&r.TotalCount,
			&r.CorrectCount,
			&r.Score,
			&r.XPEarned,
			&r.ComboMax,
			&r.FinalDifficulty,
			&r.StartedAt,
			&r.CompletedAt,
		); err != nil {
			log.Error("failed to scan attempt row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return records, nil
}

// WithTx implements store.AttemptStore.WithTx.
func (s *PostgresAttemptStore) WithTx(tx *sql.Tx) store.AttemptStore {
	return &PostgresAttemptStore{
		db:     tx,
		logger: s.logger,
	}
}
