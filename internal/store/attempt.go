package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
)

// AttemptRecord is the durable summary of one completed session, written
// exactly once at completion time.
type AttemptRecord struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	StudentID       uuid.UUID
	Grade           int
	Category        domain.Category
	Adaptive        bool
	TotalCount      int
	CorrectCount    int
	Score           int
	XPEarned        int
	ComboMax        int
	FinalDifficulty int
	StartedAt       time.Time
	CompletedAt     time.Time
}

// AttemptStore defines the interface for the completed-attempt archive.
type AttemptStore interface {
	// Save persists an attempt record.
	Save(ctx context.Context, record *AttemptRecord) error

	// ListByStudent returns a student's attempt records, most recent
	// first, up to limit entries.
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]AttemptRecord, error)

	// WithTx returns a new AttemptStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AttemptStore
}
