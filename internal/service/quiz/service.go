// Package quiz implements the adaptive test session engine: session
// lifecycle, answer scoring, adaptive difficulty, and the completion
// pipeline that updates student progression and detects mastery.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
)

// StartParams carries a request to begin a new session.
type StartParams struct {
	Grade              int
	Category           domain.Category
	Count              int
	StartingDifficulty int
	Adaptive           bool
}

// SubmitParams carries one answer submission.
type SubmitParams struct {
	QuestionID       string
	SelectedAnswer   string
	TimeSpentSeconds float64
}

// QuestionView is the client-facing shape of a question. The canonical
// answer and explanation are withheld until the question is answered.
type QuestionView struct {
	ID           string              `json:"id"`
	Content      string              `json:"content"`
	Options      []string            `json:"options,omitempty"`
	Points       int                 `json:"points"`
	Difficulty   int                 `json:"difficulty"`
	Category     domain.Category     `json:"category"`
	QuestionType domain.QuestionType `json:"question_type"`
}

// StartResult is returned when a session is created.
type StartResult struct {
	SessionID     uuid.UUID
	FirstQuestion *QuestionView
	StartedAt     time.Time
}

// SubmitResult reports the scoring outcome of one answer.
type SubmitResult struct {
	IsCorrect          bool
	CorrectAnswer      string
	Explanation        string
	PointsEarned       int
	TimeBonus          int
	ComboCount         int
	XPEarned           int
	CurrentScore       int
	QuestionsRemaining int

	// NextDifficulty is set only for adaptive sessions.
	NextDifficulty *int
}

// NextResult carries the next question, or the completion signal when the
// session has no more questions to serve.
type NextResult struct {
	Question           *QuestionView
	CurrentDifficulty  int
	QuestionsAnswered  int
	QuestionsRemaining int
	IsComplete         bool
}

// AttemptSummary is the rollup of a finished session.
type AttemptSummary struct {
	SessionID       uuid.UUID
	Grade           int
	Category        domain.Category
	Adaptive        bool
	TotalCount      int
	CorrectCount    int
	Score           int
	ComboMax        int
	FinalDifficulty int
	StartedAt       time.Time
	CompletedAt     time.Time
}

// CompleteResult reports the full outcome of finalizing a session.
type CompleteResult struct {
	Summary          AttemptSummary
	LevelUp          bool
	LevelDown        bool
	NewLevel         int
	XPEarned         int
	TotalXP          int
	CurrentStreak    int
	LevelDownDefense int
	LevelDownAction  string
	MasteryAchieved  bool
}

// QuizService runs one student's assessment attempt end to end.
type QuizService interface {
	// Start creates a new session and issues its first question.
	//
	// Returns:
	//   - (nil, ErrInvalidRequest): If grade, category, count, or starting
	//     difficulty is out of range
	//   - (nil, ErrNoContentAvailable): If the question source has nothing
	//     for the requested tuple
	Start(ctx context.Context, studentID uuid.UUID, params StartParams) (*StartResult, error)

	// SubmitAnswer scores one answer and updates the session's combo,
	// score, XP, and (for adaptive sessions) difficulty.
	//
	// Returns:
	//   - (nil, ErrSessionNotFound): If the session does not exist
	//   - (nil, ErrSessionNotOwned): If the session belongs to another student
	//   - (nil, ErrQuestionNotFound): If the question was never issued
	//   - (nil, ErrAlreadyAnswered): If the question was already answered;
	//     no session state changes
	//   - (nil, ErrAlreadyCompleted): If the session is finalized
	SubmitAnswer(ctx context.Context, studentID, sessionID uuid.UUID, params SubmitParams) (*SubmitResult, error)

	// Next issues the next question at the session's current difficulty.
	// When no questions remain, or the source has no content for the
	// session's tuple, it returns IsComplete=true with no question rather
	// than an error.
	Next(ctx context.Context, studentID, sessionID uuid.UUID) (*NextResult, error)

	// Complete finalizes the session exactly once, applies the progression
	// engine to the student's aggregate, evaluates mastery, and archives
	// the attempt.
	//
	// Returns:
	//   - (nil, ErrAlreadyCompleted): If the session was already finalized;
	//     the student's aggregate is not touched again
	Complete(ctx context.Context, studentID, sessionID uuid.UUID) (*CompleteResult, error)
}

// Common error types for QuizService
var (
	// ErrSessionNotFound indicates that the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotOwned indicates the session belongs to another student.
	ErrSessionNotOwned = errors.New("unauthorized access: session not owned by student")

	// ErrQuestionNotFound indicates the question was never issued in the session.
	ErrQuestionNotFound = errors.New("question not found in session")

	// ErrAlreadyAnswered indicates the question was already answered.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrAlreadyCompleted indicates the session is already finalized.
	ErrAlreadyCompleted = errors.New("session already completed")

	// ErrInvalidRequest indicates an out-of-range or malformed request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoContentAvailable indicates the question source has nothing for
	// the requested grade, category, and difficulty.
	ErrNoContentAvailable = errors.New("no content available")
)

// ServiceError wraps errors from the quiz service with additional context,
// so consumers can differentiate failure types with errors.As instead of
// string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError with the given context.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
