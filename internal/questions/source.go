// Package questions supplies question content for quiz sessions. Two
// sources are provided: a deterministic built-in bank and a Gemini-backed
// generator for grades or difficulties the bank does not cover.
package questions

import (
	"context"
	"errors"

	"github.com/mathquest/mathquest-api/internal/domain"
)

// Common errors
var (
	// ErrNoContent is returned when a source has no question for the
	// requested (grade, category, difficulty) tuple.
	ErrNoContent = errors.New("no questions available for the requested grade, category, and difficulty")

	// ErrInvalidRequest is returned when the requested tuple is out of range.
	ErrInvalidRequest = errors.New("invalid question request")
)

// Source supplies question content for a (grade, category, difficulty)
// tuple. Implementations may be remote; callers must not invoke a Source
// while holding a session lock.
type Source interface {
	// Generate returns one question for the tuple.
	// Returns ErrNoContent if the source is exhausted for the tuple.
	Generate(ctx context.Context, grade int, category domain.Category, difficulty int) (*domain.Question, error)

	// GenerateBatch returns up to count questions for the tuple. The
	// result may be shorter than count; an empty result means the source
	// is exhausted for the tuple.
	GenerateBatch(ctx context.Context, grade int, category domain.Category, difficulty int, count int) ([]domain.Question, error)

	// ListAvailableDifficulties returns the difficulties, in ascending
	// order, for which questions exist for the grade and category.
	ListAvailableDifficulties(ctx context.Context, grade int, category domain.Category) ([]int, error)

	// ListSupportedGrades returns the grades this source can serve, in
	// ascending order.
	ListSupportedGrades(ctx context.Context) ([]int, error)
}
