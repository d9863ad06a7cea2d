package scoring

import (
	"github.com/mathquest/mathquest-api/internal/domain"
)

// NextDifficulty computes the difficulty for the following question in an
// adaptive session: one step up after a correct answer, one step down after
// an incorrect or timed-out answer, clamped to the permitted range.
func NextDifficulty(current int, correct bool) int {
	next := current
	if correct {
		next++
	} else {
		next--
	}
	if next < domain.MinDifficulty {
		next = domain.MinDifficulty
	}
	if next > domain.MaxDifficulty {
		next = domain.MaxDifficulty
	}
	return next
}
