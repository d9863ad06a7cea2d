package scoring

import (
	"errors"
	"math"

	"github.com/mathquest/mathquest-api/internal/domain"
)

// Common errors
var (
	ErrInvalidPoints   = errors.New("question points must be positive")
	ErrInvalidCategory = errors.New("invalid question category")
	ErrNegativeCombo   = errors.New("combo before answer cannot be negative")
)

// Submission carries everything needed to score one answer. CorrectAnswer
// comes from the session's canonical question data, never from the client.
type Submission struct {
	Category         domain.Category
	Points           int
	CorrectAnswer    string
	Selected         string
	TimeSpentSeconds float64

	// ComboBefore is the session's combo counter prior to this answer.
	ComboBefore int
}

// Policy scores individual answers.
type Policy interface {
	// Evaluate computes the full scoring outcome for one submission.
	Evaluate(sub Submission) (domain.AnswerScore, error)
}

// defaultPolicy is the standard implementation of the Policy interface
type defaultPolicy struct {
	params *Params
}

// NewDefaultPolicy creates a scoring policy with default parameters
func NewDefaultPolicy() Policy {
	return &defaultPolicy{params: NewDefaultParams()}
}

// NewPolicyWithParams creates a scoring policy with custom parameters
func NewPolicyWithParams(params *Params) Policy {
	return &defaultPolicy{params: params}
}

// Evaluate implements the Policy interface.
//
// Scoring rules:
//   - An empty submission is a timeout: always incorrect and never eligible
//     for a time bonus, otherwise scored like any incorrect answer.
//   - Correctness is strict string equality against the canonical answer.
//   - The combo multiplier applies to the combo as it stands AFTER this
//     answer, so the answer that reaches a tier already benefits from it.
//   - The multiplier scales base points only; the time bonus is added on
//     top unscaled.
//   - XP is derived from the awarded points, rounded down.
func (p *defaultPolicy) Evaluate(sub Submission) (domain.AnswerScore, error) {
	if sub.Points <= 0 {
		return domain.AnswerScore{}, ErrInvalidPoints
	}
	if !sub.Category.IsValid() {
		return domain.AnswerScore{}, ErrInvalidCategory
	}
	if sub.ComboBefore < 0 {
		return domain.AnswerScore{}, ErrNegativeCombo
	}

	timeout := sub.Selected == ""
	correct := !timeout && sub.Selected == sub.CorrectAnswer

	if !correct {
		return domain.AnswerScore{Timeout: timeout}, nil
	}

	comboAfter := sub.ComboBefore + 1
	multiplier := p.multiplierFor(comboAfter)

	timeBonus := p.timeBonus(sub.Category, sub.Points, sub.TimeSpentSeconds)
	awarded := int(math.Floor(float64(sub.Points)*multiplier)) + timeBonus

	return domain.AnswerScore{
		Correct:      true,
		TimeBonus:    timeBonus,
		PointsEarned: awarded,
		XPEarned:     int(math.Floor(float64(awarded) * p.params.XPRate)),
	}, nil
}

// multiplierFor returns the base-point multiplier for the given combo count.
func (p *defaultPolicy) multiplierFor(combo int) float64 {
	for _, tier := range p.params.ComboTiers {
		if combo >= tier.MinCombo {
			return tier.Multiplier
		}
	}
	return 1.0
}

// timeBonus computes the speed reward for a correct answer. The bonus
// decays linearly from the full rate at zero elapsed time to nothing at
// the category's limit.
func (p *defaultPolicy) timeBonus(category domain.Category, points int, elapsed float64) int {
	limit := p.params.TimeLimitSeconds[category]
	if limit <= 0 {
		return 0
	}
	remaining := 1 - elapsed/limit
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Floor(float64(points) * p.params.TimeBonusRate * remaining))
}
