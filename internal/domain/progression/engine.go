package progression

import (
	"errors"

	"github.com/mathquest/mathquest-api/internal/domain"
)

// Common errors
var (
	ErrNilUser         = errors.New("user cannot be nil")
	ErrNegativeXPDelta = errors.New("session XP cannot be negative")
)

// Action identifies the defense-shield outcome of one completion.
type Action string

const (
	ActionNone            Action = "none"
	ActionDefenseRestored Action = "defense_restored"
	ActionDefenseConsumed Action = "defense_consumed"
	ActionLevelDown       Action = "level_down"
)

// SessionOutcome is the summary of a completed session that drives the
// progression update.
type SessionOutcome struct {
	Adaptive        bool
	TotalCount      int
	CorrectCount    int
	FinalDifficulty int
	XPEarned        int
}

// Accuracy returns the fraction of the session's questions answered
// correctly, with unanswered questions counting as misses.
func (o SessionOutcome) Accuracy() float64 {
	if o.TotalCount <= 0 {
		return 0
	}
	return float64(o.CorrectCount) / float64(o.TotalCount)
}

// Result reports what a completion changed on the user aggregate.
type Result struct {
	TotalXP       int
	Level         int
	LevelUp       bool
	LevelDown     bool
	ShieldCount   int
	Action        Action
	CurrentStreak int
}

// Engine applies completed-session outcomes to a user's progression state.
type Engine interface {
	// Apply computes the user's post-completion progression state. It
	// mutates the passed user in place and returns the same changes as
	// a Result for reporting.
	Apply(user *domain.User, outcome SessionOutcome) (Result, error)
}

// defaultEngine is the standard implementation of the Engine interface
type defaultEngine struct {
	params *Params
}

// NewDefaultEngine creates a progression engine with default parameters
func NewDefaultEngine() Engine {
	return &defaultEngine{params: NewDefaultParams()}
}

// NewEngineWithParams creates a progression engine with custom parameters
func NewEngineWithParams(params *Params) Engine {
	return &defaultEngine{params: params}
}

// Apply implements the Engine interface.
//
// Order of evaluation matters: XP and the threshold level are computed
// first, then the shield rules, and a level-down always overrides a
// level-up earned in the same completion. The streak increments by one on
// every completion without any day-boundary gating.
func (e *defaultEngine) Apply(user *domain.User, outcome SessionOutcome) (Result, error) {
	if user == nil {
		return Result{}, ErrNilUser
	}
	if outcome.XPEarned < 0 {
		return Result{}, ErrNegativeXPDelta
	}

	oldLevel := user.Level
	newTotalXP := user.TotalXP + outcome.XPEarned
	calculatedLevel := e.params.LevelForXP(newTotalXP)
	levelUp := calculatedLevel > oldLevel

	newLevel := calculatedLevel
	if !levelUp {
		newLevel = oldLevel
	}

	shields := user.ShieldCount
	action := ActionNone
	levelDown := false

	if outcome.Adaptive && outcome.TotalCount > 0 {
		accuracy := outcome.Accuracy()
		gap := oldLevel - outcome.FinalDifficulty

		switch {
		case accuracy >= e.params.RestoreAccuracy && shields < e.params.MaxShields:
			shields++
			action = ActionDefenseRestored
		case accuracy < e.params.DemoteAccuracy && gap >= e.params.DemoteGap && oldLevel > 1:
			if shields > 0 {
				shields--
				action = ActionDefenseConsumed
			} else {
				levelDown = true
				action = ActionLevelDown
				newLevel = oldLevel - 1
				if newLevel < 1 {
					newLevel = 1
				}
				shields = e.params.MaxShields
			}
		}
	}

	// A level-down computed in this completion suppresses a reported
	// level-up.
	if levelDown {
		levelUp = false
	}

	user.TotalXP = newTotalXP
	user.Level = newLevel
	user.ShieldCount = shields
	user.CurrentStreak++

	return Result{
		TotalXP:       newTotalXP,
		Level:         newLevel,
		LevelUp:       levelUp,
		LevelDown:     levelDown,
		ShieldCount:   shields,
		Action:        action,
		CurrentStreak: user.CurrentStreak,
	}, nil
}
