// Package progression implements what happens to a student's persistent
// state when a quiz session completes: XP accumulation, level calculation
// against fixed thresholds, the level-down defense shield, streak updates,
// and mastery detection with grade advancement recommendations.
package progression

// Params defines all configurable parameters for the progression engine
type Params struct {
	// LevelThresholds holds the cumulative XP required for each level,
	// indexed by level-1. Level 1 requires 0 XP.
	LevelThresholds []int

	// RestoreAccuracy is the session accuracy at or above which one
	// defense shield is restored.
	RestoreAccuracy float64

	// DemoteAccuracy is the session accuracy below which a level-down is
	// considered.
	DemoteAccuracy float64

	// DemoteGap is the minimum shortfall of final difficulty below the
	// student's level for a level-down to be considered.
	DemoteGap int

	// MaxShields caps the defense shield counter and is the value shields
	// reset to after a level-down lands.
	MaxShields int

	// MasteryDifficulty and MasteryAccuracy are the thresholds an adaptive
	// session must reach for mastery.
	MasteryDifficulty int
	MasteryAccuracy   float64

	// GradeProgression maps a grade to the grade recommended after
	// mastery. Grades absent from the map have no successor.
	GradeProgression map[int]int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		LevelThresholds: []int{0, 100, 250, 450, 700, 1000, 1350, 1750, 2200, 2700},

		RestoreAccuracy: 0.6,
		DemoteAccuracy:  0.3,
		DemoteGap:       2,
		MaxShields:      3,

		MasteryDifficulty: 9,
		MasteryAccuracy:   0.7,

		GradeProgression: map[int]int{
			1: 2,
			2: 3,
			3: 4,
			4: 5,
			5: 6,
		},
	}
}

// MaxLevel returns the highest level the thresholds define.
func (p *Params) MaxLevel() int {
	return len(p.LevelThresholds)
}

// LevelForXP returns the highest level whose cumulative threshold is at or
// below the given XP total, capped at the maximum level.
func (p *Params) LevelForXP(xp int) int {
	level := 1
	for i, threshold := range p.LevelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}
	return level
}
