// Package scoring implements the answer scoring rules for quiz sessions:
// correctness, timeout handling, time bonuses, combo multipliers, and the
// XP awarded per answer. It also provides the adaptive difficulty step.
//
// All calculations are pure functions over explicit inputs so the rules can
// be tested exhaustively without sessions or stores.
package scoring

import (
	"github.com/mathquest/mathquest-api/internal/domain"
)

// ComboTier maps a minimum combo count to a base-point multiplier. Tiers
// are evaluated highest threshold first.
type ComboTier struct {
	MinCombo   int
	Multiplier float64
}

// Params defines all configurable parameters for answer scoring
type Params struct {
	// TimeLimitSeconds holds the per-category answer time limit used for
	// the time bonus calculation.
	TimeLimitSeconds map[domain.Category]float64

	// ComboTiers is ordered by descending MinCombo; the first tier whose
	// threshold the current combo meets supplies the multiplier.
	ComboTiers []ComboTier

	// TimeBonusRate scales the question's base points into the maximum
	// achievable time bonus.
	TimeBonusRate float64

	// XPRate converts awarded points into an XP delta.
	XPRate float64
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values fall back to the defaults.
type ParamsConfig struct {
	ComputationTimeLimitSeconds float64
	ConceptTimeLimitSeconds     float64
	ComboTiers                  []ComboTier
	TimeBonusRate               float64
	XPRate                      float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		// The computation track expects quick recall; the concept track
		// allows time for working through word problems.
		TimeLimitSeconds: map[domain.Category]float64{
			domain.CategoryComputation: 20,
			domain.CategoryConcept:     60,
		},

		// x2 from five in a row, x1.5 from three.
		ComboTiers: []ComboTier{
			{MinCombo: 5, Multiplier: 2.0},
			{MinCombo: 3, Multiplier: 1.5},
		},

		TimeBonusRate: 0.5,
		XPRate:        0.5,
	}
}

// NewParams creates a Params instance applying any non-zero overrides from
// the provided config.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.ComputationTimeLimitSeconds > 0 {
		params.TimeLimitSeconds[domain.CategoryComputation] = config.ComputationTimeLimitSeconds
	}
	if config.ConceptTimeLimitSeconds > 0 {
		params.TimeLimitSeconds[domain.CategoryConcept] = config.ConceptTimeLimitSeconds
	}
	if len(config.ComboTiers) > 0 {
		params.ComboTiers = config.ComboTiers
	}
	if config.TimeBonusRate > 0 {
		params.TimeBonusRate = config.TimeBonusRate
	}
	if config.XPRate > 0 {
		params.XPRate = config.XPRate
	}

	return params
}
