package progression

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressionUser(level, totalXP, shields int) *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		Email:          "student@example.com",
		HashedPassword: "hashed",
		Grade:          3,
		Level:          level,
		TotalXP:        totalXP,
		ShieldCount:    shields,
	}
}

func TestLevelForXP(t *testing.T) {
	t.Parallel()

	params := NewDefaultParams()

	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{700, 5},
		{2700, 10},
		{999999, 10},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, params.LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestApplyAccumulatesXPAndLevelsUp(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()
	user := progressionUser(1, 80, 3)

	result, err := engine.Apply(user, SessionOutcome{
		Adaptive:        true,
		TotalCount:      5,
		CorrectCount:    4,
		FinalDifficulty: 6,
		XPEarned:        40,
	})
	require.NoError(t, err)

	assert.Equal(t, 120, result.TotalXP)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LevelUp)
	assert.False(t, result.LevelDown)
	assert.Equal(t, ActionNone, result.Action) // shields already full
	assert.Equal(t, 1, result.CurrentStreak)

	assert.Equal(t, 120, user.TotalXP)
	assert.Equal(t, 2, user.Level)
	assert.Equal(t, 1, user.CurrentStreak)
}

func TestApplyRestoresShieldOnHighAccuracy(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()
	user := progressionUser(4, 500, 1)

	result, err := engine.Apply(user, SessionOutcome{
		Adaptive:        true,
		TotalCount:      10,
		CorrectCount:    6, // exactly the 0.6 boundary
		FinalDifficulty: 5,
		XPEarned:        10,
	})
	require.NoError(t, err)

	assert.Equal(t, ActionDefenseRestored, result.Action)
	assert.Equal(t, 2, result.ShieldCount)
	assert.Equal(t, 4, result.Level)
}

func TestApplyConsumesShieldBeforeLevelDown(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()
	user := progressionUser(5, 800, 2)

	result, err := engine.Apply(user, SessionOutcome{
		Adaptive:        true,
		TotalCount:      5,
		CorrectCount:    1, // accuracy 0.2
		FinalDifficulty: 2, // gap 3
		XPEarned:        0,
	})
	require.NoError(t, err)

	assert.Equal(t, ActionDefenseConsumed, result.Action)
	assert.Equal(t, 1, result.ShieldCount)
	assert.Equal(t, 5, result.Level)
	assert.False(t, result.LevelDown)
}

func TestApplyLevelDownWhenShieldsExhausted(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()
	user := progressionUser(5, 800, 0)

	result, err := engine.Apply(user, SessionOutcome{
		Adaptive:        true,
		TotalCount:      5,
		CorrectCount:    1, // accuracy 0.2
		FinalDifficulty: 2, // gap 3
		XPEarned:        0,
	})
	require.NoError(t, err)

	assert.Equal(t, ActionLevelDown, result.Action)
	assert.True(t, result.LevelDown)
	assert.Equal(t, 4, result.Level)
	assert.Equal(t, 3, result.ShieldCount) // reset after the level lands
	assert.Equal(t, 4, user.Level)
}

func TestApplyLevelDownGuards(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()

	// Level 1 never goes down.
	user := progressionUser(1, 0, 0)
	result, err := engine.Apply(user, SessionOutcome{
		Adaptive: true, TotalCount: 5, CorrectCount: 0, FinalDifficulty: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
	assert.Equal(t, 1, result.Level)

	// Gap below threshold leaves everything alone.
	user = progressionUser(3, 300, 0)
	result, err = engine.Apply(user, SessionOutcome{
		Adaptive: true, TotalCount: 5, CorrectCount: 1, FinalDifficulty: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
	assert.Equal(t, 3, result.Level)

	// Non-adaptive sessions skip shield evaluation entirely.
	user = progressionUser(5, 800, 0)
	result, err = engine.Apply(user, SessionOutcome{
		Adaptive: false, TotalCount: 5, CorrectCount: 0, FinalDifficulty: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
	assert.Equal(t, 5, result.Level)
}

func TestApplyLevelDownSuppressesLevelUp(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()

	// Enough XP to cross the next threshold while simultaneously failing
	// badly enough to trigger a level-down with no shields.
	user := progressionUser(5, 995, 0)
	result, err := engine.Apply(user, SessionOutcome{
		Adaptive:        true,
		TotalCount:      5,
		CorrectCount:    1,
		FinalDifficulty: 2,
		XPEarned:        10, // 1005 would be level 6
	})
	require.NoError(t, err)

	assert.True(t, result.LevelDown)
	assert.False(t, result.LevelUp)
	assert.Equal(t, 4, result.Level)
	assert.Equal(t, 1005, result.TotalXP)
}

func TestApplyStreakIncrementsEveryCompletion(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()
	user := progressionUser(2, 150, 3)

	for i := 1; i <= 3; i++ {
		result, err := engine.Apply(user, SessionOutcome{TotalCount: 1})
		require.NoError(t, err)
		assert.Equal(t, i, result.CurrentStreak)
	}
}

func TestApplyInputValidation(t *testing.T) {
	t.Parallel()

	engine := NewDefaultEngine()

	_, err := engine.Apply(nil, SessionOutcome{})
	assert.ErrorIs(t, err, ErrNilUser)

	_, err = engine.Apply(progressionUser(1, 0, 3), SessionOutcome{XPEarned: -1})
	assert.ErrorIs(t, err, ErrNegativeXPDelta)
}
