package quiz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/domain/progression"
	"github.com/mathquest/mathquest-api/internal/domain/scoring"
	"github.com/mathquest/mathquest-api/internal/events"
	"github.com/mathquest/mathquest-api/internal/questions"
	"github.com/mathquest/mathquest-api/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubSource serves scripted questions and lets tests exhaust content on
// demand.
type stubSource struct {
	mu        sync.Mutex
	exhausted bool
	issued    int
}

func (s *stubSource) Generate(ctx context.Context, grade int, category domain.Category, difficulty int) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exhausted {
		return nil, questions.ErrNoContent
	}
	s.issued++
	answer := fmt.Sprintf("%d", difficulty*2)
	return &domain.Question{
		ID:            fmt.Sprintf("stub-%03d", s.issued),
		Grade:         grade,
		Category:      category,
		Difficulty:    difficulty,
		Content:       fmt.Sprintf("%d + %d = ?", difficulty, difficulty),
		Options:       []string{answer, "1", "2", "3"},
		CorrectAnswer: answer,
		Explanation:   "double it",
		Points:        10,
		QuestionType:  domain.QuestionTypeMultipleChoice,
	}, nil
}

func (s *stubSource) GenerateBatch(ctx context.Context, grade int, category domain.Category, difficulty, count int) ([]domain.Question, error) {
	batch := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		q, err := s.Generate(ctx, grade, category, difficulty)
		if err != nil {
			return nil, err
		}
		batch = append(batch, *q)
	}
	return batch, nil
}

func (s *stubSource) ListAvailableDifficulties(ctx context.Context, grade int, category domain.Category) ([]int, error) {
	return []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nil
}

func (s *stubSource) ListSupportedGrades(ctx context.Context) ([]int, error) {
	return []int{1, 2, 3, 4, 5, 6}, nil
}

func (s *stubSource) exhaust() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exhausted = true
}

type quizFixture struct {
	service  QuizService
	source   *stubSource
	users    *memory.UserStore
	attempts *memory.AttemptStore
	roster   *events.RosterFeed
	student  *domain.User
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source := &stubSource{}
	users := memory.NewUserStore(bcrypt.MinCost)
	attempts := memory.NewAttemptStore()
	roster := events.NewRosterFeed()
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(roster)

	student, err := domain.NewUser("ada@example.com", "averylongpassword", 3)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), student))

	service := NewQuizService(
		memory.NewSessionStore(),
		users,
		attempts,
		source,
		scoring.NewDefaultPolicy(),
		progression.NewDefaultEngine(),
		progression.NewDefaultDetector(),
		emitter,
		logger,
		Config{MaxQuestionCount: 50, DefaultQuestionCount: 10},
	)

	return &quizFixture{
		service:  service,
		source:   source,
		users:    users,
		attempts: attempts,
		roster:   roster,
		student:  student,
	}
}

func (f *quizFixture) start(t *testing.T, params StartParams) *StartResult {
	t.Helper()
	result, err := f.service.Start(context.Background(), f.student.ID, params)
	require.NoError(t, err)
	require.NotNil(t, result.FirstQuestion)
	return result
}

// answer submits the current question with either the canonical answer or
// a wrong one, then advances to the next question unless none remain.
func (f *quizFixture) answer(t *testing.T, sessionID uuid.UUID, question *QuestionView, correct bool, timeSpent float64) (*SubmitResult, *NextResult) {
	t.Helper()
	ctx := context.Background()

	selected := "wrong-answer"
	if correct {
		// The stub's canonical answer is always the doubled difficulty.
		selected = fmt.Sprintf("%d", question.Difficulty*2)
	}

	submit, err := f.service.SubmitAnswer(ctx, f.student.ID, sessionID, SubmitParams{
		QuestionID:       question.ID,
		SelectedAnswer:   selected,
		TimeSpentSeconds: timeSpent,
	})
	require.NoError(t, err)

	next, err := f.service.Next(ctx, f.student.ID, sessionID)
	require.NoError(t, err)
	return submit, next
}

func TestStartCreatesSessionWithFirstQuestion(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	result := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5, Adaptive: true,
	})

	assert.NotEqual(t, uuid.Nil, result.SessionID)
	assert.False(t, result.StartedAt.IsZero())
	assert.Equal(t, 5, result.FirstQuestion.Difficulty)
	assert.Len(t, result.FirstQuestion.Options, 4)
}

func TestStartValidation(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	ctx := context.Background()

	_, err := f.service.Start(ctx, f.student.ID, StartParams{
		Grade: 0, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.service.Start(ctx, f.student.ID, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 51, StartingDifficulty: 5,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.service.Start(ctx, f.student.ID, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestStartWithExhaustedSourceFails(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	f.source.exhaust()

	_, err := f.service.Start(context.Background(), f.student.ID, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5,
	})
	assert.ErrorIs(t, err, ErrNoContentAvailable)
}

func TestSubmitAnswerAtTimeLimitEarnsBasePointsOnly(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5,
	})

	// Exactly at the 20 second computation limit: no time bonus, no tier.
	submit, err := f.service.SubmitAnswer(context.Background(), f.student.ID, started.SessionID, SubmitParams{
		QuestionID:       started.FirstQuestion.ID,
		SelectedAnswer:   "10",
		TimeSpentSeconds: 20,
	})
	require.NoError(t, err)

	assert.True(t, submit.IsCorrect)
	assert.Equal(t, 0, submit.TimeBonus)
	assert.Equal(t, 10, submit.PointsEarned)
	assert.Equal(t, 1, submit.ComboCount)
	assert.Equal(t, 10, submit.CurrentScore)
	assert.Equal(t, 4, submit.QuestionsRemaining)
	assert.Nil(t, submit.NextDifficulty) // non-adaptive session
}

func TestSubmitAnswerComboTierDoublesBasePoints(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 8, StartingDifficulty: 5, Adaptive: true,
	})

	question := started.FirstQuestion
	var submit *SubmitResult
	var next *NextResult
	for i := 0; i < 5; i++ {
		submit, next = f.answer(t, started.SessionID, question, true, 20)
		question = next.Question
	}

	// Fifth correct answer in a row: combo 5, base 10 doubled, no bonus
	// at the limit.
	assert.Equal(t, 5, submit.ComboCount)
	assert.Equal(t, 20, submit.PointsEarned)
	require.NotNil(t, submit.NextDifficulty)
	assert.Equal(t, 10, *submit.NextDifficulty) // 5 correct from difficulty 5
}

func TestSubmitAnswerWrongResetsComboAndLowersDifficulty(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5, Adaptive: true,
	})

	submit, next := f.answer(t, started.SessionID, started.FirstQuestion, false, 5)

	assert.False(t, submit.IsCorrect)
	assert.Equal(t, 0, submit.ComboCount)
	assert.Zero(t, submit.PointsEarned)
	require.NotNil(t, submit.NextDifficulty)
	assert.Equal(t, 4, *submit.NextDifficulty)
	assert.Equal(t, 4, next.Question.Difficulty)
}

func TestSubmitAnswerTimeoutSubmission(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5, Adaptive: true,
	})

	submit, err := f.service.SubmitAnswer(context.Background(), f.student.ID, started.SessionID, SubmitParams{
		QuestionID:       started.FirstQuestion.ID,
		SelectedAnswer:   "",
		TimeSpentSeconds: 0.1,
	})
	require.NoError(t, err)

	assert.False(t, submit.IsCorrect)
	assert.Zero(t, submit.TimeBonus)
	assert.Equal(t, 0, submit.ComboCount)
	require.NotNil(t, submit.NextDifficulty)
	assert.Equal(t, 4, *submit.NextDifficulty)
}

func TestSubmitAnswerIdempotencyGuards(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5, Adaptive: true,
	})
	ctx := context.Background()

	params := SubmitParams{
		QuestionID:       started.FirstQuestion.ID,
		SelectedAnswer:   "10",
		TimeSpentSeconds: 20,
	}
	first, err := f.service.SubmitAnswer(ctx, f.student.ID, started.SessionID, params)
	require.NoError(t, err)
	assert.Equal(t, 10, first.CurrentScore)

	_, err = f.service.SubmitAnswer(ctx, f.student.ID, started.SessionID, params)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	// The duplicate changed nothing: a subsequent next still reflects
	// exactly one answered question.
	next, err := f.service.Next(ctx, f.student.ID, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.QuestionsAnswered)

	_, err = f.service.SubmitAnswer(ctx, f.student.ID, started.SessionID, SubmitParams{
		QuestionID: "never-issued", SelectedAnswer: "1", TimeSpentSeconds: 1,
	})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSubmitAnswerOwnershipEnforced(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5,
	})

	_, err := f.service.SubmitAnswer(context.Background(), uuid.New(), started.SessionID, SubmitParams{
		QuestionID: started.FirstQuestion.ID, SelectedAnswer: "10", TimeSpentSeconds: 5,
	})
	assert.ErrorIs(t, err, ErrSessionNotOwned)
}

func TestNextSignalsCompletionWhenSourceExhausted(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5,
	})
	ctx := context.Background()

	_, err := f.service.SubmitAnswer(ctx, f.student.ID, started.SessionID, SubmitParams{
		QuestionID: started.FirstQuestion.ID, SelectedAnswer: "10", TimeSpentSeconds: 5,
	})
	require.NoError(t, err)

	f.source.exhaust()

	next, err := f.service.Next(ctx, f.student.ID, started.SessionID)
	require.NoError(t, err)
	assert.True(t, next.IsComplete)
	assert.Nil(t, next.Question)
	assert.Equal(t, 1, next.QuestionsAnswered)
}

func TestNextSignalsCompletionWhenAllAnswered(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 2, StartingDifficulty: 5,
	})

	_, next := f.answer(t, started.SessionID, started.FirstQuestion, true, 5)
	require.NotNil(t, next.Question)

	_, next = f.answer(t, started.SessionID, next.Question, true, 5)
	assert.True(t, next.IsComplete)
	assert.Nil(t, next.Question)
	assert.Equal(t, 0, next.QuestionsRemaining)
}

func TestNextNeverRepeatsAnsweredQuestions(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewUserStore(bcrypt.MinCost)
	emitter := events.NewInMemoryEventEmitter(logger)

	student, err := domain.NewUser("grace@example.com", "averylongpassword", 3)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), student))

	service := NewQuizService(
		memory.NewSessionStore(),
		users,
		memory.NewAttemptStore(),
		questions.NewBankSource(),
		scoring.NewDefaultPolicy(),
		progression.NewDefaultEngine(),
		progression.NewDefaultDetector(),
		emitter,
		logger,
		Config{MaxQuestionCount: 50, DefaultQuestionCount: 10},
	)

	ctx := context.Background()
	started, err := service.Start(ctx, student.ID, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 10, StartingDifficulty: 5,
	})
	require.NoError(t, err)

	// A fixed-difficulty session draws every question from one bank pool,
	// so a serving order that revisits answered ids would wedge the
	// session before all ten are answered.
	seen := map[string]bool{started.FirstQuestion.ID: true}
	question := started.FirstQuestion
	for answered := 0; answered < 10; answered++ {
		_, err := service.SubmitAnswer(ctx, student.ID, started.SessionID, SubmitParams{
			QuestionID:       question.ID,
			SelectedAnswer:   question.Options[0],
			TimeSpentSeconds: 5,
		})
		require.NoError(t, err, "answering question %d (%s)", answered+1, question.ID)

		next, err := service.Next(ctx, student.ID, started.SessionID)
		require.NoError(t, err)
		if answered == 9 {
			assert.True(t, next.IsComplete)
			assert.Nil(t, next.Question)
			break
		}
		require.NotNil(t, next.Question, "expected a fresh question after %d answers", answered+1)
		require.False(t, seen[next.Question.ID], "question %s served twice", next.Question.ID)
		seen[next.Question.ID] = true
		question = next.Question
	}
}

func TestCompleteAppliesProgressionExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 2, StartingDifficulty: 5, Adaptive: true,
	})
	ctx := context.Background()

	question := started.FirstQuestion
	var next *NextResult
	for question != nil {
		_, next = f.answer(t, started.SessionID, question, true, 10)
		question = next.Question
	}

	result, err := f.service.Complete(ctx, f.student.ID, started.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.CorrectCount)
	assert.Positive(t, result.XPEarned)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, string(progression.ActionNone), result.LevelDownAction) // shields already full

	// Second complete is rejected and the aggregate is untouched.
	_, err = f.service.Complete(ctx, f.student.ID, started.SessionID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	user, err := f.users.GetByID(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, result.TotalXP, user.TotalXP)
	assert.Equal(t, 1, user.CurrentStreak)

	// The attempt was archived once.
	records, err := f.attempts.ListByStudent(ctx, f.student.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, started.SessionID, records[0].SessionID)
}

func TestCompleteLevelDownWithExhaustedShields(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	ctx := context.Background()

	// Put the student at level 5 with no shields.
	_, err := f.users.MutateProgress(ctx, f.student.ID, func(u *domain.User) error {
		u.Level = 5
		u.TotalXP = 800
		u.ShieldCount = 0
		return nil
	})
	require.NoError(t, err)

	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 5, StartingDifficulty: 5, Adaptive: true,
	})

	// One correct then three wrong: difficulty 5 -> 6 -> 5 -> 4 -> 3,
	// accuracy 1/5 = 0.2, gap 5-2 >= 2 after the final wrong answer.
	question := started.FirstQuestion
	var next *NextResult
	outcomes := []bool{true, false, false, false}
	for _, correct := range outcomes {
		_, next = f.answer(t, started.SessionID, question, correct, 5)
		question = next.Question
	}
	// Final wrong answer brings difficulty to 2; skip fetching another.
	_, err = f.service.SubmitAnswer(ctx, f.student.ID, started.SessionID, SubmitParams{
		QuestionID: question.ID, SelectedAnswer: "wrong", TimeSpentSeconds: 5,
	})
	require.NoError(t, err)

	result, err := f.service.Complete(ctx, f.student.ID, started.SessionID)
	require.NoError(t, err)

	assert.True(t, result.LevelDown)
	assert.False(t, result.LevelUp)
	assert.Equal(t, 4, result.NewLevel)
	assert.Equal(t, string(progression.ActionLevelDown), result.LevelDownAction)
	assert.Equal(t, 3, result.LevelDownDefense) // shields reset
	assert.Equal(t, 2, result.Summary.FinalDifficulty)
}

func TestCompleteMasteryEmitsOneEvent(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	ctx := context.Background()

	started := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 8, StartingDifficulty: 5, Adaptive: true,
	})

	// Difficulty walks 5 -> 9, dips to 8 on the miss, then climbs to 10
	// and settles at 9 after the final miss. Accuracy is 6/8 = 0.75.
	question := started.FirstQuestion
	var next *NextResult
	outcomes := []bool{true, true, true, true, false, true, true, false}
	for _, correct := range outcomes {
		_, next = f.answer(t, started.SessionID, question, correct, 5)
		question = next.Question
	}
	require.True(t, next.IsComplete)
	require.Equal(t, 9, next.CurrentDifficulty)

	result, err := f.service.Complete(ctx, f.student.ID, started.SessionID)
	require.NoError(t, err)

	assert.True(t, result.MasteryAchieved)

	entries := f.roster.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, f.student.ID, entries[0].StudentID)
	assert.Equal(t, 3, entries[0].CurrentGrade)
	assert.Equal(t, 4, entries[0].RecommendedGrade)
}

func TestCompleteUnknownSession(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	_, err := f.service.Complete(context.Background(), f.student.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCompleteUnknownStudentLeavesSessionOpen(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := memory.NewSessionStore()
	emitter := events.NewInMemoryEventEmitter(logger)

	service := NewQuizService(
		sessions,
		memory.NewUserStore(bcrypt.MinCost),
		memory.NewAttemptStore(),
		&stubSource{},
		scoring.NewDefaultPolicy(),
		progression.NewDefaultEngine(),
		progression.NewDefaultDetector(),
		emitter,
		logger,
		Config{MaxQuestionCount: 50, DefaultQuestionCount: 10},
	)

	ctx := context.Background()
	ghost := uuid.New()
	session, err := domain.NewQuizSession(ghost, 3, domain.CategoryComputation, 5, 5, false)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))

	// Completing for a student the store has never seen must fail before
	// the session is stamped, so the session stays open for a retry.
	_, err = service.Complete(ctx, ghost, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	current, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, current.IsCompleted())
	assert.Nil(t, current.CompletedAt)
}

func TestConcurrentCompletionsOfTwoSessions(t *testing.T) {
	t.Parallel()

	f := newQuizFixture(t)
	ctx := context.Background()

	first := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 1, StartingDifficulty: 5,
	})
	second := f.start(t, StartParams{
		Grade: 3, Category: domain.CategoryComputation, Count: 1, StartingDifficulty: 5,
	})

	for _, s := range []*StartResult{first, second} {
		_, err := f.service.SubmitAnswer(ctx, f.student.ID, s.SessionID, SubmitParams{
			QuestionID: s.FirstQuestion.ID, SelectedAnswer: "10", TimeSpentSeconds: 5,
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]*CompleteResult, 2)
	for i, s := range []*StartResult{first, second} {
		wg.Add(1)
		go func(i int, sessionID uuid.UUID) {
			defer wg.Done()
			result, err := f.service.Complete(ctx, f.student.ID, sessionID)
			assert.NoError(t, err)
			results[i] = result
		}(i, s.SessionID)
	}
	wg.Wait()

	// Both completions landed; no XP was lost to the race.
	user, err := f.users.GetByID(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, results[0].XPEarned+results[1].XPEarned, user.TotalXP)
	assert.Equal(t, 2, user.CurrentStreak)
}
