package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/domain/progression"
	"github.com/mathquest/mathquest-api/internal/domain/scoring"
	"github.com/mathquest/mathquest-api/internal/events"
	"github.com/mathquest/mathquest-api/internal/questions"
	"github.com/mathquest/mathquest-api/internal/store"
)

// maxIssueAttempts bounds how many times Next asks the source for a
// question before concluding no unseen content remains. It exceeds the
// largest allowed session so a run of already-answered questions in the
// source's serving order cannot starve a live session.
const maxIssueAttempts = 64

// Config bounds session creation.
type Config struct {
	// MaxQuestionCount caps the number of questions in one session.
	MaxQuestionCount int

	// DefaultQuestionCount is used when a start request omits the count.
	DefaultQuestionCount int
}

// quizService is the standard implementation of the QuizService interface.
type quizService struct {
	sessionStore store.SessionStore
	userStore    store.UserStore
	attemptStore store.AttemptStore // may be nil when archiving is disabled
	source       questions.Source
	policy       scoring.Policy
	engine       progression.Engine
	detector     progression.Detector
	emitter      events.EventEmitter
	logger       *slog.Logger
	config       Config

	// rng drives option shuffling; guarded by rngMu since rand.Rand is
	// not safe for concurrent use.
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewQuizService creates a new QuizService with the given dependencies.
// The attempt store may be nil; every other dependency is required.
func NewQuizService(
	sessionStore store.SessionStore,
	userStore store.UserStore,
	attemptStore store.AttemptStore,
	source questions.Source,
	policy scoring.Policy,
	engine progression.Engine,
	detector progression.Detector,
	emitter events.EventEmitter,
	logger *slog.Logger,
	cfg Config,
) QuizService {
	if sessionStore == nil {
		panic("sessionStore cannot be nil")
	}
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if source == nil {
		panic("source cannot be nil")
	}
	if policy == nil {
		panic("policy cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if detector == nil {
		panic("detector cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.MaxQuestionCount <= 0 {
		cfg.MaxQuestionCount = 50
	}
	if cfg.DefaultQuestionCount <= 0 {
		cfg.DefaultQuestionCount = 10
	}

	return &quizService{
		sessionStore: sessionStore,
		userStore:    userStore,
		attemptStore: attemptStore,
		source:       source,
		policy:       policy,
		engine:       engine,
		detector:     detector,
		emitter:      emitter,
		logger:       logger.With(slog.String("component", "quiz_service")),
		config:       cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start implements QuizService.
func (s *quizService) Start(ctx context.Context, studentID uuid.UUID, params StartParams) (*StartResult, error) {
	log := s.logger.With(slog.String("student_id", studentID.String()))

	if params.Count == 0 {
		params.Count = s.config.DefaultQuestionCount
	}
	if params.Count < 0 || params.Count > s.config.MaxQuestionCount {
		return nil, fmt.Errorf("%w: question count must be between 1 and %d",
			ErrInvalidRequest, s.config.MaxQuestionCount)
	}

	session, err := domain.NewQuizSession(
		studentID,
		params.Grade,
		params.Category,
		params.Count,
		params.StartingDifficulty,
		params.Adaptive,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// The source may be remote; call it before the session exists so no
	// lock is held during the lookup.
	question, err := s.source.Generate(ctx, params.Grade, params.Category, params.StartingDifficulty)
	if err != nil {
		if errors.Is(err, questions.ErrNoContent) {
			return nil, ErrNoContentAvailable
		}
		if errors.Is(err, questions.ErrInvalidRequest) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		log.ErrorContext(ctx, "question source failed at session start", "error", err)
		return nil, NewServiceError("start", "failed to fetch first question", err)
	}

	if err := session.Issue(*question); err != nil {
		return nil, NewServiceError("start", "failed to issue first question", err)
	}
	if err := s.sessionStore.Create(ctx, session); err != nil {
		log.ErrorContext(ctx, "failed to persist new session", "error", err)
		return nil, NewServiceError("start", "failed to save session", err)
	}

	log.InfoContext(ctx, "session started",
		"session_id", session.ID,
		"grade", params.Grade,
		"category", params.Category,
		"count", params.Count,
		"adaptive", params.Adaptive)

	return &StartResult{
		SessionID:     session.ID,
		FirstQuestion: s.viewOf(question, session.Category),
		StartedAt:     session.StartedAt,
	}, nil
}

// SubmitAnswer implements QuizService.
func (s *quizService) SubmitAnswer(ctx context.Context, studentID, sessionID uuid.UUID, params SubmitParams) (*SubmitResult, error) {
	if params.QuestionID == "" {
		return nil, fmt.Errorf("%w: question_id is required", ErrInvalidRequest)
	}
	if params.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: time_spent_seconds cannot be negative", ErrInvalidRequest)
	}

	var (
		issued domain.IssuedQuestion
		score  domain.AnswerScore
	)

	updated, err := s.sessionStore.Mutate(ctx, sessionID, func(session *domain.QuizSession) error {
		if session.StudentID != studentID {
			return ErrSessionNotOwned
		}
		if err := session.CanAnswer(params.QuestionID); err != nil {
			return err
		}

		var ok bool
		issued, ok = session.IssuedQuestionByID(params.QuestionID)
		if !ok {
			return domain.ErrQuestionNotIssued
		}

		var evalErr error
		score, evalErr = s.policy.Evaluate(scoring.Submission{
			Category:         session.Category,
			Points:           issued.Points,
			CorrectAnswer:    issued.CorrectAnswer,
			Selected:         params.SelectedAnswer,
			TimeSpentSeconds: params.TimeSpentSeconds,
			ComboBefore:      session.Combo,
		})
		if evalErr != nil {
			return NewServiceError("submit_answer", "scoring failed", evalErr)
		}

		if err := session.ApplyAnswer(params.QuestionID, params.SelectedAnswer, params.TimeSpentSeconds, score); err != nil {
			return err
		}
		if session.Adaptive {
			session.SetDifficulty(scoring.NextDifficulty(session.Difficulty, score.Correct))
		}
		return nil
	})
	if err != nil {
		return nil, s.mapSessionError("submit_answer", err)
	}

	result := &SubmitResult{
		IsCorrect:          score.Correct,
		CorrectAnswer:      issued.CorrectAnswer,
		Explanation:        issued.Explanation,
		PointsEarned:       score.PointsEarned,
		TimeBonus:          score.TimeBonus,
		ComboCount:         updated.Combo,
		XPEarned:           score.XPEarned,
		CurrentScore:       updated.Score,
		QuestionsRemaining: updated.Remaining(),
	}
	if updated.Adaptive {
		difficulty := updated.Difficulty
		result.NextDifficulty = &difficulty
	}
	return result, nil
}

// Next implements QuizService.
func (s *quizService) Next(ctx context.Context, studentID, sessionID uuid.UUID) (*NextResult, error) {
	snapshot, err := s.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, s.mapSessionError("next", err)
	}
	if snapshot.StudentID != studentID {
		return nil, ErrSessionNotOwned
	}

	if snapshot.IsCompleted() || snapshot.Remaining() <= 0 {
		return s.completionSignal(snapshot), nil
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		// Source lookup happens outside the session lock.
		question, err := s.source.Generate(ctx, snapshot.Grade, snapshot.Category, snapshot.Difficulty)
		if err != nil {
			if errors.Is(err, questions.ErrNoContent) {
				// An exhausted source is a graceful early finish, not a failure.
				s.logger.InfoContext(ctx, "question source exhausted, signaling completion",
					"session_id", sessionID,
					"difficulty", snapshot.Difficulty)
				return s.completionSignal(snapshot), nil
			}
			return nil, NewServiceError("next", "failed to fetch question", err)
		}
		if _, seen := snapshot.Answered[question.ID]; seen {
			continue
		}

		updated, err := s.sessionStore.Mutate(ctx, sessionID, func(session *domain.QuizSession) error {
			if session.StudentID != studentID {
				return ErrSessionNotOwned
			}
			if session.Remaining() <= 0 {
				return domain.ErrSessionCompleted
			}
			if _, seen := session.Answered[question.ID]; seen {
				return domain.ErrQuestionAlreadyAnswered
			}
			return session.Issue(*question)
		})
		if err != nil {
			// The session answered this id between the snapshot and the
			// issue; pull a fresh question instead.
			if errors.Is(err, domain.ErrQuestionAlreadyAnswered) {
				continue
			}
			// A concurrent writer finished the session between the snapshot
			// and the issue; report completion rather than failing.
			if errors.Is(err, domain.ErrSessionCompleted) {
				current, getErr := s.sessionStore.Get(ctx, sessionID)
				if getErr == nil {
					return s.completionSignal(current), nil
				}
			}
			return nil, s.mapSessionError("next", err)
		}

		return &NextResult{
			Question:           s.viewOf(question, updated.Category),
			CurrentDifficulty:  updated.Difficulty,
			QuestionsAnswered:  len(updated.Answered),
			QuestionsRemaining: updated.Remaining(),
		}, nil
	}

	// The source kept serving questions the session already answered, so
	// there is no fresh content left at this difficulty.
	s.logger.InfoContext(ctx, "no unseen questions available, signaling completion",
		"session_id", sessionID,
		"difficulty", snapshot.Difficulty)
	return s.completionSignal(snapshot), nil
}

// Complete implements QuizService.
func (s *quizService) Complete(ctx context.Context, studentID, sessionID uuid.UUID) (*CompleteResult, error) {
	log := s.logger.With(
		slog.String("student_id", studentID.String()),
		slog.String("session_id", sessionID.String()))

	// Confirm the student account before finalizing: once the session is
	// stamped completed it cannot be completed again, so a doomed
	// progression update must fail first.
	if _, err := s.userStore.GetByID(ctx, studentID); err != nil {
		return nil, s.mapSessionError("complete", err)
	}

	finalized, err := s.sessionStore.Mutate(ctx, sessionID, func(session *domain.QuizSession) error {
		if session.StudentID != studentID {
			return ErrSessionNotOwned
		}
		return session.Complete(time.Now())
	})
	if err != nil {
		return nil, s.mapSessionError("complete", err)
	}

	outcome := progression.SessionOutcome{
		Adaptive:        finalized.Adaptive,
		TotalCount:      finalized.TotalCount,
		CorrectCount:    finalized.CorrectCount,
		FinalDifficulty: finalized.Difficulty,
		XPEarned:        finalized.XPEarned,
	}

	var (
		progress progression.Result
		grade    int
		email    string
	)
	user, err := s.userStore.MutateProgress(ctx, studentID, func(u *domain.User) error {
		grade = u.Grade
		email = u.Email
		var applyErr error
		progress, applyErr = s.engine.Apply(u, outcome)
		return applyErr
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to apply progression", "error", err)
		return nil, NewServiceError("complete", "failed to update student progression", err)
	}

	mastery := s.detector.Detect(grade, outcome)
	if mastery.Achieved && mastery.HasNextGrade {
		s.emitMastery(ctx, user.ID, email, grade, mastery.RecommendedGrade)
	}

	s.archiveAttempt(ctx, finalized)

	log.InfoContext(ctx, "session completed",
		"score", finalized.Score,
		"correct", finalized.CorrectCount,
		"total", finalized.TotalCount,
		"xp_earned", finalized.XPEarned,
		"new_level", progress.Level,
		"level_down_action", string(progress.Action),
		"mastery", mastery.Achieved)

	return &CompleteResult{
		Summary: AttemptSummary{
			SessionID:       finalized.ID,
			Grade:           finalized.Grade,
			Category:        finalized.Category,
			Adaptive:        finalized.Adaptive,
			TotalCount:      finalized.TotalCount,
			CorrectCount:    finalized.CorrectCount,
			Score:           finalized.Score,
			ComboMax:        finalized.ComboMax,
			FinalDifficulty: finalized.Difficulty,
			StartedAt:       finalized.StartedAt,
			CompletedAt:     *finalized.CompletedAt,
		},
		LevelUp:          progress.LevelUp,
		LevelDown:        progress.LevelDown,
		NewLevel:         progress.Level,
		XPEarned:         finalized.XPEarned,
		TotalXP:          progress.TotalXP,
		CurrentStreak:    progress.CurrentStreak,
		LevelDownDefense: progress.ShieldCount,
		LevelDownAction:  string(progress.Action),
		MasteryAchieved:  mastery.Achieved,
	}, nil
}

// emitMastery publishes a mastery event. Emission failures are logged and
// swallowed; the completion result is already committed.
func (s *quizService) emitMastery(ctx context.Context, studentID uuid.UUID, email string, grade, nextGrade int) {
	event, err := events.NewStudentEvent(events.TypeMasteryAchieved, studentID, events.MasteryPayload{
		StudentName:      email,
		CurrentGrade:     grade,
		RecommendedGrade: nextGrade,
		Message: fmt.Sprintf(
			"Mastered grade %d material; ready to try grade %d.", grade, nextGrade),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build mastery event", "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit mastery event",
			"error", err, "event_id", event.ID)
	}
}

// archiveAttempt writes the completed session to the durable archive when
// one is configured. Archive failures are logged, not surfaced.
func (s *quizService) archiveAttempt(ctx context.Context, session *domain.QuizSession) {
	if s.attemptStore == nil {
		return
	}
	record := &store.AttemptRecord{
		ID:              uuid.New(),
		SessionID:       session.ID,
		StudentID:       session.StudentID,
		Grade:           session.Grade,
		Category:        session.Category,
		Adaptive:        session.Adaptive,
		TotalCount:      session.TotalCount,
		CorrectCount:    session.CorrectCount,
		Score:           session.Score,
		XPEarned:        session.XPEarned,
		ComboMax:        session.ComboMax,
		FinalDifficulty: session.Difficulty,
		StartedAt:       session.StartedAt,
		CompletedAt:     *session.CompletedAt,
	}
	if err := s.attemptStore.Save(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to archive attempt",
			"error", err, "session_id", session.ID)
	}
}

// completionSignal builds the NextResult for a session with nothing left
// to serve.
func (s *quizService) completionSignal(session *domain.QuizSession) *NextResult {
	return &NextResult{
		CurrentDifficulty:  session.Difficulty,
		QuestionsAnswered:  len(session.Answered),
		QuestionsRemaining: session.Remaining(),
		IsComplete:         true,
	}
}

// viewOf converts a question into its client-facing shape with shuffled
// answer options.
func (s *quizService) viewOf(q *domain.Question, category domain.Category) *QuestionView {
	view := &QuestionView{
		ID:           q.ID,
		Content:      q.Content,
		Points:       q.Points,
		Difficulty:   q.Difficulty,
		Category:     category,
		QuestionType: q.QuestionType,
	}
	if len(q.Options) > 0 {
		s.rngMu.Lock()
		view.Options = questions.ShuffleOptions(q.Options, s.rng)
		s.rngMu.Unlock()
	}
	return view
}

// mapSessionError translates store and domain errors into the service's
// error taxonomy.
func (s *quizService) mapSessionError(operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, ErrSessionNotOwned):
		return ErrSessionNotOwned
	case errors.Is(err, domain.ErrQuestionNotIssued):
		return ErrQuestionNotFound
	case errors.Is(err, domain.ErrQuestionAlreadyAnswered):
		return ErrAlreadyAnswered
	case errors.Is(err, domain.ErrSessionCompleted):
		return ErrAlreadyCompleted
	case errors.Is(err, store.ErrUserNotFound):
		return ErrSessionNotFound
	default:
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			return err
		}
		return NewServiceError(operation, "session operation failed", err)
	}
}

// Ensure quizService implements QuizService.
var _ QuizService = (*quizService)(nil)
