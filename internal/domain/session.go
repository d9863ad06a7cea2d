package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation and state errors for QuizSession
var (
	ErrEmptySessionStudentID   = errors.New("session student ID cannot be empty")
	ErrInvalidQuestionCount    = errors.New("session question count must be positive")
	ErrSessionCompleted        = errors.New("session is already completed")
	ErrQuestionNotIssued       = errors.New("question was not issued in this session")
	ErrQuestionAlreadyAnswered = errors.New("question has already been answered")
)

// IssuedQuestion holds the canonical answer data retained for a question
// that has been handed to the client as the current question. The session
// keeps this server-side so scoring never trusts client-provided answers.
type IssuedQuestion struct {
	CorrectAnswer string
	Explanation   string
	Points        int
	Difficulty    int
}

// AnswerRecord captures one scored submission within a session.
type AnswerRecord struct {
	Selected         string
	Correct          bool
	TimeSpentSeconds float64
	PointsEarned     int
	TimeBonus        int
	AnsweredAt       time.Time
}

// AnswerScore is the outcome of scoring a single submission. It is computed
// by the scoring package from the canonical question data and applied to the
// session through ApplyAnswer.
type AnswerScore struct {
	Correct      bool
	Timeout      bool
	TimeBonus    int
	PointsEarned int
	XPEarned     int
}

// QuizSession is one student's assessment attempt from start to completion.
// All mutating access must be serialized by the owning store; the entity
// itself enforces the per-answer invariants (no duplicate answers, no
// mutation after completion, answers only for issued questions).
type QuizSession struct {
	ID         uuid.UUID
	StudentID  uuid.UUID
	Grade      int
	Category   Category
	Adaptive   bool
	TotalCount int

	// Difficulty is the level the next question will be requested at.
	// Always within [MinDifficulty, MaxDifficulty].
	Difficulty int

	Combo        int
	ComboMax     int
	CorrectCount int
	Score        int
	XPEarned     int

	// Issued maps every question id handed out as "current" to its
	// canonical answer data. Answered is a subset of Issued.
	Issued   map[string]IssuedQuestion
	Answered map[string]AnswerRecord

	// CurrentQuestionID is the id of the most recently issued, not yet
	// answered question, or empty between questions.
	CurrentQuestionID string

	StartedAt   time.Time
	CompletedAt *time.Time
}

// NewQuizSession creates a new session for the given student and validates
// all parameters. The first question is issued separately via Issue.
func NewQuizSession(studentID uuid.UUID, grade int, category Category, totalCount, startingDifficulty int, adaptive bool) (*QuizSession, error) {
	if studentID == uuid.Nil {
		return nil, ErrEmptySessionStudentID
	}
	if grade < MinGrade || grade > MaxGrade {
		return nil, ErrInvalidGrade
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}
	if totalCount <= 0 {
		return nil, ErrInvalidQuestionCount
	}
	if startingDifficulty < MinDifficulty || startingDifficulty > MaxDifficulty {
		return nil, ErrInvalidDifficulty
	}

	return &QuizSession{
		ID:         uuid.New(),
		StudentID:  studentID,
		Grade:      grade,
		Category:   category,
		Adaptive:   adaptive,
		TotalCount: totalCount,
		Difficulty: startingDifficulty,
		Issued:     make(map[string]IssuedQuestion),
		Answered:   make(map[string]AnswerRecord),
		StartedAt:  time.Now().UTC(),
	}, nil
}

// IsCompleted reports whether the session has reached its terminal state.
func (s *QuizSession) IsCompleted() bool {
	return s.CompletedAt != nil
}

// Remaining returns how many questions are still unanswered.
func (s *QuizSession) Remaining() int {
	return s.TotalCount - len(s.Answered)
}

// Accuracy returns the fraction of answered questions that were correct.
// It is computed against the session's total count, matching the completion
// rules: unanswered questions count against accuracy.
func (s *QuizSession) Accuracy() float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.TotalCount)
}

// Issue records a question as handed out to the client as the current
// question. Returns ErrSessionCompleted if the session is terminal.
func (s *QuizSession) Issue(q Question) error {
	if s.IsCompleted() {
		return ErrSessionCompleted
	}
	s.Issued[q.ID] = IssuedQuestion{
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Points:        q.Points,
		Difficulty:    q.Difficulty,
	}
	s.CurrentQuestionID = q.ID
	return nil
}

// IssuedQuestion returns the canonical data for an issued question id.
// The second return value reports whether the question was ever issued.
func (s *QuizSession) IssuedQuestionByID(questionID string) (IssuedQuestion, bool) {
	q, ok := s.Issued[questionID]
	return q, ok
}

// CanAnswer checks whether a submission for the given question id is
// currently permitted, without mutating any state.
func (s *QuizSession) CanAnswer(questionID string) error {
	if s.IsCompleted() {
		return ErrSessionCompleted
	}
	if _, ok := s.Issued[questionID]; !ok {
		return ErrQuestionNotIssued
	}
	if _, ok := s.Answered[questionID]; ok {
		return ErrQuestionAlreadyAnswered
	}
	return nil
}

// ApplyAnswer records the scored submission for an issued question and
// updates combo, score, and XP accumulators. The caller must have computed
// score from the canonical question data.
//
// All failure paths leave the session unchanged.
func (s *QuizSession) ApplyAnswer(questionID, selected string, timeSpentSeconds float64, score AnswerScore) error {
	if err := s.CanAnswer(questionID); err != nil {
		return err
	}

	if score.Correct {
		s.Combo++
		s.CorrectCount++
		if s.Combo > s.ComboMax {
			s.ComboMax = s.Combo
		}
	} else {
		s.Combo = 0
	}

	s.Score += score.PointsEarned
	s.XPEarned += score.XPEarned

	s.Answered[questionID] = AnswerRecord{
		Selected:         selected,
		Correct:          score.Correct,
		TimeSpentSeconds: timeSpentSeconds,
		PointsEarned:     score.PointsEarned,
		TimeBonus:        score.TimeBonus,
		AnsweredAt:       time.Now().UTC(),
	}
	if s.CurrentQuestionID == questionID {
		s.CurrentQuestionID = ""
	}
	return nil
}

// SetDifficulty moves the session to a new difficulty, clamped to the
// permitted range. Used by the adaptive difficulty step after each answer.
func (s *QuizSession) SetDifficulty(difficulty int) {
	if difficulty < MinDifficulty {
		difficulty = MinDifficulty
	}
	if difficulty > MaxDifficulty {
		difficulty = MaxDifficulty
	}
	s.Difficulty = difficulty
}

// Complete stamps the completion time. Returns ErrSessionCompleted if the
// session was already finalized, guaranteeing the timestamp is set at most
// once.
func (s *QuizSession) Complete(now time.Time) error {
	if s.IsCompleted() {
		return ErrSessionCompleted
	}
	completed := now.UTC()
	s.CompletedAt = &completed
	return nil
}

// Clone returns a deep copy of the session. Stores hand out clones so that
// readers never observe a session mutating under them.
func (s *QuizSession) Clone() *QuizSession {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Issued = make(map[string]IssuedQuestion, len(s.Issued))
	for k, v := range s.Issued {
		clone.Issued[k] = v
	}
	clone.Answered = make(map[string]AnswerRecord, len(s.Answered))
	for k, v := range s.Answered {
		clone.Answered[k] = v
	}
	if s.CompletedAt != nil {
		completedAt := *s.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}
