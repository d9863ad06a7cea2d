// Package api provides HTTP handlers and request/response models for
// the quiz engine's REST surface.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/service/quiz"
)

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	Grade    int    `json:"grade"    validate:"required,gte=1,lte=6"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the payload for refreshing an access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned after successful registration, login, or
// token refresh.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       uuid.UUID `json:"user_id"`
}

// StartSessionRequest is the payload for starting a quiz session.
type StartSessionRequest struct {
	Grade              int    `json:"grade"               validate:"required,gte=1,lte=6"`
	Category           string `json:"category"            validate:"required,oneof=computation concept"`
	Count              int    `json:"count"               validate:"omitempty,gte=1,lte=50"`
	StartingDifficulty int    `json:"starting_difficulty" validate:"omitempty,gte=1,lte=10"`
	Adaptive           bool   `json:"adaptive"`
}

// StartSessionResponse is returned when a session is created.
type StartSessionResponse struct {
	SessionID     uuid.UUID          `json:"session_id"`
	FirstQuestion *quiz.QuestionView `json:"first_question"`
	StartedAt     time.Time          `json:"started_at"`
}

// SubmitAnswerRequest is the payload for answering the current question.
// An empty selected_answer records a timeout.
type SubmitAnswerRequest struct {
	QuestionID       string  `json:"question_id"        validate:"required"`
	SelectedAnswer   string  `json:"selected_answer"`
	TimeSpentSeconds float64 `json:"time_spent_seconds" validate:"gte=0"`
}

// SubmitAnswerResponse reports the scoring outcome of one answer.
type SubmitAnswerResponse struct {
	IsCorrect          bool   `json:"is_correct"`
	CorrectAnswer      string `json:"correct_answer"`
	Explanation        string `json:"explanation,omitempty"`
	PointsEarned       int    `json:"points_earned"`
	TimeBonus          int    `json:"time_bonus"`
	ComboCount         int    `json:"combo_count"`
	XPEarned           int    `json:"xp_earned"`
	CurrentScore       int    `json:"current_score"`
	QuestionsRemaining int    `json:"questions_remaining"`
	NextDifficulty     *int   `json:"next_difficulty,omitempty"`
}

// NextQuestionResponse carries the next question, or the completion
// signal when the session has no more questions to serve.
type NextQuestionResponse struct {
	Question           *quiz.QuestionView `json:"question"`
	CurrentDifficulty  int                `json:"current_difficulty"`
	QuestionsAnswered  int                `json:"questions_answered"`
	QuestionsRemaining int                `json:"questions_remaining"`
	IsComplete         bool               `json:"is_complete"`
}

// AttemptSummaryResponse is the rollup of a finished session.
type AttemptSummaryResponse struct {
	SessionID       uuid.UUID `json:"session_id"`
	Grade           int       `json:"grade"`
	Category        string    `json:"category"`
	Adaptive        bool      `json:"adaptive"`
	TotalCount      int       `json:"total_count"`
	CorrectCount    int       `json:"correct_count"`
	Score           int       `json:"score"`
	ComboMax        int       `json:"combo_max"`
	FinalDifficulty int       `json:"final_difficulty"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// CompleteSessionResponse reports the full outcome of finalizing a
// session, including the student's updated progression.
type CompleteSessionResponse struct {
	AttemptSummary   AttemptSummaryResponse `json:"attempt_summary"`
	LevelUp          bool                   `json:"level_up"`
	LevelDown        bool                   `json:"level_down"`
	NewLevel         int                    `json:"new_level"`
	XPEarned         int                    `json:"xp_earned"`
	TotalXP          int                    `json:"total_xp"`
	CurrentStreak    int                    `json:"current_streak"`
	LevelDownDefense int                    `json:"level_down_defense"`
	LevelDownAction  string                 `json:"level_down_action"`
	MasteryAchieved  bool                   `json:"mastery_achieved"`
}

// ProgressResponse reports a student's aggregate progression and recent
// attempt history.
type ProgressResponse struct {
	UserID        uuid.UUID                `json:"user_id"`
	Grade         int                      `json:"grade"`
	Level         int                      `json:"level"`
	TotalXP       int                      `json:"total_xp"`
	CurrentStreak int                      `json:"current_streak"`
	ShieldCount   int                      `json:"shield_count"`
	Attempts      []AttemptSummaryResponse `json:"attempts"`
}

func newAttemptSummaryResponse(s quiz.AttemptSummary) AttemptSummaryResponse {
	return AttemptSummaryResponse{
		SessionID:       s.SessionID,
		Grade:           s.Grade,
		Category:        string(s.Category),
		Adaptive:        s.Adaptive,
		TotalCount:      s.TotalCount,
		CorrectCount:    s.CorrectCount,
		Score:           s.Score,
		ComboMax:        s.ComboMax,
		FinalDifficulty: s.FinalDifficulty,
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
	}
}
