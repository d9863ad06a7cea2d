package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/api/middleware"
	"github.com/mathquest/mathquest-api/internal/api/shared"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/service/quiz"
)

// SessionHandler holds dependencies for quiz session endpoints.
type SessionHandler struct {
	quizService quiz.QuizService
	logger      *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(quizService quiz.QuizService, logger *slog.Logger) *SessionHandler {
	if quizService == nil {
		panic("quizService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionHandler{
		quizService: quizService,
		logger:      logger.With(slog.String("component", "session_handler")),
	}
}

// Start handles POST /api/quiz/sessions.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.quizService.Start(r.Context(), studentID, quiz.StartParams{
		Grade:              req.Grade,
		Category:           domain.Category(req.Category),
		Count:              req.Count,
		StartingDifficulty: req.StartingDifficulty,
		Adaptive:           req.Adaptive,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, StartSessionResponse{
		SessionID:     result.SessionID,
		FirstQuestion: result.FirstQuestion,
		StartedAt:     result.StartedAt,
	})
}

// SubmitAnswer handles POST /api/quiz/sessions/{id}/answers.
func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	result, err := h.quizService.SubmitAnswer(r.Context(), studentID, sessionID, quiz.SubmitParams{
		QuestionID:       req.QuestionID,
		SelectedAnswer:   req.SelectedAnswer,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitAnswerResponse{
		IsCorrect:          result.IsCorrect,
		CorrectAnswer:      result.CorrectAnswer,
		Explanation:        result.Explanation,
		PointsEarned:       result.PointsEarned,
		TimeBonus:          result.TimeBonus,
		ComboCount:         result.ComboCount,
		XPEarned:           result.XPEarned,
		CurrentScore:       result.CurrentScore,
		QuestionsRemaining: result.QuestionsRemaining,
		NextDifficulty:     result.NextDifficulty,
	})
}

// Next handles GET /api/quiz/sessions/{id}/next.
func (h *SessionHandler) Next(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.quizService.Next(r.Context(), studentID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NextQuestionResponse{
		Question:           result.Question,
		CurrentDifficulty:  result.CurrentDifficulty,
		QuestionsAnswered:  result.QuestionsAnswered,
		QuestionsRemaining: result.QuestionsRemaining,
		IsComplete:         result.IsComplete,
	})
}

// Complete handles POST /api/quiz/sessions/{id}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r)
	if !ok {
		return
	}

	result, err := h.quizService.Complete(r.Context(), studentID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CompleteSessionResponse{
		AttemptSummary:   newAttemptSummaryResponse(result.Summary),
		LevelUp:          result.LevelUp,
		LevelDown:        result.LevelDown,
		NewLevel:         result.NewLevel,
		XPEarned:         result.XPEarned,
		TotalXP:          result.TotalXP,
		CurrentStreak:    result.CurrentStreak,
		LevelDownDefense: result.LevelDownDefense,
		LevelDownAction:  result.LevelDownAction,
		MasteryAchieved:  result.MasteryAchieved,
	})
}

func (h *SessionHandler) sessionIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}
	return sessionID, true
}
