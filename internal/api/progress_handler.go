package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mathquest/mathquest-api/internal/api/middleware"
	"github.com/mathquest/mathquest-api/internal/api/shared"
	"github.com/mathquest/mathquest-api/internal/store"
)

// defaultAttemptHistoryLimit bounds the attempt list returned by the
// progress endpoint when the client does not ask for a specific limit.
const defaultAttemptHistoryLimit = 20

// maxAttemptHistoryLimit is the largest attempt list a single progress
// request may return.
const maxAttemptHistoryLimit = 100

// ProgressHandler holds dependencies for student progression endpoints.
type ProgressHandler struct {
	userStore    store.UserStore
	attemptStore store.AttemptStore
	logger       *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(userStore store.UserStore, attemptStore store.AttemptStore, logger *slog.Logger) *ProgressHandler {
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if attemptStore == nil {
		panic("attemptStore cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ProgressHandler{
		userStore:    userStore,
		attemptStore: attemptStore,
		logger:       logger.With(slog.String("component", "progress_handler")),
	}
}

// GetProgress handles GET /api/students/me/progress. It returns the
// authenticated student's aggregate progression plus their most recent
// attempts, newest first. The optional "limit" query parameter bounds
// the attempt list.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	studentID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := defaultAttemptHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxAttemptHistoryLimit {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	user, err := h.userStore.GetByID(r.Context(), studentID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	records, err := h.attemptStore.ListByStudent(r.Context(), studentID, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load attempt history", err)
		return
	}

	attempts := make([]AttemptSummaryResponse, 0, len(records))
	for _, rec := range records {
		attempts = append(attempts, attemptRecordResponse(rec))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProgressResponse{
		UserID:        user.ID,
		Grade:         user.Grade,
		Level:         user.Level,
		TotalXP:       user.TotalXP,
		CurrentStreak: user.CurrentStreak,
		ShieldCount:   user.ShieldCount,
		Attempts:      attempts,
	})
}

func attemptRecordResponse(rec store.AttemptRecord) AttemptSummaryResponse {
	return AttemptSummaryResponse{
		SessionID:       rec.SessionID,
		Grade:           rec.Grade,
		Category:        string(rec.Category),
		Adaptive:        rec.Adaptive,
		TotalCount:      rec.TotalCount,
		CorrectCount:    rec.CorrectCount,
		Score:           rec.Score,
		ComboMax:        rec.ComboMax,
		FinalDifficulty: rec.FinalDifficulty,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
	}
}
