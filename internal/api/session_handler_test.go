package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/api"
	"github.com/mathquest/mathquest-api/internal/api/shared"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/service/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuizService returns canned results so handler tests exercise only
// request decoding, error mapping, and response shaping.
type stubQuizService struct {
	startResult    *quiz.StartResult
	startErr       error
	submitResult   *quiz.SubmitResult
	submitErr      error
	nextResult     *quiz.NextResult
	nextErr        error
	completeResult *quiz.CompleteResult
	completeErr    error

	lastStudentID uuid.UUID
	lastSessionID uuid.UUID
}

var _ quiz.QuizService = (*stubQuizService)(nil)

func (s *stubQuizService) Start(_ context.Context, studentID uuid.UUID, _ quiz.StartParams) (*quiz.StartResult, error) {
	s.lastStudentID = studentID
	return s.startResult, s.startErr
}

func (s *stubQuizService) SubmitAnswer(_ context.Context, studentID, sessionID uuid.UUID, _ quiz.SubmitParams) (*quiz.SubmitResult, error) {
	s.lastStudentID = studentID
	s.lastSessionID = sessionID
	return s.submitResult, s.submitErr
}

func (s *stubQuizService) Next(_ context.Context, studentID, sessionID uuid.UUID) (*quiz.NextResult, error) {
	s.lastStudentID = studentID
	s.lastSessionID = sessionID
	return s.nextResult, s.nextErr
}

func (s *stubQuizService) Complete(_ context.Context, studentID, sessionID uuid.UUID) (*quiz.CompleteResult, error) {
	s.lastStudentID = studentID
	s.lastSessionID = sessionID
	return s.completeResult, s.completeErr
}

// newSessionRouter mounts the handler behind a middleware that injects
// the given student ID, standing in for JWT authentication.
func newSessionRouter(svc quiz.QuizService, studentID uuid.UUID) http.Handler {
	handler := api.NewSessionHandler(svc, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.UserIDContextKey, studentID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/quiz/sessions", handler.Start)
	r.Post("/api/quiz/sessions/{id}/answers", handler.SubmitAnswer)
	r.Get("/api/quiz/sessions/{id}/next", handler.Next)
	r.Post("/api/quiz/sessions/{id}/complete", handler.Complete)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSessionStart(t *testing.T) {
	t.Parallel()

	studentID := uuid.New()
	sessionID := uuid.New()
	svc := &stubQuizService{
		startResult: &quiz.StartResult{
			SessionID: sessionID,
			FirstQuestion: &quiz.QuestionView{
				ID:         "q-001",
				Content:    "3 + 4 = ?",
				Options:    []string{"6", "7", "8", "9"},
				Points:     10,
				Difficulty: 1,
				Category:   domain.CategoryComputation,
			},
			StartedAt: time.Now().UTC(),
		},
	}
	router := newSessionRouter(svc, studentID)

	rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions", api.StartSessionRequest{
		Grade:              3,
		Category:           "computation",
		Count:              5,
		StartingDifficulty: 1,
		Adaptive:           true,
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, studentID, svc.lastStudentID)

	var resp api.StartSessionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, sessionID, resp.SessionID)
	require.NotNil(t, resp.FirstQuestion)
	assert.Equal(t, "q-001", resp.FirstQuestion.ID)
}

func TestSessionStart_BadRequests(t *testing.T) {
	t.Parallel()

	router := newSessionRouter(&stubQuizService{}, uuid.New())

	tests := []struct {
		name string
		body api.StartSessionRequest
	}{
		{name: "missing grade", body: api.StartSessionRequest{Category: "computation"}},
		{name: "unknown category", body: api.StartSessionRequest{Grade: 3, Category: "geometry"}},
		{name: "count too large", body: api.StartSessionRequest{Grade: 3, Category: "concept", Count: 99}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestSessionStart_NoContent(t *testing.T) {
	t.Parallel()

	router := newSessionRouter(&stubQuizService{startErr: quiz.ErrNoContentAvailable}, uuid.New())
	rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions", api.StartSessionRequest{
		Grade:    6,
		Category: "concept",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "No questions available")
}

func TestSubmitAnswer(t *testing.T) {
	t.Parallel()

	nextDifficulty := 4
	sessionID := uuid.New()
	svc := &stubQuizService{
		submitResult: &quiz.SubmitResult{
			IsCorrect:          true,
			CorrectAnswer:      "7",
			PointsEarned:       13,
			TimeBonus:          3,
			ComboCount:         1,
			XPEarned:           6,
			CurrentScore:       13,
			QuestionsRemaining: 4,
			NextDifficulty:     &nextDifficulty,
		},
	}
	router := newSessionRouter(svc, uuid.New())

	rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions/"+sessionID.String()+"/answers", api.SubmitAnswerRequest{
		QuestionID:       "q-001",
		SelectedAnswer:   "7",
		TimeSpentSeconds: 8,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, sessionID, svc.lastSessionID)

	var resp api.SubmitAnswerResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, 13, resp.PointsEarned)
	require.NotNil(t, resp.NextDifficulty)
	assert.Equal(t, 4, *resp.NextDifficulty)
}

func TestSubmitAnswer_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unknown session", err: quiz.ErrSessionNotFound, wantStatus: http.StatusNotFound},
		{name: "not owned", err: quiz.ErrSessionNotOwned, wantStatus: http.StatusForbidden},
		{name: "question never issued", err: quiz.ErrQuestionNotFound, wantStatus: http.StatusNotFound},
		{name: "already answered", err: quiz.ErrAlreadyAnswered, wantStatus: http.StatusConflict},
		{name: "already completed", err: quiz.ErrAlreadyCompleted, wantStatus: http.StatusConflict},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newSessionRouter(&stubQuizService{submitErr: tc.err}, uuid.New())
			rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions/"+uuid.NewString()+"/answers", api.SubmitAnswerRequest{
				QuestionID:       "q-001",
				SelectedAnswer:   "7",
				TimeSpentSeconds: 5,
			})
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func TestSubmitAnswer_InvalidSessionID(t *testing.T) {
	t.Parallel()

	router := newSessionRouter(&stubQuizService{}, uuid.New())
	rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions/not-a-uuid/answers", api.SubmitAnswerRequest{
		QuestionID:     "q-001",
		SelectedAnswer: "7",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid session ID")
}

func TestNext_CompletionSignal(t *testing.T) {
	t.Parallel()

	svc := &stubQuizService{
		nextResult: &quiz.NextResult{
			Question:          nil,
			CurrentDifficulty: 7,
			QuestionsAnswered: 5,
			IsComplete:        true,
		},
	}
	router := newSessionRouter(svc, uuid.New())

	rr := doJSON(t, router, http.MethodGet, "/api/quiz/sessions/"+uuid.NewString()+"/next", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.NextQuestionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Nil(t, resp.Question)
	assert.True(t, resp.IsComplete)
	assert.Equal(t, 7, resp.CurrentDifficulty)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	sessionID := uuid.New()
	svc := &stubQuizService{
		completeResult: &quiz.CompleteResult{
			Summary: quiz.AttemptSummary{
				SessionID:       sessionID,
				Grade:           3,
				Category:        domain.CategoryComputation,
				Adaptive:        true,
				TotalCount:      8,
				CorrectCount:    6,
				Score:           180,
				ComboMax:        4,
				FinalDifficulty: 9,
			},
			NewLevel:         2,
			LevelUp:          true,
			XPEarned:         90,
			TotalXP:          140,
			CurrentStreak:    1,
			LevelDownDefense: 3,
			LevelDownAction:  "none",
			MasteryAchieved:  true,
		},
	}
	router := newSessionRouter(svc, uuid.New())

	rr := doJSON(t, router, http.MethodPost, "/api/quiz/sessions/"+sessionID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.CompleteSessionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, sessionID, resp.AttemptSummary.SessionID)
	assert.True(t, resp.LevelUp)
	assert.True(t, resp.MasteryAchieved)
	assert.Equal(t, "none", resp.LevelDownAction)

	rrDup := doJSON(t, newSessionRouter(&stubQuizService{completeErr: quiz.ErrAlreadyCompleted}, uuid.New()),
		http.MethodPost, "/api/quiz/sessions/"+sessionID.String()+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rrDup.Code)
}
