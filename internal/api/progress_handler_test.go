package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mathquest/mathquest-api/internal/api"
	"github.com/mathquest/mathquest-api/internal/api/shared"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/store"
	"github.com/mathquest/mathquest-api/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGetProgress(t *testing.T) {
	t.Parallel()

	userStore := memory.NewUserStore(bcrypt.MinCost)
	attemptStore := memory.NewAttemptStore()
	handler := api.NewProgressHandler(userStore, attemptStore, nil)

	user, err := domain.NewUser("student@example.com", "securepassword123", 3)
	require.NoError(t, err)
	require.NoError(t, userStore.Create(context.Background(), user))

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, attemptStore.Save(context.Background(), &store.AttemptRecord{
			ID:              uuid.New(),
			SessionID:       uuid.New(),
			StudentID:       user.ID,
			Grade:           3,
			Category:        domain.CategoryComputation,
			Adaptive:        true,
			TotalCount:      5,
			CorrectCount:    4,
			Score:           60 + i,
			XPEarned:        30,
			ComboMax:        4,
			FinalDifficulty: 6,
			StartedAt:       base.Add(time.Duration(i) * time.Minute),
			CompletedAt:     base.Add(time.Duration(i)*time.Minute + 5*time.Minute),
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/students/me/progress?limit=2", nil)
	req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, user.ID))
	rr := httptest.NewRecorder()
	handler.GetProgress(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.ProgressResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, 3, resp.Grade)
	assert.Equal(t, 1, resp.Level)
	assert.Equal(t, 3, resp.ShieldCount)
	require.Len(t, resp.Attempts, 2)
	// Most recent attempt first.
	assert.Equal(t, 62, resp.Attempts[0].Score)
}

func TestGetProgress_Rejections(t *testing.T) {
	t.Parallel()

	handler := api.NewProgressHandler(memory.NewUserStore(bcrypt.MinCost), memory.NewAttemptStore(), nil)

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/students/me/progress", nil)
		rr := httptest.NewRecorder()
		handler.GetProgress(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/students/me/progress", nil)
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, uuid.New()))
		rr := httptest.NewRecorder()
		handler.GetProgress(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/students/me/progress?limit=0", nil)
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, uuid.New()))
		rr := httptest.NewRecorder()
		handler.GetProgress(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
