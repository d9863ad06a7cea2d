package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mathquest/mathquest-api/internal/api/shared"
	"github.com/mathquest/mathquest-api/internal/domain"
	"github.com/mathquest/mathquest-api/internal/service/auth"
	"github.com/mathquest/mathquest-api/internal/store"
)

// AuthHandler holds dependencies for authentication endpoints.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	logger           *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	logger *slog.Logger,
) *AuthHandler {
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	if passwordVerifier == nil {
		panic("passwordVerifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		logger:           logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := domain.NewUser(req.Email, req.Password, req.Grade)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid registration data", err)
		return
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already exists")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	h.respondWithTokens(w, r, user, http.StatusCreated)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a wrong password so the endpoint does not
			// reveal which emails are registered.
			shared.RespondWithErrorAndLog(w, r,
				http.StatusUnauthorized, "Invalid email or password", err,
				shared.WithElevatedLogLevel())
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Login failed", err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusUnauthorized, "Invalid email or password", err,
			shared.WithElevatedLogLevel())
		return
	}

	h.respondWithTokens(w, r, user, http.StatusOK)
}

// RefreshToken handles POST /api/auth/refresh. It exchanges a valid
// refresh token for a new access/refresh token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid refresh token", err)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.respondWithTokens(w, r, user, http.StatusOK)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, user *domain.User, status int) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}
	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), user.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	shared.RespondWithJSON(w, r, status, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
	})
}
