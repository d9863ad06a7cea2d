package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mathquest/mathquest-api/internal/service/auth"
	"github.com/mathquest/mathquest-api/internal/service/quiz"
	"github.com/mathquest/mathquest-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, quiz.ErrSessionNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, quiz.ErrSessionNotFound),
		errors.Is(err, quiz.ErrQuestionNotFound),
		errors.Is(err, quiz.ErrNoContentAvailable):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, quiz.ErrAlreadyAnswered),
		errors.Is(err, quiz.ErrAlreadyCompleted):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, quiz.ErrInvalidRequest):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, quiz.ErrSessionNotOwned):
		return "You do not own this session"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, quiz.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, quiz.ErrQuestionNotFound):
		return "Question not found in session"

	case errors.Is(err, quiz.ErrNoContentAvailable):
		return "No questions available for the requested grade and category"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, quiz.ErrAlreadyAnswered):
		return "Question already answered"

	case errors.Is(err, quiz.ErrAlreadyCompleted):
		return "Session already completed"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, quiz.ErrInvalidRequest):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation
// errors and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
