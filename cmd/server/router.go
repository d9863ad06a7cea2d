package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mathquest/mathquest-api/internal/api"
	apiMiddleware "github.com/mathquest/mathquest-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userStore, app.jwtService, app.passwordVerifier, app.logger)
	sessionHandler := api.NewSessionHandler(app.quizService, app.logger)
	progressHandler := api.NewProgressHandler(app.userStore, app.attemptStore, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Quiz session lifecycle
			r.Post("/quiz/sessions", sessionHandler.Start)
			r.Post("/quiz/sessions/{id}/answers", sessionHandler.SubmitAnswer)
			r.Get("/quiz/sessions/{id}/next", sessionHandler.Next)
			r.Post("/quiz/sessions/{id}/complete", sessionHandler.Complete)

			// Student progression
			r.Get("/students/me/progress", progressHandler.GetProgress)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
