package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mathquest/mathquest-api/internal/config"
	"github.com/mathquest/mathquest-api/internal/domain/progression"
	"github.com/mathquest/mathquest-api/internal/domain/scoring"
	"github.com/mathquest/mathquest-api/internal/events"
	"github.com/mathquest/mathquest-api/internal/notify"
	"github.com/mathquest/mathquest-api/internal/platform/postgres"
	"github.com/mathquest/mathquest-api/internal/questions"
	"github.com/mathquest/mathquest-api/internal/service/auth"
	"github.com/mathquest/mathquest-api/internal/service/quiz"
	"github.com/mathquest/mathquest-api/internal/store"
	"github.com/mathquest/mathquest-api/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

// application holds all shared dependencies so startup wiring and
// shutdown cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when no database URL is configured; the server then runs
	// entirely on the in-memory stores.
	db *sql.DB

	sessionStore store.SessionStore
	userStore    store.UserStore
	attemptStore store.AttemptStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	quizService      quiz.QuizService

	eventEmitter events.EventEmitter
	rosterFeed   *events.RosterFeed
	dispatcher   *notify.Dispatcher
}

// newApplication creates an application instance with all dependencies
// initialized and the notification dispatcher started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	if err := app.setupStores(cfg, logger); err != nil {
		return nil, err
	}

	source, err := setupQuestionSource(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize question source: %w", err)
	}
	logger.Info("Question source initialized", "backend", cfg.Quiz.QuestionSource)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.rosterFeed = events.NewRosterFeed()
	app.eventEmitter.(*events.InMemoryEventEmitter).RegisterHandler(app.rosterFeed)

	app.dispatcher = notify.NewDispatcher(
		notify.NewLogClient(logger),
		dispatcherConfig(cfg.Notify),
		logger,
	)
	app.dispatcher.Start()
	app.eventEmitter.(*events.InMemoryEventEmitter).RegisterHandler(app.dispatcher)

	app.quizService = quiz.NewQuizService(
		app.sessionStore,
		app.userStore,
		app.attemptStore,
		source,
		scoring.NewDefaultPolicy(),
		progression.NewDefaultEngine(),
		progression.NewDefaultDetector(),
		app.eventEmitter,
		logger,
		quiz.Config{
			MaxQuestionCount:     cfg.Quiz.MaxQuestionCount,
			DefaultQuestionCount: cfg.Quiz.DefaultQuestionCount,
		},
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupStores wires the persistence layer. Live session state is always
// in memory; student accounts and the attempt archive go to Postgres
// when a database URL is configured.
func (app *application) setupStores(cfg *config.Config, logger *slog.Logger) error {
	app.sessionStore = memory.NewSessionStore()

	if cfg.Database.URL == "" {
		logger.Warn("No database configured, using in-memory user and attempt stores")
		app.userStore = memory.NewUserStore(cfg.Auth.BcryptCost)
		app.attemptStore = memory.NewAttemptStore()
		return nil
	}

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	cost := cfg.Auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	app.userStore = postgres.NewPostgresUserStore(db, logger, cost)
	app.attemptStore = postgres.NewPostgresAttemptStore(db, logger)
	return nil
}

// setupQuestionSource selects the configured question backend.
func setupQuestionSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (questions.Source, error) {
	switch cfg.Quiz.QuestionSource {
	case "gemini":
		return questions.NewGeminiSource(ctx, logger, cfg.LLM)
	case "bank", "":
		return questions.NewBankSource(), nil
	default:
		return nil, fmt.Errorf("unknown question source %q", cfg.Quiz.QuestionSource)
	}
}

func dispatcherConfig(cfg config.NotifyConfig) notify.DispatcherConfig {
	dc := notify.DefaultDispatcherConfig()
	if cfg.QueueSize > 0 {
		dc.QueueSize = cfg.QueueSize
	}
	if cfg.WorkerCount > 0 {
		dc.WorkerCount = cfg.WorkerCount
	}
	return dc
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
