// Package main implements the entry point for the MathQuest API server,
// which runs adaptive math quiz sessions for students and tracks their
// XP, level, and mastery progression.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/mathquest/mathquest-api/internal/config"
	"github.com/mathquest/mathquest-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"question_source", cfg.Quiz.QuestionSource,
		"database_configured", cfg.Database.URL != "")

	if *migrateCmd != "" {
		if err := runMigrations(cfg, *migrateCmd, appLogger); err != nil {
			appLogger.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
