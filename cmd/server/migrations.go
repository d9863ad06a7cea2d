package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mathquest/mathquest-api/internal/config"
	"github.com/pressly/goose/v3"
)

// migrationsDir is the default location of the goose SQL migrations,
// relative to the working directory.
const migrationsDir = "migrations"

// runMigrations executes a goose migration command against the
// configured database and returns once it finishes.
func runMigrations(cfg *config.Config, command string, logger *slog.Logger) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("migrations require a configured database URL")
	}

	dir, err := findMigrationsDir()
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Error closing database connection", "error", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	logger.Info("Running migrations", "command", command, "dir", dir)
	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	logger.Info("Migrations completed", "command", command)
	return nil
}

// findMigrationsDir locates the migrations directory, walking up from
// the working directory so the binary works from subdirectories too.
func findMigrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, migrationsDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("migrations directory not found from %s", cwd)
}
