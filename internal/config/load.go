package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, optionally, a
// config.yaml file in the working directory. Environment variables use the
// MATHQUEST_ prefix with underscores for nesting (e.g. MATHQUEST_SERVER_PORT)
// and take precedence over values from the config file.
//
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep a bare environment bootable for local development.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("quiz.max_question_count", 50)
	v.SetDefault("quiz.default_question_count", 10)
	v.SetDefault("quiz.question_source", "bank")
	v.SetDefault("notify.queue_size", 100)
	v.SetDefault("notify.worker_count", 2)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	// Optional config file: config.yaml in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file values.
	v.SetEnvPrefix("MATHQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without a default must be bound explicitly or env-only deployments
	// would never see them.
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"auth.bcrypt_cost",
		"llm.gemini_api_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// The gemini source needs an API key; validate the pairing here because
	// struct tags cannot express the cross-field requirement.
	if cfg.Quiz.QuestionSource == "gemini" && cfg.LLM.GeminiAPIKey == "" {
		return nil, fmt.Errorf("llm.gemini_api_key is required when quiz.question_source is gemini")
	}

	return &cfg, nil
}
