package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Quiz     QuizConfig     `mapstructure:"quiz" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// The URL may be empty, in which case the server runs entirely on the
// in-memory stores and skips attempt archiving.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"omitempty,gte=4,lte=31"`
}

// QuizConfig contains the tunables of the quiz session engine.
type QuizConfig struct {
	// MaxQuestionCount caps the number of questions a single session may request.
	MaxQuestionCount int `mapstructure:"max_question_count" validate:"required,gt=0,lte=100"`

	// DefaultQuestionCount is used when a start request omits the count.
	DefaultQuestionCount int `mapstructure:"default_question_count" validate:"required,gt=0"`

	// QuestionSource selects the question backend: "bank" (built-in) or "gemini".
	QuestionSource string `mapstructure:"question_source" validate:"required,oneof=bank gemini"`
}

// NotifyConfig configures the mastery notification dispatcher.
type NotifyConfig struct {
	QueueSize   int `mapstructure:"queue_size" validate:"omitempty,gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"omitempty,gt=0"`
}

// LLMConfig contains the settings for the Gemini-backed question source.
// Only required when quiz.question_source is "gemini".
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
}
