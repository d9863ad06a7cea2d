package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mathquest/mathquest-api/internal/config"
	"github.com/mathquest/mathquest-api/internal/domain"
	"google.golang.org/genai"
)

// Gemini source errors
var (
	ErrInvalidConfig    = errors.New("invalid gemini source configuration")
	ErrInvalidResponse  = errors.New("invalid response from gemini")
	ErrContentBlocked   = errors.New("content blocked by safety filters")
	ErrTransientFailure = errors.New("transient failure calling gemini")
)

// generatedQuestion is the JSON shape the model is asked to produce.
type generatedQuestion struct {
	Content       string   `json:"content"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// GeminiSource implements Source using Google's Gemini API to generate
// grade-school math questions on demand. Every difficulty and grade is
// nominally available since content is generated rather than stored.
type GeminiSource struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewGeminiSource creates a new GeminiSource with the provided dependencies.
func NewGeminiSource(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiSource, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiSource{
		logger: logger.With(slog.String("component", "gemini_source")),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Generate implements Source.
func (s *GeminiSource) Generate(ctx context.Context, grade int, category domain.Category, difficulty int) (*domain.Question, error) {
	batch, err := s.GenerateBatch(ctx, grade, category, difficulty, 1)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, ErrNoContent
	}
	return &batch[0], nil
}

// GenerateBatch implements Source.
func (s *GeminiSource) GenerateBatch(ctx context.Context, grade int, category domain.Category, difficulty int, count int) ([]domain.Question, error) {
	if err := validateTuple(grade, category, difficulty); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}

	prompt := buildPrompt(grade, category, difficulty, count)
	generated, err := s.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.Question, 0, len(generated))
	for i, g := range generated {
		q := domain.Question{
			ID:            fmt.Sprintf("gemini-g%d-%s-d%d-%d-%d", grade, category, difficulty, time.Now().UnixNano(), i),
			Grade:         grade,
			Category:      category,
			Difficulty:    difficulty,
			Content:       g.Content,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Explanation:   g.Explanation,
			Points:        10,
			QuestionType:  domain.QuestionTypeMultipleChoice,
		}
		if len(q.Options) == 0 {
			q.QuestionType = domain.QuestionTypeShortAnswer
		}
		if err := q.Validate(); err != nil {
			s.logger.WarnContext(ctx, "discarding invalid generated question",
				"error", err, "index", i)
			continue
		}
		batch = append(batch, q)
	}

	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: all generated questions were invalid", ErrInvalidResponse)
	}
	return batch, nil
}

// ListAvailableDifficulties implements Source. Generated content covers the
// full difficulty range.
func (s *GeminiSource) ListAvailableDifficulties(ctx context.Context, grade int, category domain.Category) ([]int, error) {
	if err := validateTuple(grade, category, domain.MinDifficulty); err != nil {
		return nil, err
	}
	difficulties := make([]int, 0, domain.MaxDifficulty)
	for d := domain.MinDifficulty; d <= domain.MaxDifficulty; d++ {
		difficulties = append(difficulties, d)
	}
	return difficulties, nil
}

// ListSupportedGrades implements Source.
func (s *GeminiSource) ListSupportedGrades(ctx context.Context) ([]int, error) {
	grades := make([]int, 0, domain.MaxGrade)
	for g := domain.MinGrade; g <= domain.MaxGrade; g++ {
		grades = append(grades, g)
	}
	return grades, nil
}

func buildPrompt(grade int, category domain.Category, difficulty int, count int) string {
	track := "mental arithmetic"
	if category == domain.CategoryConcept {
		track = "word problems testing mathematical reasoning"
	}
	return fmt.Sprintf(
		`Generate %d multiple-choice math questions as %s for grade %d students at difficulty %d on a 1-10 scale.
Respond with a JSON array only, no prose. Each element must have the fields:
"content" (the question text), "options" (four answer strings including the correct one),
"correct_answer" (exactly one of the options), "explanation" (one sentence).`,
		count, track, grade, difficulty)
}

// callWithRetry calls the Gemini API with exponential backoff and jitter
// for transient errors. Permanent errors (blocked or malformed content)
// are returned immediately.
func (s *GeminiSource) callWithRetry(ctx context.Context, prompt string) ([]generatedQuestion, error) {
	maxRetries := s.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := s.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	for attempt := 0; ; attempt++ {
		s.logger.InfoContext(ctx, "calling gemini",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		generated, err := s.callOnce(ctx, prompt)
		if err == nil {
			return generated, nil
		}

		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			return nil, err
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, err)
		}

		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * float64(time.Second))
		s.logger.WarnContext(ctx, "gemini call failed, retrying",
			"error", err, "delay_seconds", backoff)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *GeminiSource) callOnce(ctx context.Context, prompt string) ([]generatedQuestion, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}
	return parseGenerated(resp)
}

// parseGenerated extracts the generated questions from a model response,
// concatenating the text parts of the first candidate.
func parseGenerated(resp *genai.GenerateContentResponse) ([]generatedQuestion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, ErrContentBlocked
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	return generated, nil
}

// Ensure GeminiSource implements Source.
var _ Source = (*GeminiSource)(nil)
