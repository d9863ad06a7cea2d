package domain

import "errors"

// Category identifies one of the two question tracks. The computation track
// holds fast arithmetic items with a short time limit; the concept track
// holds slower word and reasoning problems with a longer limit.
type Category string

// Supported question categories
const (
	CategoryComputation Category = "computation"
	CategoryConcept     Category = "concept"
)

// IsValid reports whether the category is one of the supported tracks.
func (c Category) IsValid() bool {
	return c == CategoryComputation || c == CategoryConcept
}

// QuestionType describes how a question is answered.
type QuestionType string

// Supported question types
const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
)

// Difficulty bounds for every question and session.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Grade bounds for the supported elementary grades.
const (
	MinGrade = 1
	MaxGrade = 6
)

// Common validation errors for questions
var (
	ErrEmptyQuestionID      = errors.New("question ID cannot be empty")
	ErrInvalidCategory      = errors.New("invalid question category")
	ErrInvalidGrade         = errors.New("grade must be between 1 and 6")
	ErrInvalidDifficulty    = errors.New("difficulty must be between 1 and 10")
	ErrEmptyQuestionContent = errors.New("question content cannot be empty")
	ErrEmptyCorrectAnswer   = errors.New("question correct answer cannot be empty")
	ErrInvalidPoints        = errors.New("question points must be positive")
)

// Question is a single assessment item as supplied by a question source.
// The correct answer is canonical: the source is responsible for any
// normalization, and scoring compares submissions by plain string equality.
type Question struct {
	ID            string       `json:"id"`
	Grade         int          `json:"grade"`
	Category      Category     `json:"category"`
	Difficulty    int          `json:"difficulty"`
	Content       string       `json:"content"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	Points        int          `json:"points"`
	QuestionType  QuestionType `json:"question_type"`
}

// Validate checks if the Question has valid data.
// Returns an error if any field fails validation.
func (q *Question) Validate() error {
	if q.ID == "" {
		return ErrEmptyQuestionID
	}
	if !q.Category.IsValid() {
		return ErrInvalidCategory
	}
	if q.Grade < MinGrade || q.Grade > MaxGrade {
		return ErrInvalidGrade
	}
	if q.Difficulty < MinDifficulty || q.Difficulty > MaxDifficulty {
		return ErrInvalidDifficulty
	}
	if q.Content == "" {
		return ErrEmptyQuestionContent
	}
	if q.CorrectAnswer == "" {
		return ErrEmptyCorrectAnswer
	}
	if q.Points <= 0 {
		return ErrInvalidPoints
	}
	return nil
}
