package questions

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mathquest/mathquest-api/internal/domain"
)

// questionsPerTuple is how many distinct questions the bank builds for each
// (grade, category, difficulty) tuple. It is kept above the largest allowed
// session so a session that stays on one tuple never sees a repeat.
const questionsPerTuple = 64

// bankKey identifies one question pool in the bank.
type bankKey struct {
	grade      int
	category   domain.Category
	difficulty int
}

// BankSource is a deterministic, in-process question source. The entire
// bank is generated at construction from arithmetic templates scaled by
// grade and difficulty, so every instance serves identical content.
// Generate cycles through each tuple's pool, so a pool is never exhausted
// once it exists.
type BankSource struct {
	mu      sync.Mutex
	pools   map[bankKey][]domain.Question
	cursors map[bankKey]int
}

// NewBankSource builds the full question bank for all supported grades.
func NewBankSource() *BankSource {
	s := &BankSource{
		pools:   make(map[bankKey][]domain.Question),
		cursors: make(map[bankKey]int),
	}

	for grade := domain.MinGrade; grade <= domain.MaxGrade; grade++ {
		for difficulty := domain.MinDifficulty; difficulty <= domain.MaxDifficulty; difficulty++ {
			for _, category := range []domain.Category{domain.CategoryComputation, domain.CategoryConcept} {
				key := bankKey{grade: grade, category: category, difficulty: difficulty}
				s.pools[key] = buildPool(grade, category, difficulty)
			}
		}
	}
	return s
}

// Generate implements Source.
func (s *BankSource) Generate(ctx context.Context, grade int, category domain.Category, difficulty int) (*domain.Question, error) {
	batch, err := s.GenerateBatch(ctx, grade, category, difficulty, 1)
	if err != nil {
		return nil, err
	}
	return &batch[0], nil
}

// GenerateBatch implements Source.
func (s *BankSource) GenerateBatch(ctx context.Context, grade int, category domain.Category, difficulty int, count int) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTuple(grade, category, difficulty); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}

	key := bankKey{grade: grade, category: category, difficulty: difficulty}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool := s.pools[key]
	if len(pool) == 0 {
		return nil, ErrNoContent
	}

	batch := make([]domain.Question, 0, count)
	cursor := s.cursors[key]
	for i := 0; i < count; i++ {
		batch = append(batch, pool[cursor%len(pool)])
		cursor++
	}
	s.cursors[key] = cursor % len(pool)
	return batch, nil
}

// ListAvailableDifficulties implements Source.
func (s *BankSource) ListAvailableDifficulties(ctx context.Context, grade int, category domain.Category) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateTuple(grade, category, domain.MinDifficulty); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	difficulties := make([]int, 0, domain.MaxDifficulty)
	for d := domain.MinDifficulty; d <= domain.MaxDifficulty; d++ {
		if len(s.pools[bankKey{grade: grade, category: category, difficulty: d}]) > 0 {
			difficulties = append(difficulties, d)
		}
	}
	return difficulties, nil
}

// ListSupportedGrades implements Source.
func (s *BankSource) ListSupportedGrades(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grades := make([]int, 0, domain.MaxGrade)
	for g := domain.MinGrade; g <= domain.MaxGrade; g++ {
		grades = append(grades, g)
	}
	return grades, nil
}

func validateTuple(grade int, category domain.Category, difficulty int) error {
	if grade < domain.MinGrade || grade > domain.MaxGrade {
		return fmt.Errorf("%w: grade %d out of range", ErrInvalidRequest, grade)
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, category)
	}
	if difficulty < domain.MinDifficulty || difficulty > domain.MaxDifficulty {
		return fmt.Errorf("%w: difficulty %d out of range", ErrInvalidRequest, difficulty)
	}
	return nil
}

// buildPool generates the deterministic question pool for one tuple. The
// option order is shuffled with a seed derived from the tuple so the bank
// is identical across processes.
func buildPool(grade int, category domain.Category, difficulty int) []domain.Question {
	seed := int64(grade)*1000 + int64(difficulty)*10 + int64(len(category))
	rng := rand.New(rand.NewSource(seed))

	pool := make([]domain.Question, 0, questionsPerTuple)
	for i := 0; i < questionsPerTuple; i++ {
		a := grade*difficulty + i*3 + 2
		b := difficulty + i*2 + 1

		var content, explanation string
		var answer int

		switch {
		case category == domain.CategoryConcept:
			answer = a + b
			content = fmt.Sprintf(
				"Maya has %d stickers. Her friend gives her %d more. How many stickers does Maya have now?",
				a, b)
			explanation = fmt.Sprintf("Adding the new stickers: %d + %d = %d.", a, b, answer)
		case difficulty <= 4:
			answer = a + b
			content = fmt.Sprintf("%d + %d = ?", a, b)
			explanation = fmt.Sprintf("%d + %d = %d.", a, b, answer)
		case difficulty <= 7:
			answer = a - b
			content = fmt.Sprintf("%d - %d = ?", a, b)
			explanation = fmt.Sprintf("%d - %d = %d.", a, b, answer)
		default:
			answer = a * b
			content = fmt.Sprintf("%d x %d = ?", a, b)
			explanation = fmt.Sprintf("%d x %d = %d.", a, b, answer)
		}

		correct := fmt.Sprintf("%d", answer)
		options := ShuffleOptions([]string{
			correct,
			fmt.Sprintf("%d", answer+1),
			fmt.Sprintf("%d", answer-1),
			fmt.Sprintf("%d", answer+difficulty+1),
		}, rng)

		pool = append(pool, domain.Question{
			ID:            fmt.Sprintf("bank-g%d-%s-d%d-%03d", grade, category, difficulty, i),
			Grade:         grade,
			Category:      category,
			Difficulty:    difficulty,
			Content:       content,
			Options:       options,
			CorrectAnswer: correct,
			Explanation:   explanation,
			Points:        10,
			QuestionType:  domain.QuestionTypeMultipleChoice,
		})
	}
	return pool
}

// Ensure BankSource implements Source.
var _ Source = (*BankSource)(nil)
