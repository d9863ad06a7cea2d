package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
	ErrInvalidLevel        = errors.New("level must be between 1 and 10")
	ErrNegativeXP          = errors.New("total XP cannot be negative")
	ErrInvalidShieldCount  = errors.New("shield count must be between 0 and 3")
)

// Progression bounds for a student account.
const (
	MinLevel       = 1
	MaxLevel       = 10
	MaxShieldCount = 3
	InitialShields = 3
)

// User represents a registered student of the MathQuest application.
// It carries authentication details plus the student's persistent
// progression state: level, accumulated XP, completion streak, and the
// defense shields that absorb level-downs.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	Grade          int       `json:"grade"`
	Level          int       `json:"level"`
	TotalXP        int       `json:"total_xp"`
	CurrentStreak  int       `json:"current_streak"`
	ShieldCount    int       `json:"shield_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email, password, and school
// grade. It generates a new UUID for the user ID, sets creation/update
// timestamps, and starts the student at level 1 with a full set of shields.
// Returns an error if validation fails.
//
// NOTE: This function only sets up the user structure with the plaintext
// password. The caller is responsible for hashing the password before
// storing the user.
func NewUser(email, password string, grade int) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:          uuid.New(),
		Email:       email,
		Password:    password, // Plaintext password - must be hashed before storage
		Grade:       grade,
		Level:       MinLevel,
		ShieldCount: InitialShields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	// During user creation/update we need to validate the provided password
	if u.Password != "" {
		if !validatePasswordLength(u.Password) {
			if len(u.Password) < 12 {
				return ErrPasswordTooShort
			}
			return ErrPasswordTooLong
		}
	} else {
		// When no plaintext password is provided, the user must have a
		// hashed password (existing users loaded from the database).
		if u.HashedPassword == "" {
			return ErrEmptyPassword
		}
	}

	if u.Grade < MinGrade || u.Grade > MaxGrade {
		return ErrInvalidGrade
	}
	if u.Level < MinLevel || u.Level > MaxLevel {
		return ErrInvalidLevel
	}
	if u.TotalXP < 0 {
		return ErrNegativeXP
	}
	if u.ShieldCount < 0 || u.ShieldCount > MaxShieldCount {
		return ErrInvalidShieldCount
	}

	return nil
}

// validateEmailFormat performs basic validation of email format: a single
// non-leading @ followed by a dotted domain.
func validateEmailFormat(email string) bool {
	atIndex := -1
	for i, char := range email {
		if char == '@' {
			atIndex = i
			break
		}
	}

	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dotIndex := -1
	for i, char := range domainPart {
		if char == '.' {
			dotIndex = i
			break
		}
	}

	return dotIndex > 0 && dotIndex < len(domainPart)-1
}

// validatePasswordLength checks if a password meets length requirements:
// between 12 and 72 characters (bcrypt's practical limit). Length matters
// more than forced character classes for passwords students can remember.
func validatePasswordLength(password string) bool {
	passLen := len(password)
	return passLen >= 12 && passLen <= 72
}
