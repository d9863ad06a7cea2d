// Package redact provides utilities for redacting sensitive information from
// strings before they are logged or returned in error responses. This helps
// prevent the accidental leakage of credentials, connection strings, and
// tokens that might be embedded in error messages.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

// Precompiled regex patterns
var (
	// Database connection strings with embedded credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database)://[^@\s]+@`)

	// Credentials and tokens
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	apiKeyRegex   = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// JWT token pattern - matches the standard three-part base64url-encoded format
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Email addresses
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	result = dbConnRegex.ReplaceAllString(result, RedactedCredentialPlaceholder)
	result = passwordRegex.ReplaceAllString(result, RedactedCredentialPlaceholder)
	// JWTs go first: a bearer token preceded by a word like "token" would
	// otherwise be swallowed by the generic key pattern.
	result = jwtTokenRegex.ReplaceAllString(result, RedactedJWTPlaceholder)
	result = apiKeyRegex.ReplaceAllString(result, RedactedKeyPlaceholder)
	result = emailRegex.ReplaceAllString(result, RedactedEmailPlaceholder)
	return result
}

// Error redacts sensitive information from an error's Error() output.
// Returns an empty string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
