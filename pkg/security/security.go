// Package security provides validation, sanitization, and limits for the jobs package.
package security

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// Security limits and configuration
const (
	// MaxIdentifierLength is the maximum length for handler identifiers
	MaxIdentifierLength = 128

	// MaxDataKeyLength is the maximum length for the dataset attribute name
	MaxDataKeyLength = 255

	// MaxItemsPerBatch is the hard limit for items processed by one ProcessJob call
	MaxItemsPerBatch = 1_000_000

	// MaxErrorMessageLength is the maximum length for stored failure reasons
	MaxErrorMessageLength = 4096
)

// validIdentifier matches alphanumeric, hyphens, underscores, and dots
var validIdentifier = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateIdentifier validates a handler identifier. Identifiers namespace
// stored jobs, lock names, and health-check names.
func ValidateIdentifier(name string) error {
	if name == "" {
		return core.ErrInvalidIdentifier
	}
	if len(name) > MaxIdentifierLength {
		return core.ErrIdentifierTooLong
	}
	if !validIdentifier.MatchString(name) {
		return core.ErrInvalidIdentifier
	}
	return nil
}

// ValidateDataKey validates the attribute name that holds a job's dataset.
// Core field names are not allowed.
func ValidateDataKey(key string) error {
	if key == "" || len(key) > MaxDataKeyLength || core.IsCoreField(key) {
		return core.ErrInvalidDataKey
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampItemsPerBatch bounds a per-invocation item cap. Zero or negative
// means unlimited and is returned as 0.
func ClampItemsPerBatch(n int) int {
	if n <= 0 {
		return 0
	}
	if n > MaxItemsPerBatch {
		return MaxItemsPerBatch
	}
	return n
}
