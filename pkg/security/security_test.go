package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

func TestValidateIdentifier_Valid(t *testing.T) {
	validNames := []string{
		"catalog-sync",
		"productFeed",
		"sv_wp_background_job",
		"a",
		"feed.v2",
	}

	for _, name := range validNames {
		err := ValidateIdentifier(name)
		assert.NoError(t, err, "Expected %q to be valid", name)
	}
}

func TestValidateIdentifier_Invalid(t *testing.T) {
	invalidNames := []string{
		"",                       // empty
		"1-sync",                 // starts with number
		"-sync",                  // starts with hyphen
		"catalog sync",           // contains spaces
		"sync%",                  // LIKE wildcard
		"sync/all",               // contains slash
		strings.Repeat("a", 200), // too long
	}

	for _, name := range invalidNames {
		err := ValidateIdentifier(name)
		assert.Error(t, err, "Expected %q to be invalid", name)
	}
}

func TestValidateIdentifier_TooLongError(t *testing.T) {
	err := ValidateIdentifier(strings.Repeat("a", MaxIdentifierLength+1))
	assert.ErrorIs(t, err, core.ErrIdentifierTooLong)
}

func TestValidateDataKey(t *testing.T) {
	assert.NoError(t, ValidateDataKey("data"))
	assert.NoError(t, ValidateDataKey("product_ids"))

	assert.ErrorIs(t, ValidateDataKey(""), core.ErrInvalidDataKey)
	assert.ErrorIs(t, ValidateDataKey("progress"), core.ErrInvalidDataKey)
	assert.ErrorIs(t, ValidateDataKey("status"), core.ErrInvalidDataKey)
	assert.ErrorIs(t, ValidateDataKey(strings.Repeat("k", 300)), core.ErrInvalidDataKey)
}

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal message",
			input:    "connection refused",
			expected: "connection refused",
		},
		{
			name:     "message with newlines",
			input:    "error on\nline 2",
			expected: "error on\nline 2",
		},
		{
			name:     "message with null bytes",
			input:    "error\x00with\x00nulls",
			expected: "errorwithnulls",
		},
		{
			name:     "empty message",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeErrorMessage(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSanitizeErrorMessage_Truncation(t *testing.T) {
	longMessage := strings.Repeat("a", 5000)
	result := SanitizeErrorMessage(longMessage)

	assert.LessOrEqual(t, len(result), MaxErrorMessageLength)
	assert.True(t, strings.HasSuffix(result, "..."))
}

func TestClampItemsPerBatch(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{250, 250},
		{MaxItemsPerBatch + 1, MaxItemsPerBatch},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClampItemsPerBatch(tt.input), "input %d", tt.input)
	}
}
