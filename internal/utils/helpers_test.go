package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"normal key", "fal-1234567890abcdef", "fal-****cdef"},
		{"short key", "short", "****"},
		{"exactly eight", "12345678", "****"},
		{"nine chars", "123456789", "1234****6789"},
		{"empty", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskAPIKey(tt.key))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel...(truncated)", TruncateString("hello world", 3))
	assert.Equal(t, "hello", TruncateString("hello", 0))
	assert.Equal(t, "", TruncateString("", 5))
}
