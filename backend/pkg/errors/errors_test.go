package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_Wrapped(t *testing.T) {
	err := fmt.Errorf("merge: %w", NewGraphQueryFailed("upsert node", fmt.Errorf("boom")))

	assert.True(t, IsErrorType(err, ErrorTypeGraph))
	assert.False(t, IsErrorType(err, ErrorTypeLLM))
	assert.False(t, IsErrorType(nil, ErrorTypeGraph))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"graph outage", NewGraphConnectionFailed("bolt://x", fmt.Errorf("refused")), true},
		{"llm retryable", NewLLMFailed("m", 3, true, fmt.Errorf("503")), true},
		{"llm not retryable", NewLLMFailed("m", 1, false, fmt.Errorf("400")), false},
		{"llm unavailable", ErrLLMUnavailable, true},
		{"invalid label", NewInvalidGraphItem("label", "Bad Label"), false},
		{"invalid input", NewInvalidInput("message", "empty"), false},
		{"cancelled", NewContextCancelled("merge", context.Canceled), false},
		{"plain", fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestInvalidInput_Type(t *testing.T) {
	err := fmt.Errorf("turn: %w", NewInvalidInput("message", "message is empty"))
	assert.True(t, IsErrorType(err, ErrorTypeInput))
	assert.Contains(t, err.Error(), "invalid message")
}

func TestBaseError_Message(t *testing.T) {
	err := NewUnresolvableEntityName("Passions", []string{"details"})
	assert.Contains(t, err.Error(), "[extraction]")
	assert.Contains(t, err.Error(), "Passions")
}
