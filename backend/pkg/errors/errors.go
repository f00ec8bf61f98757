package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInput represents malformed survey or request input
	ErrorTypeInput ErrorType = "input"
	// ErrorTypeExtraction represents entity extraction problems
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeGraph represents graph store errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeLLM represents generative service errors
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Input Errors

// ErrMalformedInput describes a survey field whose shape could not be used.
// It is recovered locally and only ever logged.
type ErrMalformedInput struct {
	*BaseError
	Field string
}

func NewMalformedInput(field string, value any) *ErrMalformedInput {
	return &ErrMalformedInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("unusable value for field %q (%T)", field, value), nil),
		Field:     field,
	}
}

// ErrInvalidInput is returned for a request value the caller must change
// before retrying.
type ErrInvalidInput struct {
	*BaseError
	Field string
}

func NewInvalidInput(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		BaseError: NewBaseError(ErrorTypeInput, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
	}
}

// Extraction Errors

// ErrUnresolvableEntityName is reported when a structured item has none of the
// known name properties. The item is dropped.
type ErrUnresolvableEntityName struct {
	*BaseError
	Facet string
	Keys  []string
}

func NewUnresolvableEntityName(facet string, keys []string) *ErrUnresolvableEntityName {
	return &ErrUnresolvableEntityName{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("no name property on %s item (keys: %v)", facet, keys), nil),
		Facet:     facet,
		Keys:      keys,
	}
}

// ErrExtractionParse is returned when a generative response holds no usable JSON.
type ErrExtractionParse struct {
	*BaseError
	Raw string
}

func NewExtractionParse(raw string, err error) *ErrExtractionParse {
	return &ErrExtractionParse{
		BaseError: NewBaseError(ErrorTypeExtraction, "could not parse extraction response", err),
		Raw:       raw,
	}
}

// LLM Errors

// ErrLLMFailed is returned when the generative service request fails
type ErrLLMFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewLLMFailed(model string, attempts int, retryable bool, err error) *ErrLLMFailed {
	return &ErrLLMFailed{
		BaseError: NewBaseError(ErrorTypeLLM, fmt.Sprintf("LLM request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrLLMUnavailable is returned while the circuit breaker rejects calls
var ErrLLMUnavailable = NewBaseError(ErrorTypeLLM, "generative service unavailable", nil)

// ErrLLMNoResponse is returned when the model returns no choices
var ErrLLMNoResponse = NewBaseError(ErrorTypeLLM, "no response from LLM", nil)

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// ErrEndpointNotFound is returned when an edge endpoint is not in the user's scope
type ErrEndpointNotFound struct {
	*BaseError
	UserID string
	From   string
	To     string
}

func NewEndpointNotFound(userID, from, to string) *ErrEndpointNotFound {
	return &ErrEndpointNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("edge endpoints %q -> %q not in scope of user %s", from, to, userID), nil),
		UserID:    userID,
		From:      from,
		To:        to,
	}
}

// ErrInvalidGraphItem is returned when a label, relationship type or name is not allowed
type ErrInvalidGraphItem struct {
	*BaseError
	Kind  string
	Value string
}

func NewInvalidGraphItem(kind, value string) *ErrInvalidGraphItem {
	return &ErrInvalidGraphItem{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("invalid %s: %q", kind, value), nil),
		Kind:      kind,
		Value:     value,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type typed interface {
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := err.(typed); ok && t.errorType() == errType {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var llmErr *ErrLLMFailed
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	// Invalid items will fail the same way again
	var invalid *ErrInvalidGraphItem
	if errors.As(err, &invalid) {
		return false
	}
	// Merges are idempotent, so graph and LLM outages can be re-driven
	return IsErrorType(err, ErrorTypeGraph) || IsErrorType(err, ErrorTypeLLM)
}
