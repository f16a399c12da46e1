// Package errors defines the sentinel and typed errors shared by the
// reconciliation pipeline and its callers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates that an input source was malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrProviderUnavailable indicates that a lookup provider cannot serve requests.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrJobNotFound indicates an unknown job id.
	ErrJobNotFound = errors.New("job not found")
)

// ShapeError reports an input source that is missing required fields.
type ShapeError struct {
	Source  string
	Missing []string
}

// Error implements the error interface
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s is missing required fields: %s", e.Source, strings.Join(e.Missing, ", "))
}

// Is implements errors.Is support
func (e *ShapeError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewShapeError creates a new ShapeError
func NewShapeError(source string, missing ...string) *ShapeError {
	return &ShapeError{Source: source, Missing: missing}
}

// ProcessingError is a structured failure of one pipeline stage.
type ProcessingError struct {
	Stage   string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// AsMap returns a serializable representation for API responses.
func (e *ProcessingError) AsMap() map[string]any {
	payload := map[string]any{
		"stage":   e.Stage,
		"message": e.Message,
	}
	if e.Err != nil {
		payload["cause"] = e.Err.Error()
	}
	if len(e.Details) > 0 {
		payload["details"] = e.Details
	}
	return payload
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(stage, message string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Message: message, Err: err}
}

// IsInvalidInput reports whether err is an input-shape failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
