// Package errors provides the structured error taxonomy for governance
// operations.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDataLoad      = errors.New("reference data load failed")
	ErrTimeout       = errors.New("timeout")
	ErrRateLimited   = errors.New("rate limited")
	ErrInternalError = errors.New("internal error")
)

// ErrorType categorizes a governance error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeDataLoad   ErrorType = "data_load"
	ErrorTypeNarrative  ErrorType = "narrative"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeInternal   ErrorType = "internal"
)

// EvalError is a structured error raised by the evaluation pipeline.
type EvalError struct {
	Type      ErrorType
	Op        string // Operation that failed (e.g., "evaluate", "load_rules")
	Subject   string // Agent or dataset the failure relates to
	Err       error
	Timestamp time.Time
	Retryable bool
}

func (e *EvalError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for the base error types.
func (e *EvalError) Is(target error) bool {
	if target == nil {
		return false
	}
	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrDataLoad:
		return e.Type == ErrorTypeDataLoad
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	}
	return errors.Is(e.Err, target)
}

// NewEvalError creates a structured evaluation error.
func NewEvalError(errorType ErrorType, op, subject string, err error) *EvalError {
	return &EvalError{
		Type:      errorType,
		Op:        op,
		Subject:   subject,
		Err:       err,
		Timestamp: time.Now(),
		Retryable: isRetryable(errorType),
	}
}

func isRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTimeout, ErrorTypeNarrative:
		return true
	default:
		return false
	}
}

// IsValidationError reports whether err is a construction-boundary
// validation failure that should map to a client error.
func IsValidationError(err error) bool {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Type == ErrorTypeValidation
	}
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryableError reports whether the operation may be retried.
func IsRetryableError(err error) bool {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Retryable
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}
