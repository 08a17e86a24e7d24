// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Lookup and input errors.
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Flow control. A cancelled region selection or capture is a terminal
	// state, not a failure.
	ErrCancelled         = errors.New("cancelled by user")
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrInvalidState      = errors.New("invalid state for operation")

	// OCR errors.
	ErrNoEngine            = errors.New("no OCR engine available")
	ErrEngineUnavailable   = errors.New("OCR engine unavailable")
	ErrLanguageUnavailable = errors.New("language data unavailable")
	ErrInvalidImage        = errors.New("invalid or empty image")

	// Output errors.
	ErrPathOutsideHome = errors.New("path is outside the home directory")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsCancellation reports whether err ends an operation without being a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
