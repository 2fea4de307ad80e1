// Package common provides shared utilities and types used across the moderator.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Reasoning service errors.
	ErrAdapterResponse = errors.New("unusable reasoning service response")
	ErrAdapterAuth     = errors.New("reasoning service rejected credentials")

	// Moderation errors.
	ErrTooManyInputs = errors.New("too many inputs in one batch")
	ErrQueueClosed   = errors.New("batch queue closed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the operator.
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

// NewUserError creates a new operator-facing error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry. Errors marked
// with a RetryableError follow the mark; otherwise cancellation and
// rejected credentials are final and everything else is worth another try.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, ErrAdapterAuth) {
		return false
	}
	return true
}
