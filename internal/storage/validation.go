// Package storage provides the data persistence layer for the moderator.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidTask     = errors.New("invalid moderation task")
	ErrInvalidDecision = errors.New("invalid decision entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateProduct(p *model.Product) error {
	if p == nil {
		return fmt.Errorf("%w: product", ErrNilParameter)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	return nil
}

func validateTask(t *model.ModerationTask) error {
	if t == nil {
		return fmt.Errorf("%w: task", ErrNilParameter)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return nil
}

func validateDecision(e *model.DecisionEntry) error {
	if e == nil {
		return fmt.Errorf("%w: decision", ErrNilParameter)
	}
	if strings.TrimSpace(e.InputHash) == "" {
		return fmt.Errorf("%w: input hash is required", ErrInvalidDecision)
	}
	if e.DecisionType == "" {
		return fmt.Errorf("%w: decision type is required", ErrInvalidDecision)
	}
	if len(e.Result) == 0 {
		return fmt.Errorf("%w: result is required", ErrInvalidDecision)
	}
	if e.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiry is required", ErrInvalidDecision)
	}
	return nil
}
