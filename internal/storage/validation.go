// Package storage provides the data persistence layer for roomrush.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/roomrush/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidMapping   = errors.New("invalid room id mapping")
	ErrInvalidRun       = errors.New("invalid run record")
	ErrInvalidPosition  = errors.New("invalid condition position")
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

func validateCondition(c model.Condition) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	return nil
}

func validateMapping(m model.RoomIDMapping) error {
	if m.ConditionKey == "" {
		return fmt.Errorf("%w: missing condition key", ErrInvalidMapping)
	}
	if m.ConditionKey != m.Condition.Key() {
		return fmt.Errorf("%w: key %q does not match its condition", ErrInvalidMapping, m.ConditionKey)
	}
	if m.LastUpdated.IsZero() {
		return fmt.Errorf("%w: missing last updated time", ErrInvalidMapping)
	}
	return nil
}

func validateRun(r model.RunRecord) error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if r.Outcome == "" {
		return fmt.Errorf("%w: missing outcome", ErrInvalidRun)
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	return nil
}
