package ratelimit

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrInvalidCost is returned when an Acquire cost is not positive
	// or can never be satisfied by the configured capacity.
	ErrInvalidCost = errors.New("invalid acquire cost")
)

// ValidationError represents a limiter configuration error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the validation error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("ratelimit: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// checkCost validates an Acquire cost against a capacity.
func checkCost(cost, capacity int64) error {
	if cost <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	if cost > capacity {
		return fmt.Errorf("%w: cost %d exceeds capacity %d", ErrInvalidCost, cost, capacity)
	}
	return nil
}
