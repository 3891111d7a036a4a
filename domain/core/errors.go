package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Request validation errors
	ErrInsufficientVariables = errors.New("at least two variables required")
	ErrInvalidMethod         = errors.New("invalid correlation method")
	ErrInvalidThreshold      = errors.New("threshold out of bounds")
	ErrInvalidDateRange      = errors.New("invalid date range")

	// Data access errors
	ErrDataUnavailable = errors.New("variable data unavailable")
	ErrNoObservations  = errors.New("no observations in requested window")

	// Per-pair errors (recovered locally, never abort a batch)
	ErrInsufficientOverlap = errors.New("insufficient overlapping observations")
	ErrConstantSeries      = errors.New("constant series has undefined correlation")
)

// Error constructors with context
func NewDataUnavailableError(varKey VariableKey, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDataUnavailable, varKey, err)
}

func NewOverlapError(varX, varY VariableKey, overlap int) error {
	return fmt.Errorf("%w: %s/%s overlap %d", ErrInsufficientOverlap, varX, varY, overlap)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInsufficientVariables) ||
		errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrInvalidThreshold) ||
		errors.Is(err, ErrInvalidDateRange)
}
