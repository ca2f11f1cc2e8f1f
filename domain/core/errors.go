package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

	// Construction errors
	ErrInsufficientItems = errors.New("insufficient items for balanced quota")
	ErrNoItems           = errors.New("no classifiable items")
	ErrInvalidParameter  = errors.New("invalid construction parameter")

	// Delivery errors
	ErrConsentDeclined = errors.New("participant declined consent")
	ErrAborted         = errors.New("delivery aborted")
	ErrInvalidRating   = errors.New("rating outside 1..7")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewParameterError(name string, value int) error {
	return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidParameter, name, value)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError reports whether err is fatal to a construction run.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInsufficientItems) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrNoItems)
}

func IsDeliveryInterruption(err error) bool {
	return errors.Is(err, ErrConsentDeclined) || errors.Is(err, ErrAborted)
}
