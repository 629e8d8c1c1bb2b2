package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrExperimentNotFound = fmt.Errorf("%w: experiment", ErrNotFound)
	ErrMetricsNotFound    = fmt.Errorf("%w: metric samples", ErrNotFound)

	// Input errors
	ErrUnknownCurve = errors.New("unknown metric curve")
	ErrUnknownGroup = errors.New("unknown sample group")
	ErrUnknownView  = errors.New("unknown view")

	// Data errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrMalformedSource  = errors.New("malformed dataset source")

	// Lifecycle errors
	ErrNotReady = errors.New("visualization not ready")
	ErrClosed   = errors.New("visualization closed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewMalformedSourceError(source string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedSource, source, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrUnknownCurve) ||
		errors.Is(err, ErrUnknownGroup) ||
		errors.Is(err, ErrUnknownView)
}
