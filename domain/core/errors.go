package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Shape errors
	ErrDimension = errors.New("dimension error")

	// Parameter errors
	ErrInvalidParameter = errors.New("invalid parameter")

	// Display errors
	ErrUnsupportedBiplot = errors.New("biplot unsupported")

	// Uncertainty errors
	ErrMissingUncertainty = errors.New("missing uncertainty")

	// Input errors
	ErrEmptyInput = fmt.Errorf("%w: empty input", ErrDimension)
)

// Error constructors with context
func NewDimensionError(what string, got, want int) error {
	return fmt.Errorf("%w: %s is %d, want %d", ErrDimension, what, got, want)
}

func NewDimensionMismatchError(what string, a, b int) error {
	return fmt.Errorf("%w: %s differ (%d vs %d)", ErrDimension, what, a, b)
}

func NewInvalidParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameter, field, reason)
}

func NewUnsupportedBiplotError(latent int) error {
	return fmt.Errorf("%w: model has %d latent variable(s), need at least 2", ErrUnsupportedBiplot, latent)
}

func NewMissingUncertaintyError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMissingUncertainty, reason)
}

// Error checking helpers
func IsDimensionError(err error) bool {
	return errors.Is(err, ErrDimension)
}

func IsInvalidParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

func IsUnsupportedBiplotError(err error) bool {
	return errors.Is(err, ErrUnsupportedBiplot)
}

func IsMissingUncertaintyError(err error) bool {
	return errors.Is(err, ErrMissingUncertainty)
}

// IsPreconditionError reports whether err is one of the eager input checks
// of the ordination core.
func IsPreconditionError(err error) bool {
	return IsDimensionError(err) ||
		IsInvalidParameterError(err) ||
		IsUnsupportedBiplotError(err)
}
