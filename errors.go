package fishswarm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is wrapped by every parameter validation error.
	ErrConfig = errors.New("fishswarm: invalid configuration")

	// ErrNumerical is wrapped when a position or velocity becomes non-finite.
	ErrNumerical = errors.New("fishswarm: numerical instability")

	// ErrCompleted is returned when stepping a simulation that has already
	// reached its total number of steps.
	ErrCompleted = errors.New("fishswarm: simulation completed")

	// ErrUninitialized is returned when stepping a Simulation
	// that was not created with New.
	ErrUninitialized = errors.New("fishswarm: simulation not initialized")
)

// A ConfigError reports an invalid parameter value.
type ConfigError struct {
	Field  string // name of the offending parameter
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fishswarm: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrConfig) hold.
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// configErrorf builds a ConfigError for the given field.
func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// A NumericalError reports a particle whose state became non-finite.
type NumericalError struct {
	Step     int
	Particle int
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("fishswarm: non-finite state for particle %d at step %d", e.Particle, e.Step)
}

// Unwrap makes errors.Is(err, ErrNumerical) hold.
func (e *NumericalError) Unwrap() error {
	return ErrNumerical
}
