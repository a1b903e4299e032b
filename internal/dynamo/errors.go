package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidDimension indicates a non-positive network size or a non-square matrix.
	ErrInvalidDimension = errors.New("dynamo: invalid dimension")

	// ErrInvalidParameter indicates a negative coupling, a bad time grid or bad solver settings.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrIntegrationDivergence indicates the solver could not meet its tolerance
	// above the step-size floor, ran out of steps, or produced a non-finite state.
	ErrIntegrationDivergence = errors.New("dynamo: integration diverged")

	// ErrNumericOverflow tags a non-finite Lyapunov estimate. It is reported, never returned
	// as a failure of the propagator itself.
	ErrNumericOverflow = errors.New("dynamo: non-finite estimate")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step     int
	Time     float64
	StepSize float64
	Wrapped  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g, h=%.3g): %v", e.Step, e.Time, e.StepSize, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
