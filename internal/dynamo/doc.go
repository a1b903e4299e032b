// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Linearizable]: systems that also expose their Jacobian
//   - [Matrix]: dense row-major matrix used for connectivity and tangent maps
//   - [Trajectory]: sampled (time, state) sequence
//   - [Window]: uniform sample grid whose endpoint is always included
//
// # Errors
//
// Every failure path returns one of the package sentinels, possibly wrapped
// with context. Match with errors.Is:
//
//	if errors.Is(err, dynamo.ErrIntegrationDivergence) {
//	    // abandon this run, move on to the next
//	}
//
// # Thread Safety
//
// Values are plain data. A Matrix shared between goroutines must be treated
// as read-only.
package dynamo
