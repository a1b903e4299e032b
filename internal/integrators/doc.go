// Package integrators provides ODE steppers and the sample-driven solver.
//
//   - [RK45]: Dormand-Prince 5(4) with embedded error estimate
//   - [RK4]: classic fixed-step fourth order
//   - [Solver]: integrates onto a list of sample times
//   - [Stream]: keeps solver state across consecutive intervals
//
// The solver treats sample times as output requests only. The adaptive
// method steps freely, clipping its last step in each interval so samples
// land exactly, and reports dynamo.ErrIntegrationDivergence when the error
// tolerance cannot be met above the step floor.
//
//	s, _ := integrators.NewSolver(dynamo.DefaultSolverConfig())
//	times, _ := dynamo.Window{T0: 0, Tf: 100, Dt: 0.1}.Times()
//	traj, err := s.Integrate(ctx, model, x0, times)
package integrators
