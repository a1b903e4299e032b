// Package analysis extracts chaos diagnostics from integrated trajectories.
//
//   - [LocalLyapunov]: finite-time growth rate of a perturbation carried by the
//     variational equation along a reference trajectory
//   - [SingleUnit], [Ensemble]: normalized full autocorrelation of activity
//   - [PowerSpectrum], [DominantFrequency]: spectral content of one unit
//   - [PhasePortrait]: projection of a trajectory onto two units
//   - [Bifurcation]: local maxima of one unit across a coupling sweep
//
// # Chaos Detection
//
// A positive late-time local exponent indicates chaotic dynamics:
//
//	series, err := analysis.LocalLyapunov(ctx, solver, model, times, x0, x0.Add(delta))
//	if err == nil && series.Last() > 0 {
//	    // chaotic regime
//	}
//
// Functions here never suppress non-finite values; use [Overflowed] to flag
// them.
package analysis
