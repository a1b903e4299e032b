package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/dynamo"
	"github.com/san-kum/chaosnet/internal/integrators"
	"github.com/san-kum/chaosnet/internal/metrics"
	"github.com/san-kum/chaosnet/internal/network"
)

// stabilityBound is the activity level a unit must exceed for a sample to be
// counted as unstable. Bounded dynamics stay well inside it.
const stabilityBound = 10.0

// RunParams fully determines one simulation run.
type RunParams struct {
	N        int
	Coupling float64
	Gain     float64
	Seed     int64
	RunIndex int

	BurnIn      dynamo.Window
	Observe     dynamo.Window
	Solver      dynamo.SolverConfig
	Lyapunov    config.LyapunovConfig
	Correlation config.CorrelationConfig

	// Base, X0 and Delta are drawn from Seed when nil. Plan fills them so
	// every coupling of a sweep shares one draw per run index.
	Base  *dynamo.Matrix
	X0    dynamo.State
	Delta dynamo.State
}

// RunResult is the immutable record of one finished or abandoned run.
type RunResult struct {
	Params          RunParams
	Trajectory      *dynamo.Trajectory
	Lyapunov        *analysis.LyapunovSeries
	Correlation     []float64
	CorrelationTime float64
	Metrics         map[string]float64
	Stats           integrators.Stats
	Elapsed         time.Duration
	// Overflow wraps dynamo.ErrNumericOverflow when the exponent series has
	// non-finite samples. The run still counts as completed.
	Overflow error
	Err      error
}

// Skipped reports whether the run was abandoned.
func (r *RunResult) Skipped() bool { return r.Err != nil }

// Plan expands a config into one RunParams per (coupling, run index). The
// random draws depend only on the seed and run index.
func Plan(cfg *config.Config) ([]RunParams, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params := make([]RunParams, 0, cfg.Runs*len(cfg.Couplings))
	for run := 0; run < cfg.Runs; run++ {
		seed := cfg.Seed + int64(run)
		base, x0, delta, err := draw(seed, cfg.N, cfg.Lyapunov.Perturbation)
		if err != nil {
			return nil, err
		}
		for _, sigma := range cfg.Couplings {
			params = append(params, RunParams{
				N:           cfg.N,
				Coupling:    sigma,
				Gain:        cfg.Gain,
				Seed:        seed,
				RunIndex:    run,
				BurnIn:      cfg.BurnIn,
				Observe:     cfg.Observe,
				Solver:      cfg.Solver,
				Lyapunov:    cfg.Lyapunov,
				Correlation: cfg.Correlation,
				Base:        base,
				X0:          x0,
				Delta:       delta,
			})
		}
	}
	return params, nil
}

// draw produces the base matrix, the initial state and the perturbation, in
// that order, from one source.
func draw(seed int64, n int, perturbation float64) (*dynamo.Matrix, dynamo.State, dynamo.State, error) {
	src := network.NewSource(seed)
	base, err := network.BaseMatrix(src, n)
	if err != nil {
		return nil, nil, nil, err
	}
	x0 := network.InitialState(src, n)
	dir := network.InitialState(src, n)
	if norm := dir.Norm(); norm > 0 {
		dir = dir.Scale(perturbation / norm)
	}
	return base, x0, dir, nil
}

// Simulate runs burn-in, observation and the enabled diagnostics for one
// parameter set. A non-nil result is returned even on failure so the caller
// can record what was attempted.
func Simulate(ctx context.Context, p RunParams) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{Params: p, Metrics: make(map[string]float64)}

	err := simulate(ctx, &res.Params, res)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("sigma=%g run=%d: %w", p.Coupling, p.RunIndex, err)
		return res, res.Err
	}
	return res, nil
}

func simulate(ctx context.Context, p *RunParams, res *RunResult) error {
	if p.Base == nil || p.X0 == nil || p.Delta == nil {
		base, x0, delta, err := draw(p.Seed, p.N, p.Lyapunov.Perturbation)
		if err != nil {
			return err
		}
		if p.Base == nil {
			p.Base = base
		}
		if p.X0 == nil {
			p.X0 = x0
		}
		if p.Delta == nil {
			p.Delta = delta
		}
	}

	model, err := network.New(p.Base, p.Coupling, p.Gain)
	if err != nil {
		return err
	}
	solver, err := integrators.NewSolver(p.Solver)
	if err != nil {
		return err
	}

	if err := p.BurnIn.Validate(); err != nil {
		return fmt.Errorf("burn-in: %w", err)
	}
	stream := solver.NewStream(model, p.X0, p.BurnIn.T0)
	if err := stream.AdvanceTo(ctx, p.BurnIn.Tf); err != nil {
		return fmt.Errorf("burn-in: %w", err)
	}
	settled := stream.State()
	res.Stats = stream.Stats()

	times, err := p.Observe.Times()
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	traj, err := solver.Integrate(ctx, model, settled, times)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	res.Trajectory = traj

	mode, err := analysis.ParseCorrelationMode(p.Correlation.Mode)
	if err != nil {
		return err
	}
	corr, err := analysis.Correlate(traj, mode, p.Correlation.Unit)
	if err != nil {
		return err
	}
	res.Correlation = corr
	res.CorrelationTime = analysis.CorrelationTime(corr, p.Observe.Dt)

	res.Metrics = metrics.Collect(traj, metrics.Default(stabilityBound)...)
	res.Metrics["correlation_time"] = res.CorrelationTime
	unit := p.Correlation.Unit
	if unit < 0 || unit >= traj.Dim() {
		unit = 0
	}
	res.Metrics["dominant_frequency"] = analysis.DominantFrequency(traj.Unit(unit), p.Observe.Dt)

	if p.Lyapunov.Enabled {
		ltimes, err := p.Lyapunov.Window.Times()
		if err != nil {
			return fmt.Errorf("lyapunov: %w", err)
		}
		series, err := analysis.LocalLyapunov(ctx, solver, model, ltimes, settled, settled.Add(p.Delta))
		if err != nil {
			return fmt.Errorf("lyapunov: %w", err)
		}
		recordLyapunov(res, series)
	}
	return nil
}

// recordLyapunov stores the series and its summary scalars. Non-finite
// samples are counted under lyapunov_nonfinite and reported through
// res.Overflow rather than dropped.
func recordLyapunov(res *RunResult, series *analysis.LyapunovSeries) {
	res.Lyapunov = series
	res.Metrics["lyapunov"] = series.Last()
	res.Metrics["lyapunov_nonfinite"] = float64(len(series.NonFinite()))
	res.Overflow = analysis.Overflowed(series)
}
