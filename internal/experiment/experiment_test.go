package experiment

import (
	"bytes"
	"context"
	"log"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaosnet/internal/analysis"
	"github.com/san-kum/chaosnet/internal/config"
	"github.com/san-kum/chaosnet/internal/dynamo"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.N = 10
	cfg.Couplings = []float64{0.5, 0.8}
	cfg.Runs = 2
	cfg.Seed = 11
	cfg.BurnIn = dynamo.Window{T0: 0, Tf: 20, Dt: 1}
	cfg.Observe = dynamo.Window{T0: 0, Tf: 10, Dt: 0.1}
	cfg.Lyapunov = config.LyapunovConfig{
		Enabled:      true,
		Window:       dynamo.Window{T0: 0, Tf: 5, Dt: 0.5},
		Perturbation: 1e-6,
	}
	cfg.Correlation = config.CorrelationConfig{Mode: "ensemble"}
	return cfg
}

func TestPlan(t *testing.T) {
	cfg := smallConfig()
	params, err := Plan(cfg)
	require.NoError(t, err)
	require.Len(t, params, 4)

	assert.Same(t, params[0].Base, params[1].Base, "couplings of one run share the base draw")
	assert.NotSame(t, params[0].Base, params[2].Base)
	assert.Equal(t, 0.5, params[0].Coupling)
	assert.Equal(t, 0.8, params[1].Coupling)
	assert.Equal(t, 1, params[2].RunIndex)
	assert.InDelta(t, 1e-6, params[0].Delta.Norm(), 1e-15)

	again, err := Plan(cfg)
	require.NoError(t, err)
	assert.Equal(t, params[3].X0, again[3].X0)

	cfg.N = 0
	_, err = Plan(cfg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidDimension)
}

func TestSimulate(t *testing.T) {
	params, err := Plan(smallConfig())
	require.NoError(t, err)

	res, err := Simulate(context.Background(), params[0])
	require.NoError(t, err)
	assert.False(t, res.Skipped())

	require.Equal(t, 101, res.Trajectory.Len())
	assert.Len(t, res.Correlation, 201)
	require.NotNil(t, res.Lyapunov)
	assert.Len(t, res.Lyapunov.Exponents, 11)
	assert.Less(t, res.Metrics["lyapunov"], 0.0)

	for _, key := range []string{"rms_activity", "norm_ratio", "stability", "correlation_time", "dominant_frequency", "lyapunov"} {
		assert.Contains(t, res.Metrics, key)
	}
	assert.Equal(t, 1.0, res.Metrics["stability"])
	assert.Equal(t, 0.0, res.Metrics["lyapunov_nonfinite"])
	assert.NoError(t, res.Overflow)
	assert.Greater(t, res.Stats.Accepted, 0)
}

func TestRecordLyapunov_FlagsNonFinite(t *testing.T) {
	res := &RunResult{Metrics: map[string]float64{}}
	recordLyapunov(res, &analysis.LyapunovSeries{
		Times:     []float64{0, 1, 2},
		Exponents: []float64{0, math.Inf(1), math.NaN()},
	})

	assert.True(t, math.IsNaN(res.Metrics["lyapunov"]))
	assert.Equal(t, 2.0, res.Metrics["lyapunov_nonfinite"])
	assert.ErrorIs(t, res.Overflow, dynamo.ErrNumericOverflow)
	assert.False(t, res.Skipped())
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(&dynamo.SimulationError{Wrapped: dynamo.ErrIntegrationDivergence}))
	assert.False(t, Recoverable(dynamo.ErrNumericOverflow))
	assert.False(t, Recoverable(dynamo.ErrInvalidParameter))
}

func TestSimulate_Deterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Lyapunov.Enabled = false
	params, err := Plan(cfg)
	require.NoError(t, err)

	a, err := Simulate(context.Background(), params[1])
	require.NoError(t, err)
	b, err := Simulate(context.Background(), params[1])
	require.NoError(t, err)
	assert.Equal(t, a.Trajectory, b.Trajectory)
	assert.Nil(t, a.Lyapunov)
	assert.NotContains(t, a.Metrics, "lyapunov")
}

func TestSimulate_DrawsWhenUnplanned(t *testing.T) {
	params, err := Plan(smallConfig())
	require.NoError(t, err)
	p := params[0]
	p.Base, p.X0, p.Delta = nil, nil, nil

	planned, err := Simulate(context.Background(), params[0])
	require.NoError(t, err)
	drawn, err := Simulate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, planned.Trajectory, drawn.Trajectory)
}

func TestRunAll_SkipsDivergentRuns(t *testing.T) {
	cfg := smallConfig()
	cfg.Runs = 1
	cfg.BurnIn = dynamo.Window{T0: 0, Tf: 100, Dt: 1}
	params, err := Plan(cfg)
	require.NoError(t, err)
	params[0].Solver.MaxSteps = 5

	var buf bytes.Buffer
	var seen atomic.Int32
	r := NewRunner(2, log.New(&buf, "", 0))
	r.OnResult = func(*RunResult) { seen.Add(1) }
	r.DropTrajectories = true

	results, err := r.RunAll(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Skipped())
	assert.ErrorIs(t, results[0].Err, dynamo.ErrIntegrationDivergence)
	assert.False(t, results[1].Skipped())
	assert.Nil(t, results[1].Trajectory)
	assert.NotEmpty(t, results[1].Correlation)

	assert.Equal(t, int32(2), seen.Load())
	assert.Contains(t, buf.String(), "skipping")
}

func TestRunAll_AbortsOnInvalidParams(t *testing.T) {
	params, err := Plan(smallConfig())
	require.NoError(t, err)
	params[2].Coupling = -1

	_, err = NewRunner(1, nil).RunAll(context.Background(), params)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestRunAll_Canceled(t *testing.T) {
	params, err := Plan(smallConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(1, nil).RunAll(ctx, params)
	assert.ErrorIs(t, err, context.Canceled)
}
