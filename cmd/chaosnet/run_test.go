package main

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/chaosnet/internal/experiment"
)

func result(sigma, lambda, tau float64) *experiment.RunResult {
	return &experiment.RunResult{
		Params:          experiment.RunParams{Coupling: sigma},
		Metrics:         map[string]float64{"lyapunov": lambda},
		CorrelationTime: tau,
	}
}

func TestSweepCurves_CountsNonFinite(t *testing.T) {
	skipped := result(1.5, 0.3, 1)
	skipped.Err = errors.New("diverged")

	c := sweepCurves([]*experiment.RunResult{
		result(1.5, 0.2, 4),
		result(0.5, -1, 1),
		result(1.5, math.Inf(1), math.Inf(1)),
		result(0.5, -0.5, 3),
		result(1.5, math.NaN(), 2),
		skipped,
		nil,
	})

	if len(c.sigmas) != 2 || c.sigmas[0] != 0.5 || c.sigmas[1] != 1.5 {
		t.Fatalf("sigmas = %v, want [0.5 1.5]", c.sigmas)
	}
	if c.lambdaExcluded != 2 {
		t.Errorf("lambdaExcluded = %d, want 2", c.lambdaExcluded)
	}
	if c.tauExcluded != 1 {
		t.Errorf("tauExcluded = %d, want 1", c.tauExcluded)
	}
	if c.lambdas[0] != -0.75 || c.lambdas[1] != 0.2 {
		t.Errorf("lambdas = %v, want [-0.75 0.2]", c.lambdas)
	}
	if c.taus[0] != 2 || c.taus[1] != 3 {
		t.Errorf("taus = %v, want [2 3]", c.taus)
	}
}

func TestSweepCurves_NoExponentWhenDisabled(t *testing.T) {
	res := result(1.0, 0, 2)
	delete(res.Metrics, "lyapunov")

	c := sweepCurves([]*experiment.RunResult{res})
	if c.lambdaExcluded != 0 {
		t.Errorf("a missing exponent is not an excluded one, got %d", c.lambdaExcluded)
	}
	if !math.IsNaN(c.lambdas[0]) {
		t.Errorf("lambda mean = %v, want NaN", c.lambdas[0])
	}
}
