package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return math.Sqrt(s.Dot(s))
}

func (s State) Dot(other State) float64 {
	sum := 0.0
	for i := range s {
		sum += s[i] * other[i]
	}
	return sum
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous or time-dependent vector field dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Linearizable systems expose the Jacobian Df_ij = df_i/dx_j at x.
type Linearizable interface {
	System
	Jacobian(x State) *Matrix
}

// Integrator advances a state by one fixed step.
type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Trajectory holds sampled states. Times and States always have equal length.
type Trajectory struct {
	Times  []float64
	States []State
}

func NewTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		Times:  make([]float64, 0, capacity),
		States: make([]State, 0, capacity),
	}
}

func (tr *Trajectory) Append(t float64, x State) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, x)
}

func (tr *Trajectory) Len() int { return len(tr.States) }

// Dim returns the state dimension, or 0 for an empty trajectory.
func (tr *Trajectory) Dim() int {
	if len(tr.States) == 0 {
		return 0
	}
	return len(tr.States[0])
}

// Last returns the final sampled state.
func (tr *Trajectory) Last() State {
	if len(tr.States) == 0 {
		return nil
	}
	return tr.States[len(tr.States)-1]
}

// Unit extracts the time series of one state component.
func (tr *Trajectory) Unit(i int) []float64 {
	series := make([]float64, len(tr.States))
	for k, x := range tr.States {
		series[k] = x[i]
	}
	return series
}

// Norms returns ||x(t)|| for every sample.
func (tr *Trajectory) Norms() []float64 {
	norms := make([]float64, len(tr.States))
	for k, x := range tr.States {
		norms[k] = x.Norm()
	}
	return norms
}

// Window is a uniform sample grid from T0 to Tf inclusive with spacing Dt.
type Window struct {
	T0 float64 `yaml:"t0" json:"t0"`
	Tf float64 `yaml:"tf" json:"tf"`
	Dt float64 `yaml:"dt" json:"dt"`
}

func (w Window) Validate() error {
	for _, v := range []float64{w.T0, w.Tf, w.Dt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("window (%g, %g, %g): %w", w.T0, w.Tf, w.Dt, ErrInvalidParameter)
		}
	}
	if w.Dt <= 0 {
		return fmt.Errorf("window dt must be positive, got %g: %w", w.Dt, ErrInvalidParameter)
	}
	if w.Tf < w.T0 {
		return fmt.Errorf("window tf %g before t0 %g: %w", w.Tf, w.T0, ErrInvalidParameter)
	}
	steps := (w.Tf - w.T0) / w.Dt
	if math.Abs(steps-math.Round(steps)) > 1e-9*math.Max(1, steps) {
		return fmt.Errorf("window span %g is not a multiple of dt %g: %w", w.Tf-w.T0, w.Dt, ErrInvalidParameter)
	}
	return nil
}

// Steps is the number of dt intervals in the window, counted rather than
// accumulated so the endpoint survives float rounding.
func (w Window) Steps() int {
	return int(math.Round((w.Tf - w.T0) / w.Dt))
}

// Times returns Steps()+1 evenly spaced sample points starting at T0; the last
// one is exactly Tf. Windows whose span is not a whole number of steps are
// rejected.
func (w Window) Times() ([]float64, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	n := w.Steps()
	times := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		times[i] = w.T0 + float64(i)*w.Dt
	}
	times[n] = w.Tf
	if n > 0 && times[n] < times[n-1] {
		times[n-1] = times[n]
	}
	return times, nil
}

// Duration returns Tf - T0.
func (w Window) Duration() float64 { return w.Tf - w.T0 }

// ValidateTimes checks that a sample grid is finite and non-decreasing.
func ValidateTimes(times []float64) error {
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("sample %d is not finite: %w", i, ErrInvalidParameter)
		}
		if i > 0 && t < times[i-1] {
			return fmt.Errorf("sample %d (t=%g) precedes sample %d (t=%g): %w",
				i, t, i-1, times[i-1], ErrInvalidParameter)
		}
	}
	return nil
}

// SolverConfig holds error-control settings for adaptive integration.
type SolverConfig struct {
	Method   string  `yaml:"method" json:"method"`
	RTol     float64 `yaml:"rtol" json:"rtol"`
	ATol     float64 `yaml:"atol" json:"atol"`
	MinStep  float64 `yaml:"min_step" json:"min_step"`
	MaxStep  float64 `yaml:"max_step" json:"max_step"`
	MaxSteps int     `yaml:"max_steps" json:"max_steps"`
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Method:   "rk45",
		RTol:     1e-6,
		ATol:     1e-9,
		MinStep:  1e-12,
		MaxStep:  0,
		MaxSteps: 500000,
	}
}

func (c SolverConfig) Validate() error {
	if c.RTol <= 0 && c.ATol <= 0 {
		return fmt.Errorf("tolerance must be positive (rtol=%g, atol=%g): %w", c.RTol, c.ATol, ErrInvalidParameter)
	}
	if c.RTol < 0 || c.ATol < 0 {
		return fmt.Errorf("tolerance must not be negative (rtol=%g, atol=%g): %w", c.RTol, c.ATol, ErrInvalidParameter)
	}
	if c.MinStep < 0 || c.MaxStep < 0 {
		return fmt.Errorf("step bounds must not be negative: %w", ErrInvalidParameter)
	}
	if c.MaxStep > 0 && c.MinStep > c.MaxStep {
		return fmt.Errorf("min_step %g exceeds max_step %g: %w", c.MinStep, c.MaxStep, ErrInvalidParameter)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d: %w", c.MaxSteps, ErrInvalidParameter)
	}
	return nil
}
