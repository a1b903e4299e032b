package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}

	if dot := a.Dot(b); dot != 32 {
		t.Errorf("Dot failed: got %v", dot)
	}
}

func TestWindow_TimesIncludesEndpoint(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		n    int
	}{
		{"unit grid", Window{T0: 0, Tf: 5, Dt: 1}, 6},
		{"accumulating tenth", Window{T0: 0, Tf: 0.3, Dt: 0.1}, 4},
		{"long burn-in", Window{T0: 0, Tf: 6000, Dt: 0.1}, 60001},
		{"single point", Window{T0: 2, Tf: 2, Dt: 0.5}, 1},
		{"offset start", Window{T0: 1.5, Tf: 2.5, Dt: 0.25}, 5},
		{"inexact tenths", Window{T0: 0, Tf: 1.2, Dt: 0.3}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times, err := tt.w.Times()
			if err != nil {
				t.Fatalf("Times() error: %v", err)
			}
			if len(times) != tt.n {
				t.Fatalf("expected %d samples, got %d", tt.n, len(times))
			}
			for i := 1; i < len(times); i++ {
				if math.Abs(times[i]-times[i-1]-tt.w.Dt) > 1e-9 {
					t.Errorf("interval %d is %v, want %v", i, times[i]-times[i-1], tt.w.Dt)
				}
			}
			if times[0] != tt.w.T0 {
				t.Errorf("first sample %v, want %v", times[0], tt.w.T0)
			}
			if times[len(times)-1] != tt.w.Tf {
				t.Errorf("last sample %v, want exactly %v", times[len(times)-1], tt.w.Tf)
			}
			if err := ValidateTimes(times); err != nil {
				t.Errorf("grid not monotonic: %v", err)
			}
		})
	}
}

func TestWindow_Invalid(t *testing.T) {
	tests := []struct {
		name string
		w    Window
	}{
		{"zero dt", Window{T0: 0, Tf: 1, Dt: 0}},
		{"negative dt", Window{T0: 0, Tf: 1, Dt: -0.1}},
		{"reversed", Window{T0: 2, Tf: 1, Dt: 0.1}},
		{"nan", Window{T0: math.NaN(), Tf: 1, Dt: 0.1}},
		{"shorter than one step", Window{T0: 0, Tf: 0.4, Dt: 1}},
		{"uneven last step", Window{T0: 0, Tf: 5, Dt: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.w.Times()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestValidateTimes(t *testing.T) {
	if err := ValidateTimes([]float64{0, 1, 1, 2}); err != nil {
		t.Errorf("repeated samples should be allowed: %v", err)
	}
	if err := ValidateTimes([]float64{0, 2, 1}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for decreasing grid, got %v", err)
	}
	if err := ValidateTimes([]float64{0, math.Inf(1)}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for infinite sample, got %v", err)
	}
}

func TestSolverConfig_Validate(t *testing.T) {
	if err := DefaultSolverConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := DefaultSolverConfig()
	bad.RTol, bad.ATol = 0, 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}

	bad = DefaultSolverConfig()
	bad.MaxStep = 1e-3
	bad.MinStep = 1e-2
	if err := bad.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestTrajectory(t *testing.T) {
	tr := NewTrajectory(3)
	tr.Append(0, State{3, 4})
	tr.Append(1, State{0, 1})

	if tr.Len() != 2 || tr.Dim() != 2 {
		t.Fatalf("unexpected shape %d x %d", tr.Len(), tr.Dim())
	}
	if u := tr.Unit(0); u[0] != 3 || u[1] != 0 {
		t.Errorf("Unit(0) = %v", u)
	}
	if norms := tr.Norms(); norms[0] != 5 || norms[1] != 1 {
		t.Errorf("Norms() = %v", norms)
	}
	if last := tr.Last(); last[1] != 1 {
		t.Errorf("Last() = %v", last)
	}
}

func TestMatrix(t *testing.T) {
	m, err := MatrixFromRows([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("MatrixFromRows: %v", err)
	}
	v := m.MulVec(State{1, 1})
	if v[0] != 3 || v[1] != 7 {
		t.Errorf("MulVec = %v", v)
	}
	if d := m.Diagonal(); d[0] != 1 || d[1] != 4 {
		t.Errorf("Diagonal = %v", d)
	}

	id := Identity(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if id.At(i, j) != want {
				t.Errorf("Identity(%d,%d) = %v", i, j, id.At(i, j))
			}
		}
	}

	if _, err := NewMatrix(0, 3); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension, got %v", err)
	}
	if _, err := MatrixFromRows([][]float64{{1, 2}, {3}}); !errors.Is(err, ErrInvalidDimension) {
		t.Errorf("expected ErrInvalidDimension for ragged rows, got %v", err)
	}
}

func TestParallelFor_CoversRange(t *testing.T) {
	n := 1037
	hits := make([]int, n)
	ParallelFor(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			hits[i]++
		}
	})
	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, StepSize: 1e-13, Wrapped: ErrIntegrationDivergence}
	if !errors.Is(err, ErrIntegrationDivergence) {
		t.Error("SimulationError should unwrap to its sentinel")
	}
	expected := "step 150 (t=1.5, h=1e-13): dynamo: integration diverged"
	if err.Error() != expected {
		t.Errorf("SimulationError.Error() = %q, want %q", err.Error(), expected)
	}
}
