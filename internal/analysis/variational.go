package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chaosnet/internal/compute"
	"github.com/san-kum/chaosnet/internal/dynamo"
	"github.com/san-kum/chaosnet/internal/integrators"
)

// tangentSystem is the batched variational equation dPhi/dt = Phi A over a
// flattened N x N tangent map, with A frozen for one sample interval. Each row
// of Phi evolves independently as row' = row A.
type tangentSystem struct {
	a       *dynamo.Matrix
	n       int
	backend compute.Backend
}

func (ts *tangentSystem) StateDim() int { return ts.n * ts.n }

func (ts *tangentSystem) Derive(phi dynamo.State, _ float64) dynamo.State {
	out := make(dynamo.State, ts.n*ts.n)
	ts.backend.MatMul(&dynamo.Matrix{Rows: ts.n, Cols: ts.n, Data: phi},
		ts.a,
		&dynamo.Matrix{Rows: ts.n, Cols: ts.n, Data: out})
	return out
}

// LyapunovSeries is the output of [LocalLyapunov].
type LyapunovSeries struct {
	Times []float64
	// Exponents[n] = ln(|u(t_n)|^2) / (2 t_n); Exponents[0] is 0, as is any
	// sample at t = 0.
	Exponents []float64
	// Separation[n] = |u(t_n)| with u = J(t_n) u0.
	Separation []float64
	// Tangent is J at the last sample.
	Tangent *dynamo.Matrix
	// Final is the reference state at the last sample.
	Final dynamo.State
}

// Last returns the exponent at the final sample, or NaN for an empty series.
func (s *LyapunovSeries) Last() float64 {
	if len(s.Exponents) == 0 {
		return math.NaN()
	}
	return s.Exponents[len(s.Exponents)-1]
}

// NonFinite lists the sample indices whose exponent is NaN or infinite.
func (s *LyapunovSeries) NonFinite() []int {
	var idx []int
	for i, v := range s.Exponents {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Overflowed reports the first non-finite estimate as ErrNumericOverflow.
// The series itself stays intact; this is for callers that want to flag it.
func Overflowed(s *LyapunovSeries) error {
	if bad := s.NonFinite(); len(bad) > 0 {
		i := bad[0]
		return fmt.Errorf("exponent %v at t=%g (%d non-finite samples): %w",
			s.Exponents[i], s.Times[i], len(bad), dynamo.ErrNumericOverflow)
	}
	return nil
}

// LocalLyapunov propagates x0a and its tangent map J (J(t0) = I) through the
// sample grid. For every interval the Jacobian Df is evaluated at the current
// reference state and held fixed while the rows of J are integrated as
// J' = J Df; the reference state is then advanced with the full nonlinear
// field. Interval maps therefore compose left to right, J = E_1 E_2 ... E_n.
// The exponent is measured from absolute time, not from t0. The separation u = J u0 with
// u0 = x0b - x0a is never renormalized, so this estimates the leading exponent
// only.
func LocalLyapunov(
	ctx context.Context,
	solver *integrators.Solver,
	sys dynamo.Linearizable,
	times []float64,
	x0a, x0b dynamo.State,
) (*LyapunovSeries, error) {
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}
	n := sys.StateDim()
	if len(x0a) != n || len(x0b) != n {
		return nil, fmt.Errorf("initial states have %d and %d components, system has %d: %w",
			len(x0a), len(x0b), n, dynamo.ErrDimensionMismatch)
	}

	u0 := x0b.Sub(x0a)
	series := &LyapunovSeries{
		Times:      append([]float64(nil), times...),
		Exponents:  make([]float64, len(times)),
		Separation: make([]float64, len(times)),
		Tangent:    dynamo.Identity(n),
		Final:      x0a.Clone(),
	}
	if len(times) == 0 {
		return series, nil
	}
	series.Separation[0] = u0.Norm()

	backend := compute.GetBackend()
	t0 := times[0]
	xs := solver.NewStream(sys, x0a, t0)
	var js *integrators.Stream

	for k := 1; k < len(times); k++ {
		ts := &tangentSystem{a: sys.Jacobian(xs.State()), n: n, backend: backend}
		if js == nil {
			js = solver.NewStream(ts, dynamo.State(series.Tangent.Data), t0)
		} else {
			js.Rebind(ts)
		}

		if err := js.AdvanceTo(ctx, times[k]); err != nil {
			return series, fmt.Errorf("tangent map: %w", err)
		}
		if err := xs.AdvanceTo(ctx, times[k]); err != nil {
			return series, fmt.Errorf("reference trajectory: %w", err)
		}

		series.Tangent = &dynamo.Matrix{Rows: n, Cols: n, Data: js.State()}
		u := make([]float64, n)
		backend.MatVecMul(series.Tangent, u0, u)

		sq := dynamo.State(u).Dot(u)
		series.Separation[k] = math.Sqrt(sq)
		if times[k] != 0 {
			series.Exponents[k] = math.Log(sq) / (2.0 * times[k])
		}
	}
	series.Final = xs.State()

	return series, nil
}
