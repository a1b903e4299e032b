package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// defaultFixedStep is the RK4 sub-step used when no max_step is configured.
const defaultFixedStep = 0.01

const eps = 2.220446049250313e-16

// Solver integrates a system onto requested sample times. Sample times never
// influence the internal step sequence beyond clipping the last step of each
// interval so the sample is hit exactly.
type Solver struct {
	cfg dynamo.SolverConfig
}

func NewSolver(cfg dynamo.SolverConfig) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case "", "rk45", "dopri5":
		cfg.Method = "rk45"
	case "rk4":
	default:
		return nil, fmt.Errorf("unknown integration method %q: %w", cfg.Method, dynamo.ErrInvalidParameter)
	}
	return &Solver{cfg: cfg}, nil
}

func (s *Solver) Config() dynamo.SolverConfig { return s.cfg }

// Integrate returns one sample per entry of times, the first being x0.
func (s *Solver) Integrate(ctx context.Context, dyn dynamo.System, x0 dynamo.State, times []float64) (*dynamo.Trajectory, error) {
	if err := dynamo.ValidateTimes(times); err != nil {
		return nil, err
	}
	if len(x0) != dyn.StateDim() {
		return nil, fmt.Errorf("x0 has %d components, system has %d: %w", len(x0), dyn.StateDim(), dynamo.ErrDimensionMismatch)
	}

	traj := dynamo.NewTrajectory(len(times))
	if len(times) == 0 {
		return traj, nil
	}

	st := s.NewStream(dyn, x0, times[0])
	traj.Append(times[0], x0.Clone())
	for _, t := range times[1:] {
		if err := st.AdvanceTo(ctx, t); err != nil {
			return traj, err
		}
		traj.Append(t, st.State())
	}
	return traj, nil
}

// Stats counts solver work on a stream.
type Stats struct {
	Accepted int
	Rejected int
}

// Stream carries solver state (position, FSAL derivative, step hint) across
// consecutive intervals of one trajectory.
type Stream struct {
	cfg   dynamo.SolverConfig
	dyn   dynamo.System
	rk45  *RK45
	rk4   *RK4
	x     dynamo.State
	k1    dynamo.State
	t     float64
	h     float64
	stats Stats
}

func (s *Solver) NewStream(dyn dynamo.System, x0 dynamo.State, t0 float64) *Stream {
	st := &Stream{
		cfg: s.cfg,
		dyn: dyn,
		x:   x0.Clone(),
		t:   t0,
	}
	if s.cfg.Method == "rk4" {
		st.rk4 = NewRK4()
		return st
	}
	st.rk45 = NewRK45WithTolerance(s.cfg.RTol, s.cfg.ATol)
	st.k1 = dyn.Derive(st.x, t0)
	st.h = st.rk45.InitialStep(dyn, st.x, st.k1, t0)
	return st
}

// State returns a copy of the current state.
func (st *Stream) State() dynamo.State { return st.x.Clone() }
func (st *Stream) Time() float64       { return st.t }
func (st *Stream) Stats() Stats        { return st.stats }

// Rebind swaps the vector field, keeping position and step hint. Used when the
// coefficients of a linear system are refreshed between intervals.
func (st *Stream) Rebind(dyn dynamo.System) {
	st.dyn = dyn
	if st.rk45 != nil {
		st.k1 = dyn.Derive(st.x, st.t)
	}
}

// AdvanceTo integrates from the current time to t1.
func (st *Stream) AdvanceTo(ctx context.Context, t1 float64) error {
	if t1 < st.t {
		return fmt.Errorf("cannot integrate backwards from t=%g to t=%g: %w", st.t, t1, dynamo.ErrInvalidParameter)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t1 == st.t {
		return nil
	}
	if st.rk4 != nil {
		return st.advanceFixed(ctx, t1)
	}
	return st.advanceAdaptive(ctx, t1)
}

func (st *Stream) advanceAdaptive(ctx context.Context, t1 float64) error {
	steps := 0
	for st.t < t1 {
		steps++
		if steps > st.cfg.MaxSteps {
			return st.diverged(steps, "step budget exhausted")
		}
		if steps%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		h := st.h
		if st.cfg.MaxStep > 0 && h > st.cfg.MaxStep {
			h = st.cfg.MaxStep
		}
		last := false
		if remaining := t1 - st.t; h >= remaining*(1-1e-12) {
			h = remaining
			last = true
		}

		floor := math.Max(st.cfg.MinStep, 16*eps*math.Abs(st.t))
		if h < floor && !last {
			return st.diverged(steps, "step size below floor")
		}

		xNew, k7, errNorm := st.rk45.Attempt(st.dyn, st.x, st.k1, st.t, h)
		next := st.rk45.NextStep(h, errNorm)

		if errNorm <= 1 && xNew.IsValid() {
			st.stats.Accepted++
			st.x = xNew
			st.k1 = k7
			if last {
				st.t = t1
				st.h = math.Max(st.h, next)
			} else {
				st.t += h
				st.h = next
			}
			continue
		}

		st.stats.Rejected++
		if errNorm <= 1 {
			next = h * st.rk45.minScale
		}
		st.h = math.Min(next, h)
		if st.h < floor {
			return st.diverged(steps, "tolerance not met above step floor")
		}
	}
	return nil
}

func (st *Stream) advanceFixed(ctx context.Context, t1 float64) error {
	hMax := st.cfg.MaxStep
	if hMax <= 0 {
		hMax = defaultFixedStep
	}
	span := t1 - st.t
	n := int(math.Ceil(span/hMax - 1e-9))
	if n < 1 {
		n = 1
	}
	if n > st.cfg.MaxSteps {
		return st.diverged(0, "step budget exhausted")
	}
	t0 := st.t
	h := span / float64(n)
	for i := 0; i < n; i++ {
		if i%256 == 255 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		st.x = st.rk4.Step(st.dyn, st.x, t0+float64(i)*h, h)
		st.stats.Accepted++
		if !st.x.IsValid() {
			st.t = t0 + float64(i+1)*h
			return st.diverged(i, "non-finite state")
		}
	}
	st.t = t1
	return nil
}

func (st *Stream) diverged(step int, reason string) error {
	return &dynamo.SimulationError{
		Step:     step,
		Time:     st.t,
		StepSize: st.h,
		Wrapped:  fmt.Errorf("%s: %w", reason, dynamo.ErrIntegrationDivergence),
	}
}
