package integrators

import (
	"math"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	rtol     float64
	atol     float64

	x2, x3, x4, x5, x6 dynamo.State
}

func NewRK45() *RK45 {
	return NewRK45WithTolerance(1e-6, 1e-9)
}

func NewRK45WithTolerance(rtol, atol float64) *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		rtol:     rtol,
		atol:     atol,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.x2) != n {
		r.x2 = make(dynamo.State, n)
		r.x3 = make(dynamo.State, n)
		r.x4 = make(dynamo.State, n)
		r.x5 = make(dynamo.State, n)
		r.x6 = make(dynamo.State, n)
	}
}

// Step takes one uncontrolled fifth-order step.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	xNew, _, _ := r.Attempt(dyn, x, dyn.Derive(x, t), t, dt)
	return xNew
}

// Attempt takes one step of size dt from (t, x) with k1 = f(x, t) supplied by
// the caller. It returns the fifth-order solution, f at that solution (the
// first stage of the next step), and the RMS error norm scaled by
// atol + rtol*max(|x|, |xNew|). The step is acceptable when errNorm <= 1.
func (r *RK45) Attempt(dyn dynamo.System, x, k1 dynamo.State, t, dt float64) (dynamo.State, dynamo.State, float64) {
	n := len(x)
	r.ensureScratch(n)

	for i := 0; i < n; i++ {
		r.x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(r.x2, t+a2*dt)

	for i := 0; i < n; i++ {
		r.x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(r.x3, t+a3*dt)

	for i := 0; i < n; i++ {
		r.x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(r.x4, t+a4*dt)

	for i := 0; i < n; i++ {
		r.x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(r.x5, t+a5*dt)

	for i := 0; i < n; i++ {
		r.x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(r.x6, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derive(xNew, t+dt)

	sumSq := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := r.atol + r.rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sumSq += e * e
	}
	errNorm := 0.0
	if n > 0 {
		errNorm = math.Sqrt(sumSq / float64(n))
	}

	return xNew, k7, errNorm
}

// NextStep proposes the following step size given the error norm of the last attempt.
func (r *RK45) NextStep(dt, errNorm float64) float64 {
	if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
		return dt * r.minScale
	}
	if errNorm > 1 {
		return dt * math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.2))
	}
	if errNorm == 0 {
		return dt * r.maxScale
	}
	return dt * math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2))
}

// InitialStep picks a starting step from the local scale of x and f(x).
func (r *RK45) InitialStep(dyn dynamo.System, x, k1 dynamo.State, t float64) float64 {
	n := len(x)
	if n == 0 {
		return 1e-3
	}
	d0, d1 := 0.0, 0.0
	for i := 0; i < n; i++ {
		sc := r.atol + r.rtol*math.Abs(x[i])
		d0 += (x[i] / sc) * (x[i] / sc)
		d1 += (k1[i] / sc) * (k1[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(n))
	d1 = math.Sqrt(d1 / float64(n))

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}

	x1 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x1[i] = x[i] + h0*k1[i]
	}
	f1 := dyn.Derive(x1, t+h0)

	d2 := 0.0
	for i := 0; i < n; i++ {
		sc := r.atol + r.rtol*math.Abs(x[i])
		diff := (f1[i] - k1[i]) / sc
		d2 += diff * diff
	}
	d2 = math.Sqrt(d2/float64(n)) / h0

	var h1 float64
	if math.Max(d1, d2) <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 0.2)
	}
	return math.Min(100*h0, h1)
}
