package network

import (
	"fmt"
	"math"

	"github.com/san-kum/chaosnet/internal/compute"
	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Model is the random rate network dx/dt = -x + W tanh(a x) with
// W = sqrt(sigma^2/N) * base, zero diagonal, and a = gain * sigma.
type Model struct {
	n       int
	sigma   float64
	gain    float64
	gainArg float64
	w       *dynamo.Matrix
	backend compute.Backend
}

// New rescales base by sqrt(sigma^2/N) and zeroes the diagonal. base is not modified.
func New(base *dynamo.Matrix, sigma, gain float64) (*Model, error) {
	if base == nil || base.Rows <= 0 {
		return nil, fmt.Errorf("empty connectivity: %w", dynamo.ErrInvalidDimension)
	}
	if !base.IsSquare() {
		return nil, fmt.Errorf("connectivity is %dx%d: %w", base.Rows, base.Cols, dynamo.ErrInvalidDimension)
	}
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma < 0 {
		return nil, fmt.Errorf("coupling strength %g: %w", sigma, dynamo.ErrInvalidParameter)
	}
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return nil, fmt.Errorf("gain %g: %w", gain, dynamo.ErrInvalidParameter)
	}

	n := base.Rows
	scale := math.Sqrt(sigma * sigma / float64(n))
	w := base.Clone()
	for i := range w.Data {
		w.Data[i] *= scale
	}
	for i := 0; i < n; i++ {
		w.Set(i, i, 0)
	}

	return &Model{
		n:       n,
		sigma:   sigma,
		gain:    gain,
		gainArg: gain * sigma,
		w:       w,
		backend: compute.GetBackend(),
	}, nil
}

// Generate draws a fresh base matrix from src and builds a model from it.
func Generate(src Source, n int, sigma, gain float64) (*Model, error) {
	if math.IsNaN(sigma) || sigma < 0 {
		return nil, fmt.Errorf("coupling strength %g: %w", sigma, dynamo.ErrInvalidParameter)
	}
	base, err := BaseMatrix(src, n)
	if err != nil {
		return nil, err
	}
	return New(base, sigma, gain)
}

// Sweep builds one model per coupling value, all rescaled from the same base
// draw so that differences across the sweep come from sigma alone.
func Sweep(base *dynamo.Matrix, sigmas []float64, gain float64) ([]*Model, error) {
	models := make([]*Model, 0, len(sigmas))
	for _, s := range sigmas {
		m, err := New(base, s, gain)
		if err != nil {
			return nil, fmt.Errorf("sigma=%g: %w", s, err)
		}
		models = append(models, m)
	}
	return models, nil
}

// WithBackend returns a shallow copy that uses b for its products.
func (m *Model) WithBackend(b compute.Backend) *Model {
	c := *m
	c.backend = b
	return &c
}

func (m *Model) StateDim() int             { return m.n }
func (m *Model) CouplingStrength() float64 { return m.sigma }
func (m *Model) Gain() float64             { return m.gain }
func (m *Model) GainArg() float64          { return m.gainArg }

// Connectivity returns a copy of W.
func (m *Model) Connectivity() *dynamo.Matrix { return m.w.Clone() }

// Derive evaluates -x + W tanh(a x).
func (m *Model) Derive(x dynamo.State, _ float64) dynamo.State {
	phi := make([]float64, m.n)
	for j, v := range x {
		phi[j] = math.Tanh(m.gainArg * v)
	}
	dx := make(dynamo.State, m.n)
	m.backend.MatVecMul(m.w, phi, dx)
	for i := range dx {
		dx[i] -= x[i]
	}
	return dx
}

// Jacobian returns Df_ij = -delta_ij + W_ij a sech^2(a x_j).
func (m *Model) Jacobian(x dynamo.State) *dynamo.Matrix {
	slope := make([]float64, m.n)
	for j, v := range x {
		th := math.Tanh(m.gainArg * v)
		slope[j] = m.gainArg * (1 - th*th)
	}
	df := dynamo.Identity(m.n)
	for i := 0; i < m.n; i++ {
		row := df.Row(i)
		wrow := m.w.Row(i)
		for j := range row {
			row[j] = wrow[j]*slope[j] - row[j]
		}
	}
	return df
}

func (m *Model) GetParams() map[string]float64 {
	return map[string]float64{
		"n":        float64(m.n),
		"sigma":    m.sigma,
		"gain":     m.gain,
		"gain_arg": m.gainArg,
	}
}
