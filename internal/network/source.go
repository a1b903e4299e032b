package network

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// Source supplies i.i.d. standard normal draws. *rand.Rand satisfies it.
type Source interface {
	NormFloat64() float64
}

// NewSource returns a seeded generator. Each run owns its own handle so that
// results do not depend on the order in which runs are scheduled.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// BaseMatrix draws an n x n matrix of unit-variance entries, row by row.
func BaseMatrix(src Source, n int) (*dynamo.Matrix, error) {
	if n <= 0 {
		return nil, fmt.Errorf("network size %d: %w", n, dynamo.ErrInvalidDimension)
	}
	m, err := dynamo.NewMatrix(n, n)
	if err != nil {
		return nil, err
	}
	for i := range m.Data {
		m.Data[i] = src.NormFloat64()
	}
	return m, nil
}

// InitialState draws x0 ~ N(0, 1) per unit.
func InitialState(src Source, n int) dynamo.State {
	x := make(dynamo.State, n)
	for i := range x {
		x[i] = src.NormFloat64()
	}
	return x
}
