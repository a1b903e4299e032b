package compute

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

func randomMatrix(rng *rand.Rand, rows, cols int) *dynamo.Matrix {
	m, _ := dynamo.NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = rng.NormFloat64()
	}
	return m
}

func TestMatVecMul_MatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{3, 16, 65} {
		m := randomMatrix(rng, n, n)
		v := make([]float64, n)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		want := m.MulVec(v)

		for _, b := range []Backend{NewCPUBackend(), NewSerialBackend()} {
			got := make([]float64, n)
			b.MatVecMul(m, v, got)
			for i := range got {
				if math.Abs(got[i]-want[i]) > 1e-12 {
					t.Fatalf("%s n=%d: row %d got %v want %v", b.Name(), n, i, got[i], want[i])
				}
			}
		}
	}
}

func TestMatMul_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 40
	a := randomMatrix(rng, n, n)
	dst, _ := dynamo.NewMatrix(n, n)

	NewCPUBackend().MatMul(a, dynamo.Identity(n), dst)
	for i := range dst.Data {
		if math.Abs(dst.Data[i]-a.Data[i]) > 1e-12 {
			t.Fatalf("A*I != A at %d", i)
		}
	}
}

func TestMatMul_Small(t *testing.T) {
	a, _ := dynamo.MatrixFromRows([][]float64{{1, 2}, {3, 4}})
	b, _ := dynamo.MatrixFromRows([][]float64{{0, 1}, {1, 0}})
	dst, _ := dynamo.NewMatrix(2, 2)

	GetBackend().MatMul(a, b, dst)
	want := []float64{2, 1, 4, 3}
	for i, w := range want {
		if dst.Data[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst.Data[i], w)
		}
	}
}
