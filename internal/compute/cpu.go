package compute

import (
	"runtime"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

// serialRows is the row count below which goroutine fan-out costs more than it saves.
const serialRows = 16

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewSerialBackend never fans out; useful when runs are already parallel.
func NewSerialBackend() *CPUBackend {
	return &CPUBackend{workers: 1}
}

func (c *CPUBackend) Name() string {
	if c.workers <= 1 {
		return "cpu-serial"
	}
	return "cpu"
}

func (c *CPUBackend) MatVecMul(mat *dynamo.Matrix, vec, dst []float64) {
	rows := mat.Rows
	if rows < serialRows || c.workers <= 1 {
		matVecRange(mat, vec, dst, 0, rows)
		return
	}
	dynamo.ParallelFor(rows, serialRows, func(start, end int) {
		matVecRange(mat, vec, dst, start, end)
	})
}

func matVecRange(mat *dynamo.Matrix, vec, dst []float64, start, end int) {
	for i := start; i < end; i++ {
		row := mat.Row(i)
		sum := 0.0
		for j, a := range row {
			sum += a * vec[j]
		}
		dst[i] = sum
	}
}

// MatMul computes dst = a*b. dst must not alias a or b.
func (c *CPUBackend) MatMul(a, b, dst *dynamo.Matrix) {
	rows := a.Rows
	if rows < serialRows || c.workers <= 1 {
		matMulRange(a, b, dst, 0, rows)
		return
	}
	dynamo.ParallelFor(rows, serialRows/4, func(start, end int) {
		matMulRange(a, b, dst, start, end)
	})
}

// matMulRange uses i-k-j ordering so the inner loop walks rows of b and dst.
func matMulRange(a, b, dst *dynamo.Matrix, start, end int) {
	n := b.Cols
	for i := start; i < end; i++ {
		out := dst.Data[i*n : (i+1)*n]
		for j := range out {
			out[j] = 0
		}
		arow := a.Row(i)
		for k, aik := range arow {
			if aik == 0 {
				continue
			}
			brow := b.Row(k)
			for j, bkj := range brow {
				out[j] += aik * bkj
			}
		}
	}
}
