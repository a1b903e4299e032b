package dynamo

import "fmt"

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("matrix %dx%d: %w", rows, cols, ErrInvalidDimension)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}, nil
}

// Identity returns the n x n identity.
func Identity(n int) *Matrix {
	m := &Matrix{Rows: n, Cols: n, Data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// MatrixFromRows copies a slice-of-rows representation.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix: %w", ErrInvalidDimension)
	}
	cols := len(rows[0])
	m := &Matrix{Rows: len(rows), Cols: cols, Data: make([]float64, len(rows)*cols)}
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(r), cols, ErrInvalidDimension)
		}
		copy(m.Data[i*cols:], r)
	}
	return m, nil
}

func (m *Matrix) At(i, j int) float64     { return m.Data[i*m.Cols+j] }
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.Cols+j] = v }

// Row returns a view of row i; writes go through to the matrix.
func (m *Matrix) Row(i int) []float64 { return m.Data[i*m.Cols : (i+1)*m.Cols] }

func (m *Matrix) IsSquare() bool { return m.Rows == m.Cols }

func (m *Matrix) Clone() *Matrix {
	c := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// Diagonal returns a copy of the main diagonal.
func (m *Matrix) Diagonal() []float64 {
	n := min(m.Rows, m.Cols)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = m.At(i, i)
	}
	return d
}

// MulVec computes m*v serially.
func (m *Matrix) MulVec(v State) State {
	out := make(State, m.Rows)
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		sum := 0.0
		for j, a := range row {
			sum += a * v[j]
		}
		out[i] = sum
	}
	return out
}
