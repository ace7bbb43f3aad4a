package similarity

import (
	"fmt"
)

// Scores is the read-only view of a pairwise similarity matrix consumed
// by candidate generation
type Scores interface {
	Size() int
	At(i, j int) float64
	Validate() error
}

// Matrix is a symmetric cosine-similarity matrix.
// Only the strict upper triangle is stored, packed row by row; the lower
// triangle and the diagonal are derived on read, so At(i, j) == At(j, i)
// holds exactly.
type Matrix struct {
	n     int
	upper []float32
	zero  []bool // rows whose embedding has zero norm
}

func newMatrix(n int) *Matrix {
	return &Matrix{
		n:     n,
		upper: make([]float32, n*(n-1)/2),
		zero:  make([]bool, n),
	}
}

// Size returns the number of rows (statements)
func (m *Matrix) Size() int {
	return m.n
}

// At returns the cosine similarity between embeddings i and j.
// The diagonal is 1 for non-zero vectors and 0 for zero vectors.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		panic(fmt.Sprintf("similarity: index (%d, %d) out of range for %d×%d matrix", i, j, m.n, m.n))
	}
	if i == j {
		if m.zero[i] {
			return 0
		}
		return 1
	}
	if i > j {
		i, j = j, i
	}
	return float64(m.upper[m.offset(i)+j-i-1])
}

// offset returns the packed index of cell (i, i+1)
func (m *Matrix) offset(i int) int {
	return i*m.n - i*(i+1)/2
}

// row returns the packed slice holding cells (i, i+1) .. (i, n-1)
func (m *Matrix) row(i int) []float32 {
	start := m.offset(i)
	return m.upper[start : start+m.n-i-1]
}

// Validate always succeeds; Compute only builds well-formed matrices
func (m *Matrix) Validate() error {
	return nil
}

// Dense materializes the full n×n matrix. Intended for small inputs and debugging.
func (m *Matrix) Dense() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = make([]float64, m.n)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// Dense is a caller-supplied full similarity matrix, e.g. one computed on
// an accelerator. Rows must be square; symmetry is the caller's contract.
type Dense [][]float64

// Size returns the number of rows
func (d Dense) Size() int {
	return len(d)
}

// At returns entry (i, j)
func (d Dense) At(i, j int) float64 {
	return d[i][j]
}

// Validate checks that the matrix is square
func (d Dense) Validate() error {
	for i, row := range d {
		if len(row) != len(d) {
			return fmt.Errorf("row %d has %d columns, expected %d: %w", i, len(row), len(d), ErrNotSquare)
		}
	}
	return nil
}
