package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/worker"
)

var (
	// ErrDimensionMismatch means the embedding batch mixes vector lengths
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyEmbedding means a vector has no components
	ErrEmptyEmbedding = errors.New("embedding has no components")
	// ErrNonFinite means a vector contains NaN or Inf
	ErrNonFinite = errors.New("embedding contains non-finite values")
	// ErrNotSquare means a supplied dense matrix is not n×n
	ErrNotSquare = errors.New("similarity matrix is not square")
)

// Compute builds the cosine-similarity matrix for the embeddings.
// Rows are computed concurrently; every cell is produced by a single job
// with a fixed summation order, so results do not depend on workers.
func Compute(ctx context.Context, embeddings []model.Embedding, workers int) (*Matrix, error) {
	n := len(embeddings)
	if n == 0 {
		return newMatrix(0), nil
	}

	if err := Validate(embeddings); err != nil {
		return nil, err
	}

	m := newMatrix(n)
	unit := make([][]float64, n)
	for i, e := range embeddings {
		unit[i] = normalize(e)
		m.zero[i] = unit[i] == nil
	}

	jobs := make([]worker.Job, 0, n)
	for i := 0; i < n-1; i++ {
		jobs = append(jobs, &rowJob{row: i, unit: unit, out: m.row(i)})
	}

	if err := worker.RunAll(ctx, workers, jobs); err != nil {
		return nil, fmt.Errorf("compute similarity rows: %w", err)
	}

	return m, nil
}

// Validate checks the embedding batch invariants: non-empty vectors,
// one shared dimensionality, finite components
func Validate(embeddings []model.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	dim := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) == 0 {
			return fmt.Errorf("embedding %d: %w", i, ErrEmptyEmbedding)
		}
		if len(e) != dim {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d: %w", i, len(e), dim, ErrDimensionMismatch)
		}
		for _, v := range e {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("embedding %d: %w", i, ErrNonFinite)
			}
		}
	}
	return nil
}

// Cosine returns the cosine similarity of two equal-length vectors,
// or 0 when either has zero norm
func Cosine(a, b model.Embedding) float64 {
	if len(a) != len(b) {
		return 0
	}
	ua, ub := normalize(a), normalize(b)
	if ua == nil || ub == nil {
		return 0
	}
	return dot(ua, ub)
}

// normalize returns the float64 unit vector of e, or nil for a zero vector
func normalize(e model.Embedding) []float64 {
	var sum float64
	for _, v := range e {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil
	}

	inv := 1 / math.Sqrt(sum)
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = float64(v) * inv
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for k := range a {
		sum += a[k] * b[k]
	}
	// rounding can push unit-vector products slightly past ±1
	return math.Max(-1, math.Min(1, sum))
}

// rowJob fills cells (row, row+1) .. (row, n-1)
type rowJob struct {
	row  int
	unit [][]float64
	out  []float32
}

func (j *rowJob) Execute(ctx context.Context) worker.Result {
	if err := ctx.Err(); err != nil {
		return &rowResult{err: err}
	}

	a := j.unit[j.row]
	for k := range j.out {
		b := j.unit[j.row+1+k]
		if a == nil || b == nil {
			j.out[k] = 0
			continue
		}
		j.out[k] = float32(dot(a, b))
	}
	return &rowResult{}
}

type rowResult struct {
	err error
}

func (r *rowResult) GetError() error {
	return r.err
}
