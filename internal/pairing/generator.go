package pairing

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/similarity"
)

// DefaultThreshold is the reference minimum similarity for a candidate pair
const DefaultThreshold = 0.3

// Quality bonuses added on top of the similarity score
const (
	SameSourceBonus   = 0.2
	SameAuthorBonus   = 0.1
	BothOpinionsBonus = 0.15
)

var (
	// ErrSizeMismatch means the matrix does not cover the statement list
	ErrSizeMismatch = errors.New("statement count does not match similarity matrix size")
	// ErrInvalidThreshold means the threshold is NaN
	ErrInvalidThreshold = errors.New("similarity threshold is not a number")
	// ErrEmptyText means a statement carries no text
	ErrEmptyText = errors.New("statement text is empty")
)

// MissingPolicy decides how absent source URLs and authors compare
type MissingPolicy int

const (
	// MatchAbsent treats two absent values as equal (reference behavior)
	MatchAbsent MissingPolicy = iota
	// AbsentNeverMatches treats an absent value as unequal to everything
	AbsentNeverMatches
)

// PolicyFromString maps a config value to a MissingPolicy
func PolicyFromString(s string) (MissingPolicy, error) {
	switch s {
	case "", model.MissingMetadataMatch:
		return MatchAbsent, nil
	case model.MissingMetadataNever:
		return AbsentNeverMatches, nil
	default:
		return MatchAbsent, fmt.Errorf("unknown missing metadata policy: %q", s)
	}
}

// Generator produces scored candidate pairs from a similarity matrix
type Generator struct {
	Threshold float64
	Policy    MissingPolicy
}

// NewGenerator creates a generator with the reference missing-metadata policy
func NewGenerator(threshold float64) *Generator {
	return &Generator{Threshold: threshold, Policy: MatchAbsent}
}

// Generate keeps every pair i<j whose similarity is at least the threshold.
// Output is in row-major generation order; callers sort explicitly.
// An empty result is not an error.
func (g *Generator) Generate(statements []model.Statement, scores similarity.Scores) ([]model.CandidatePair, error) {
	if math.IsNaN(g.Threshold) {
		return nil, ErrInvalidThreshold
	}
	if scores.Size() != len(statements) {
		return nil, fmt.Errorf("%d statements, %d×%d matrix: %w", len(statements), scores.Size(), scores.Size(), ErrSizeMismatch)
	}
	if err := scores.Validate(); err != nil {
		return nil, fmt.Errorf("invalid similarity matrix: %w", err)
	}
	for i, s := range statements {
		if s.Text == "" {
			return nil, fmt.Errorf("statement %d (%s): %w", i, s.ID, ErrEmptyText)
		}
	}

	pairs := []model.CandidatePair{}
	n := len(statements)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := scores.At(i, j)
			if sim >= g.Threshold {
				pairs = append(pairs, g.Pair(statements, i, j, sim))
			}
		}
	}

	return pairs, nil
}

// Pair builds the candidate for statements i and j with the given similarity
func (g *Generator) Pair(statements []model.Statement, i, j int, sim float64) model.CandidatePair {
	if i > j {
		i, j = j, i
	}
	a, b := statements[i], statements[j]

	p := model.CandidatePair{
		A:                i,
		B:                j,
		Similarity:       sim,
		SameSource:       g.sameSource(a, b),
		SameAuthor:       g.sameAuthor(a, b),
		BothHaveOpinions: a.HasOpinion && b.HasOpinion,
	}
	p.Quality = Score(p.Similarity, p.SameSource, p.SameAuthor, p.BothHaveOpinions)
	return p
}

// Score is the composite quality score. It is a pure function of its inputs.
func Score(sim float64, sameSource, sameAuthor, bothOpinions bool) float64 {
	quality := sim
	if sameSource {
		quality += SameSourceBonus
	}
	if sameAuthor {
		quality += SameAuthorBonus
	}
	if bothOpinions {
		quality += BothOpinionsBonus
	}
	return quality
}

// Rescore recomputes the quality score of an existing pair
func Rescore(p model.CandidatePair) float64 {
	return Score(p.Similarity, p.SameSource, p.SameAuthor, p.BothHaveOpinions)
}

func (g *Generator) sameSource(a, b model.Statement) bool {
	if g.Policy == AbsentNeverMatches && (a.SourceURL == "" || b.SourceURL == "") {
		return false
	}
	return a.SourceURL == b.SourceURL
}

func (g *Generator) sameAuthor(a, b model.Statement) bool {
	if a.Author == nil || b.Author == nil {
		return g.Policy == MatchAbsent && a.Author == nil && b.Author == nil
	}
	if g.Policy == AbsentNeverMatches && (*a.Author == "" || *b.Author == "") {
		return false
	}
	return *a.Author == *b.Author
}

// Generate runs a generator with the reference policy
func Generate(statements []model.Statement, scores similarity.Scores, threshold float64) ([]model.CandidatePair, error) {
	return NewGenerator(threshold).Generate(statements, scores)
}
