package diversity

import (
	"fmt"

	"github.com/ppiankov/contrapair/internal/model"
)

// SourcePair is an order-independent pair of source URLs
type SourcePair struct {
	First  string
	Second string
}

// NewSourcePair sorts the two URLs so that (a, b) and (b, a) share a key
func NewSourcePair(a, b string) SourcePair {
	if b < a {
		a, b = b, a
	}
	return SourcePair{First: a, Second: b}
}

func (s SourcePair) String() string {
	return fmt.Sprintf("%s | %s", s.First, s.Second)
}

// Filter greedily admits candidates while capping how many pairs any one
// source-URL combination contributes. The walk is single-pass and
// order-dependent: pass candidates best-first.
type Filter struct {
	MaxCount         int // stop after this many admissions; <= 0 means no limit
	MaxPerSourcePair int // admissions allowed per source-URL combination
}

// Result holds the admitted pairs and the accumulators of one Apply call
type Result struct {
	Pairs        []model.CandidatePair
	PairCounts   map[SourcePair]int
	SourceCounts map[string]int // informational; does not gate admission
	Rejected     int            // turned away by the per-combination cap
	Duplicates   int            // repeated (A, B) entries skipped
}

// Stats condenses a result into report statistics
func (r Result) Stats(maxPerSourcePair int) model.DiversityStats {
	return model.DiversityStats{
		MaxPerSourcePair:  maxPerSourcePair,
		Admitted:          len(r.Pairs),
		Rejected:          r.Rejected,
		UniqueSourcePairs: len(r.PairCounts),
		UniqueSources:     len(r.SourceCounts),
	}
}

// Apply walks candidates in the given order. Statements resolve each
// pair's indices to source URLs.
func (f Filter) Apply(statements []model.Statement, candidates []model.CandidatePair) Result {
	res := Result{
		Pairs:        []model.CandidatePair{},
		PairCounts:   make(map[SourcePair]int),
		SourceCounts: make(map[string]int),
	}
	seen := make(map[model.PairKey]bool)

	for _, p := range candidates {
		if f.MaxCount > 0 && len(res.Pairs) >= f.MaxCount {
			break
		}

		if seen[p.Key()] {
			res.Duplicates++
			continue
		}

		urlA := statements[p.A].SourceURL
		urlB := statements[p.B].SourceURL
		key := NewSourcePair(urlA, urlB)

		if res.PairCounts[key] >= f.MaxPerSourcePair {
			res.Rejected++
			continue
		}

		seen[p.Key()] = true
		res.Pairs = append(res.Pairs, p)
		res.PairCounts[key]++
		res.SourceCounts[urlA]++
		res.SourceCounts[urlB]++
	}

	return res
}

// Apply runs a filter with the given caps and returns only the admitted pairs
func Apply(statements []model.Statement, candidates []model.CandidatePair, maxCount, maxPerSourcePair int) []model.CandidatePair {
	return Filter{MaxCount: maxCount, MaxPerSourcePair: maxPerSourcePair}.Apply(statements, candidates).Pairs
}
