package diversity

import (
	"testing"

	"github.com/ppiankov/contrapair/internal/model"
)

// statementsFor builds statements whose source URLs are given by urls
func statementsFor(urls ...string) []model.Statement {
	out := make([]model.Statement, len(urls))
	for i, u := range urls {
		out[i] = model.Statement{ID: u, Text: "statement", SourceURL: u}
	}
	return out
}

func TestFilter_CapPerSourcePair(t *testing.T) {
	// statements 0..5 alternate between two URLs; every pair below spans both
	statements := statementsFor("a", "b", "a", "b", "a", "b")
	candidates := []model.CandidatePair{
		{A: 0, B: 1, Quality: 0.1},
		{A: 0, B: 3, Quality: 0.9},
		{A: 2, B: 1, Quality: 0.5},
		{A: 2, B: 3, Quality: 1.2},
		{A: 4, B: 5, Quality: 0.7},
	}

	res := Filter{MaxCount: 0, MaxPerSourcePair: 2}.Apply(statements, candidates)

	if len(res.Pairs) != 2 {
		t.Fatalf("expected exactly 2 admitted, got %d", len(res.Pairs))
	}
	if res.Pairs[0] != candidates[0] || res.Pairs[1] != candidates[1] {
		t.Errorf("expected the first two in input order, got %v", res.Pairs)
	}
	if res.Rejected != 3 {
		t.Errorf("expected 3 rejected, got %d", res.Rejected)
	}
}

func TestFilter_KeyIsOrderIndependent(t *testing.T) {
	statements := statementsFor("x", "y", "y", "x")
	candidates := []model.CandidatePair{
		{A: 0, B: 1}, // (x, y)
		{A: 2, B: 3}, // (y, x)
	}

	res := Filter{MaxPerSourcePair: 1}.Apply(statements, candidates)

	if len(res.Pairs) != 1 {
		t.Errorf("expected (x,y) and (y,x) to share a cap, got %d admitted", len(res.Pairs))
	}
	if len(res.PairCounts) != 1 {
		t.Errorf("expected one source pair key, got %v", res.PairCounts)
	}
}

func TestFilter_MaxCount(t *testing.T) {
	statements := statementsFor("a", "b", "c", "d", "e", "f")
	candidates := []model.CandidatePair{
		{A: 0, B: 1}, {A: 2, B: 3}, {A: 4, B: 5}, {A: 0, B: 2},
	}

	res := Filter{MaxCount: 3, MaxPerSourcePair: 100}.Apply(statements, candidates)

	if len(res.Pairs) != 3 {
		t.Errorf("expected max count 3 admitted, got %d", len(res.Pairs))
	}
}

func TestFilter_SourceCountsAreInformational(t *testing.T) {
	// URL "hub" appears in every pair but each combination is distinct
	statements := statementsFor("hub", "a", "b", "c", "d")
	candidates := []model.CandidatePair{
		{A: 0, B: 1}, {A: 0, B: 2}, {A: 0, B: 3}, {A: 0, B: 4},
	}

	res := Filter{MaxPerSourcePair: 1}.Apply(statements, candidates)

	if len(res.Pairs) != 4 {
		t.Errorf("per-source counts must not gate admission, got %d admitted", len(res.Pairs))
	}
	if res.SourceCounts["hub"] != 4 {
		t.Errorf("expected hub count 4, got %d", res.SourceCounts["hub"])
	}
	stats := res.Stats(1)
	if stats.UniqueSources != 5 || stats.UniqueSourcePairs != 4 || stats.Admitted != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFilter_SameSourcePairs(t *testing.T) {
	statements := statementsFor("a", "a", "a")
	candidates := []model.CandidatePair{{A: 0, B: 1}, {A: 0, B: 2}, {A: 1, B: 2}}

	res := Filter{MaxPerSourcePair: 2}.Apply(statements, candidates)

	if len(res.Pairs) != 2 {
		t.Errorf("expected 2 admitted for (a,a), got %d", len(res.Pairs))
	}
	if res.SourceCounts["a"] != 4 {
		t.Errorf("expected both sides counted for a same-source pair, got %d", res.SourceCounts["a"])
	}
}

func TestFilter_EmptySourceURLsShareAKey(t *testing.T) {
	statements := statementsFor("", "", "", "")
	candidates := []model.CandidatePair{{A: 0, B: 1}, {A: 2, B: 3}}

	res := Filter{MaxPerSourcePair: 1}.Apply(statements, candidates)

	if len(res.Pairs) != 1 {
		t.Errorf("expected empty URLs to share one combination, got %d admitted", len(res.Pairs))
	}
}

func TestFilter_SkipsDuplicates(t *testing.T) {
	statements := statementsFor("a", "b")
	p := model.CandidatePair{A: 0, B: 1}

	res := Filter{MaxPerSourcePair: 10}.Apply(statements, []model.CandidatePair{p, p, p})

	if len(res.Pairs) != 1 || res.Duplicates != 2 {
		t.Errorf("expected 1 admitted and 2 duplicates, got %d and %d", len(res.Pairs), res.Duplicates)
	}
}

func TestFilter_Empty(t *testing.T) {
	res := Filter{MaxCount: 10, MaxPerSourcePair: 2}.Apply(nil, nil)
	if res.Pairs == nil || len(res.Pairs) != 0 {
		t.Errorf("expected empty non-nil result, got %v", res.Pairs)
	}
}

func TestFilter_IndependentCalls(t *testing.T) {
	statements := statementsFor("a", "b")
	candidates := []model.CandidatePair{{A: 0, B: 1}}
	f := Filter{MaxPerSourcePair: 1}

	first := f.Apply(statements, candidates)
	second := f.Apply(statements, candidates)

	if len(first.Pairs) != 1 || len(second.Pairs) != 1 {
		t.Error("accumulators must not leak between calls")
	}
}

func TestApply(t *testing.T) {
	statements := statementsFor("a", "b", "a", "b")
	candidates := []model.CandidatePair{{A: 0, B: 1}, {A: 2, B: 3}, {A: 0, B: 3}}

	got := Apply(statements, candidates, 0, 2)
	if len(got) != 2 {
		t.Errorf("expected 2 admitted, got %d", len(got))
	}
}

func TestNewSourcePair(t *testing.T) {
	if NewSourcePair("b", "a") != NewSourcePair("a", "b") {
		t.Error("source pair key must be order independent")
	}
	if got := NewSourcePair("b", "a").String(); got != "a | b" {
		t.Errorf("unexpected String(): %q", got)
	}
}
