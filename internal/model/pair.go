package model

// CandidatePair is an unordered statement pair that cleared the similarity threshold.
// A < B always holds; the pair is canonical.
type CandidatePair struct {
	A                int     `json:"a_index"`
	B                int     `json:"b_index"`
	Similarity       float64 `json:"similarity_score"`
	Quality          float64 `json:"quality_score"`
	SameSource       bool    `json:"same_source"`
	SameAuthor       bool    `json:"same_author"`
	BothHaveOpinions bool    `json:"both_have_opinions"`
}

// PairKey identifies an unordered (A, B) index pair
type PairKey struct {
	A int
	B int
}

// Key returns the canonical key of the pair
func (p CandidatePair) Key() PairKey {
	if p.A > p.B {
		return PairKey{A: p.B, B: p.A}
	}
	return PairKey{A: p.A, B: p.B}
}

// Stratum partitions candidates by (same source, both opinions)
type Stratum int

const (
	StratumSameSourceOpinion Stratum = iota // S1: same source, both opinions
	StratumSameSourceMixed                  // S2: same source, not both opinions
	StratumDiffSourceOpinion                // S3: different source, both opinions
	StratumDiffSourceMixed                  // S4: different source, not both opinions
)

// Strata lists every stratum in sampling priority order
var Strata = []Stratum{
	StratumSameSourceOpinion,
	StratumSameSourceMixed,
	StratumDiffSourceOpinion,
	StratumDiffSourceMixed,
}

// StratumOf returns the stratum a pair belongs to
func StratumOf(p CandidatePair) Stratum {
	switch {
	case p.SameSource && p.BothHaveOpinions:
		return StratumSameSourceOpinion
	case p.SameSource:
		return StratumSameSourceMixed
	case p.BothHaveOpinions:
		return StratumDiffSourceOpinion
	default:
		return StratumDiffSourceMixed
	}
}

func (s Stratum) String() string {
	switch s {
	case StratumSameSourceOpinion:
		return "same_source_opinion"
	case StratumSameSourceMixed:
		return "same_source_mixed"
	case StratumDiffSourceOpinion:
		return "diff_source_opinion"
	case StratumDiffSourceMixed:
		return "diff_source_mixed"
	default:
		return "unknown"
	}
}

// MarshalText lets strata be used as JSON/YAML map keys
func (s Stratum) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
