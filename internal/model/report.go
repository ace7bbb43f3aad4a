package model

import "time"

// Report is the terminal artifact of a pipeline run, handed to annotation tooling
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Strategy    string    `json:"strategy"`
	Threshold   float64   `json:"similarity_threshold"`
	Target      int       `json:"target_pairs"`

	Dataset    DatasetStats    `json:"dataset"`
	Candidates CandidateStats  `json:"candidates"`
	Sampling   *SamplingStats  `json:"sampling,omitempty"` // nil when stratified sampling was skipped
	Diversity  DiversityStats  `json:"diversity"`
	Summary    SelectionStats  `json:"summary"`
	Pairs      []PairRecord    `json:"pairs"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// PairRecord resolves a selected pair back to its statements
type PairRecord struct {
	ID                   int       `json:"id"` // 1-based position in the selection
	StatementA           Statement `json:"statement_a"`
	StatementB           Statement `json:"statement_b"`
	Similarity           float64   `json:"similarity_score"`
	Quality              float64   `json:"quality_score"`
	SameSource           bool      `json:"same_source"`
	SameAuthor           bool      `json:"same_author"`
	BothHaveOpinions     bool      `json:"both_have_opinions"`
	RelationshipLabel    string    `json:"relationship_label"`    // Filled in by annotators
	InconsistencySubtype string    `json:"inconsistency_subtype"` // Filled in by annotators
	Notes                string    `json:"notes"`
}

// Annotation labels understood by downstream tooling
const (
	LabelUnrelated    = "Unrelated"    // Different topics
	LabelConsistent   = "Consistent"   // Both can be true
	LabelInconsistent = "Inconsistent" // Contradictory

	SubtypeSurface = "Surface" // Direct logical contradiction
	SubtypeFactual = "Factual" // Conflicting facts/numbers
	SubtypeValue   = "Value"   // Conflicting values/opinions
)

// DatasetStats describes the statement input
type DatasetStats struct {
	Statements        int `json:"statements"`
	OpinionStatements int `json:"opinion_statements"`
	UniqueSources     int `json:"unique_sources"`
	UniqueDomains     int `json:"unique_domains"`
}

// CandidateStats describes the scored candidate set before sampling
type CandidateStats struct {
	Total         int             `json:"total"`
	SameSource    int             `json:"same_source"`
	BothOpinions  int             `json:"both_opinions"`
	AvgSimilarity float64         `json:"avg_similarity"`
	Strata        map[Stratum]int `json:"strata"`
}

// SamplingStats records how the stratified sampler filled its quotas
type SamplingStats struct {
	Target     int             `json:"target"`
	Quotas     map[Stratum]int `json:"quotas"`
	Taken      map[Stratum]int `json:"taken"`
	Backfilled int             `json:"backfilled"`
	Selected   int             `json:"selected"`
}

// DiversityStats records the outcome of the diversity filter
type DiversityStats struct {
	MaxPerSourcePair  int `json:"max_per_source_pair"`
	Admitted          int `json:"admitted"`
	Rejected          int `json:"rejected"`
	UniqueSourcePairs int `json:"unique_source_pairs"`
	UniqueSources     int `json:"unique_sources"`
}

// SelectionStats summarizes the final selection
type SelectionStats struct {
	Pairs         int     `json:"pairs"`
	SameSource    int     `json:"same_source"`
	BothOpinions  int     `json:"both_opinions"`
	AvgSimilarity float64 `json:"avg_similarity"`
	AvgQuality    float64 `json:"avg_quality"`
}

// SummarizePairs computes selection statistics for any pair slice
func SummarizePairs(pairs []CandidatePair) SelectionStats {
	stats := SelectionStats{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return stats
	}

	var simSum, qualSum float64
	for _, p := range pairs {
		if p.SameSource {
			stats.SameSource++
		}
		if p.BothHaveOpinions {
			stats.BothOpinions++
		}
		simSum += p.Similarity
		qualSum += p.Quality
	}
	stats.AvgSimilarity = simSum / float64(len(pairs))
	stats.AvgQuality = qualSum / float64(len(pairs))

	return stats
}

// DescribeCandidates computes candidate statistics including the stratum distribution
func DescribeCandidates(pairs []CandidatePair) CandidateStats {
	summary := SummarizePairs(pairs)
	stats := CandidateStats{
		Total:         summary.Pairs,
		SameSource:    summary.SameSource,
		BothOpinions:  summary.BothOpinions,
		AvgSimilarity: summary.AvgSimilarity,
		Strata:        make(map[Stratum]int, len(Strata)),
	}
	for _, s := range Strata {
		stats.Strata[s] = 0
	}
	for _, p := range pairs {
		stats.Strata[StratumOf(p)]++
	}
	return stats
}
