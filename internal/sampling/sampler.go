package sampling

import (
	"sort"

	"github.com/ppiankov/contrapair/internal/model"
)

// Quota is the share of the target drawn from one stratum, in percent
type Quota struct {
	Stratum model.Stratum
	Percent int
}

// DefaultQuotas is the reference 50/25/15/10 split, in draw order
var DefaultQuotas = []Quota{
	{Stratum: model.StratumSameSourceOpinion, Percent: 50},
	{Stratum: model.StratumSameSourceMixed, Percent: 25},
	{Stratum: model.StratumDiffSourceOpinion, Percent: 15},
	{Stratum: model.StratumDiffSourceMixed, Percent: 10},
}

// Sampler draws a stratified, target-sized subset of candidates.
// Quotas are soft upper bounds: an under-supplied stratum yields what it
// has and the shortfall is back-filled from the best remaining candidates.
type Sampler struct {
	Quotas []Quota
}

// NewSampler creates a sampler with the reference quotas
func NewSampler() *Sampler {
	return &Sampler{Quotas: DefaultQuotas}
}

// QuotaSize truncates target × percent / 100
func QuotaSize(target, percent int) int {
	if target <= 0 || percent <= 0 {
		return 0
	}
	return target * percent / 100
}

// Sample returns at most target candidates. Candidates should already be
// sorted by descending quality; strata are consumed in that order.
func (s *Sampler) Sample(candidates []model.CandidatePair, target int) []model.CandidatePair {
	selected, _ := s.SampleWithStats(candidates, target)
	return selected
}

// SampleWithStats is Sample plus a record of quota fills and back-fill
func (s *Sampler) SampleWithStats(candidates []model.CandidatePair, target int) ([]model.CandidatePair, model.SamplingStats) {
	stats := model.SamplingStats{
		Target: target,
		Quotas: make(map[model.Stratum]int, len(s.Quotas)),
		Taken:  make(map[model.Stratum]int, len(s.Quotas)),
	}

	selected := []model.CandidatePair{}
	if target <= 0 || len(candidates) == 0 {
		return selected, stats
	}

	strata := Stratify(candidates)
	seen := make(map[model.PairKey]bool, target)

	for _, q := range s.Quotas {
		quota := QuotaSize(target, q.Percent)
		stats.Quotas[q.Stratum] += quota

		taken := 0
		for _, p := range strata[q.Stratum] {
			if taken >= quota || len(selected) >= target {
				break
			}
			if seen[p.Key()] {
				continue
			}
			seen[p.Key()] = true
			selected = append(selected, p)
			taken++
		}
		stats.Taken[q.Stratum] += taken
	}

	for _, p := range candidates {
		if len(selected) >= target {
			break
		}
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		selected = append(selected, p)
		stats.Backfilled++
	}

	stats.Selected = len(selected)
	return selected, stats
}

// Sample draws with the reference quotas
func Sample(candidates []model.CandidatePair, target int) []model.CandidatePair {
	return NewSampler().Sample(candidates, target)
}

// Stratify partitions candidates into the four strata, preserving order
func Stratify(candidates []model.CandidatePair) map[model.Stratum][]model.CandidatePair {
	strata := make(map[model.Stratum][]model.CandidatePair, len(model.Strata))
	for _, p := range candidates {
		s := model.StratumOf(p)
		strata[s] = append(strata[s], p)
	}
	return strata
}

// SortByQuality returns a copy sorted by descending quality score.
// The sort is stable, so ties keep generation order.
func SortByQuality(candidates []model.CandidatePair) []model.CandidatePair {
	sorted := make([]model.CandidatePair, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quality > sorted[j].Quality
	})
	return sorted
}
