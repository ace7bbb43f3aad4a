package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ppiankov/contrapair/internal/diversity"
	"github.com/ppiankov/contrapair/internal/embed"
	"github.com/ppiankov/contrapair/internal/ingest"
	"github.com/ppiankov/contrapair/internal/logging"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/pairing"
	"github.com/ppiankov/contrapair/internal/sampling"
	"github.com/ppiankov/contrapair/internal/similarity"
)

// Pipeline orchestrates embedding, similarity, pairing, sampling and diversity filtering
type Pipeline struct {
	provider  embed.Provider
	generator *pairing.Generator
	sampler   *sampling.Sampler
	config    *model.Config
	logger    *log.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline. The provider is used for every run.
func NewPipeline(cfg *model.Config, provider embed.Provider, logger *log.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}

	policy, err := pairing.PolicyFromString(cfg.Pairing.MissingMetadata)
	if err != nil {
		return nil, err
	}

	generator := pairing.NewGenerator(cfg.Pairing.SimilarityThreshold)
	generator.Policy = policy

	return &Pipeline{
		provider:  provider,
		generator: generator,
		sampler:   sampling.NewSampler(),
		config:    cfg,
		logger:    logging.Component(logger, "pipeline"),
		now:       time.Now,
	}, nil
}

// Selection is the outcome of pairing, sampling and filtering over a similarity matrix
type Selection struct {
	Strategy   string
	Candidates model.CandidateStats
	Sampling   *model.SamplingStats
	Diversity  model.DiversityStats
	Pairs      []model.CandidatePair
	Warnings   []string
}

// Run embeds the statements and produces the pair report
func (p *Pipeline) Run(ctx context.Context, statements []model.Statement) (*model.Report, error) {
	started := p.now()
	report := &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: started.UTC(),
		Strategy:    p.config.Sampling.Strategy,
		Threshold:   p.config.Pairing.SimilarityThreshold,
		Target:      p.config.Sampling.TargetPairs,
		Dataset:     ingest.Describe(statements),
		Candidates:  model.DescribeCandidates(nil),
		Pairs:       []model.PairRecord{},
	}
	logger := p.logger.With("run", report.RunID)

	if len(statements) < 2 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d statement(s): nothing to pair", len(statements)))
		logger.Warn("not enough statements to pair", "statements", len(statements))
		return report, nil
	}

	logger.Info("embedding statements", "statements", len(statements), "provider", p.provider.Name(), "model", p.provider.Model())
	embeddings, err := p.provider.Embed(ctx, ingest.Texts(statements))
	if err != nil {
		return nil, fmt.Errorf("embed statements: %w", err)
	}

	logger.Info("computing similarity matrix", "size", len(embeddings), "workers", p.config.Concurrency.Workers)
	matrix, err := similarity.Compute(ctx, embeddings, p.config.Concurrency.Workers)
	if err != nil {
		return nil, fmt.Errorf("compute similarity: %w", err)
	}

	sel, err := p.Select(statements, matrix)
	if err != nil {
		return nil, err
	}

	report.Strategy = sel.Strategy
	report.Candidates = sel.Candidates
	report.Sampling = sel.Sampling
	report.Diversity = sel.Diversity
	report.Summary = model.SummarizePairs(sel.Pairs)
	report.Pairs = Records(statements, sel.Pairs)
	report.Warnings = append(report.Warnings, sel.Warnings...)

	logger.Info("run complete", "pairs", len(report.Pairs), "elapsed", p.now().Sub(started).Round(time.Millisecond))
	return report, nil
}

// Select generates candidates from scores and reduces them to the final pair set
func (p *Pipeline) Select(statements []model.Statement, scores similarity.Scores) (*Selection, error) {
	candidates, err := p.generator.Generate(statements, scores)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}

	target := p.config.Sampling.TargetPairs
	sel := &Selection{
		Strategy:   p.config.Sampling.Strategy,
		Candidates: model.DescribeCandidates(candidates),
	}
	p.logger.Info("candidates generated", "count", len(candidates), "threshold", p.generator.Threshold)

	if len(candidates) == 0 {
		sel.Pairs = []model.CandidatePair{}
		sel.Diversity = model.DiversityStats{MaxPerSourcePair: p.config.Sampling.MaxPairsPerSource}
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("no pairs reached similarity threshold %.2f", p.generator.Threshold))
		return sel, nil
	}

	if target == 0 {
		sel.Pairs = []model.CandidatePair{}
		sel.Diversity = model.DiversityStats{MaxPerSourcePair: p.config.Sampling.MaxPairsPerSource}
		return sel, nil
	}

	sorted := sampling.SortByQuality(candidates)
	filter := diversity.Filter{
		MaxCount:         target,
		MaxPerSourcePair: p.config.Sampling.MaxPairsPerSource,
	}

	pool := sorted
	if sel.Strategy == model.StrategyStratified {
		if len(candidates) <= target && !p.config.Sampling.StratifySmallSets {
			sel.Strategy = model.StrategyDiverse
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("stratified sampling skipped: %d candidates do not exceed target %d", len(candidates), target))
		} else {
			sampled, stats := p.sampler.SampleWithStats(sorted, target)
			sel.Sampling = &stats
			pool = sampled
			p.logger.Debug("stratified sample", "selected", stats.Selected, "backfilled", stats.Backfilled)
		}
	}

	res := filter.Apply(statements, pool)
	sel.Pairs = res.Pairs
	sel.Diversity = res.Stats(filter.MaxPerSourcePair)
	p.logger.Info("diversity filter applied", "admitted", len(res.Pairs), "rejected", res.Rejected, "source_pairs", len(res.PairCounts))

	if len(sel.Pairs) < target {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("selected %d of %d target pairs", len(sel.Pairs), target))
	}

	return sel, nil
}

// Records resolves selected pairs to their statements with empty annotation fields
func Records(statements []model.Statement, pairs []model.CandidatePair) []model.PairRecord {
	records := make([]model.PairRecord, len(pairs))
	for i, pair := range pairs {
		records[i] = model.PairRecord{
			ID:               i + 1,
			StatementA:       statements[pair.A],
			StatementB:       statements[pair.B],
			Similarity:       pair.Similarity,
			Quality:          pair.Quality,
			SameSource:       pair.SameSource,
			SameAuthor:       pair.SameAuthor,
			BothHaveOpinions: pair.BothHaveOpinions,
		}
	}
	return records
}
