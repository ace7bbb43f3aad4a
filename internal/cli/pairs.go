package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/contrapair/internal/embed"
	"github.com/ppiankov/contrapair/internal/ingest"
	"github.com/ppiankov/contrapair/internal/logging"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/pipeline"
)

var (
	outJSON           string
	runTimeout        time.Duration
	noCache           bool
	skipEmpty         bool
	quiet             bool
	flagTarget        int
	flagThreshold     float64
	flagMaxPerSource  int
	flagStrategy      string
	flagProvider      string
	flagModel         string
	flagMaxStatements int
	flagMissing       string
	flagStratifySmall bool
)

// pairsCmd represents the pairs command
var pairsCmd = &cobra.Command{
	Use:   "pairs <statements.json>",
	Short: "Generate candidate statement pairs for annotation",
	Long: `Pairs reads statements (JSON array or JSON Lines) and:
- Embeds every statement with the configured provider
- Computes the full cosine similarity matrix
- Scores pairs above the similarity threshold
- Samples across source/opinion strata
- Caps pairs per source combination
- Writes the selection as JSON with empty annotation fields

Example:
  contrapair pairs data/processed/statements.json
  contrapair pairs statements.jsonl --target 500 --out pairs.json
  contrapair pairs statements.json --provider ollama --model nomic-embed-text`,
	Args: cobra.ExactArgs(1),
	RunE: runPairs,
}

func init() {
	rootCmd.AddCommand(pairsCmd)

	// Output flags
	pairsCmd.Flags().StringVar(&outJSON, "out", "pairs.json", "output JSON path (- for stdout)")
	pairsCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the summary")

	// Run flags
	pairsCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")
	pairsCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the embedding cache")
	pairsCmd.Flags().BoolVar(&skipEmpty, "skip-empty", false, "drop statements with empty text instead of failing")
	pairsCmd.Flags().IntVar(&flagMaxStatements, "max-statements", 0, "only use the first N statements (0 = all)")

	// Embedding flags
	pairsCmd.Flags().StringVar(&flagProvider, "provider", "", "embedding provider (openai, ollama, hash)")
	pairsCmd.Flags().StringVar(&flagModel, "model", "", "embedding model name")

	// Selection flags
	pairsCmd.Flags().IntVar(&flagTarget, "target", 0, "number of pairs to select")
	pairsCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "minimum cosine similarity for a candidate")
	pairsCmd.Flags().IntVar(&flagMaxPerSource, "max-per-source", 0, "maximum pairs per source combination")
	pairsCmd.Flags().StringVar(&flagStrategy, "strategy", "", "selection strategy (stratified, diverse)")
	pairsCmd.Flags().StringVar(&flagMissing, "missing-metadata", "", "absent URL/author policy (match, never)")
	pairsCmd.Flags().BoolVar(&flagStratifySmall, "stratify-small-sets", false, "stratify even when candidates do not exceed the target")
}

// applyPairsFlags overrides cfg with flags the user set explicitly
func applyPairsFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		cfg.Embedding.Provider = flagProvider
		// The default model belongs to the default provider
		if !flags.Changed("model") {
			cfg.Embedding.Model = ""
		}
	}
	if flags.Changed("model") {
		cfg.Embedding.Model = flagModel
	}
	if flags.Changed("target") {
		cfg.Sampling.TargetPairs = flagTarget
	}
	if flags.Changed("threshold") {
		cfg.Pairing.SimilarityThreshold = flagThreshold
	}
	if flags.Changed("max-per-source") {
		cfg.Sampling.MaxPairsPerSource = flagMaxPerSource
	}
	if flags.Changed("strategy") {
		cfg.Sampling.Strategy = flagStrategy
	}
	if flags.Changed("missing-metadata") {
		cfg.Pairing.MissingMetadata = flagMissing
	}
	if flags.Changed("stratify-small-sets") {
		cfg.Sampling.StratifySmallSets = flagStratifySmall
	}
	if flags.Changed("max-statements") {
		cfg.Input.MaxStatements = flagMaxStatements
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

func runPairs(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyPairsFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Output.Verbose)

	loaded, err := ingest.LoadFile(path, ingest.Options{
		MaxStatements: cfg.Input.MaxStatements,
		SkipEmpty:     skipEmpty,
	})
	if err != nil {
		return err
	}
	if loaded.Skipped > 0 {
		logger.Warn("skipped statements with empty text", "count", loaded.Skipped)
	}
	if loaded.Truncated > 0 {
		logger.Warn("limiting statements", "max", cfg.Input.MaxStatements, "dropped", loaded.Truncated)
	}

	provider, err := embed.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, provider, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	report, err := p.Run(ctx, loaded.Statements)
	if err != nil {
		return fmt.Errorf("generate pairs: %w", err)
	}

	if c, ok := provider.(*embed.CachedProvider); ok {
		hits, misses := c.Stats()
		logger.Debug("embedding cache", "hits", hits, "misses", misses)
	}

	if outJSON == "-" {
		if err := pipeline.WriteJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		if err := pipeline.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		logger.Info("wrote pairs", "path", outJSON, "pairs", len(report.Pairs))
	}

	if !quiet {
		pipeline.RenderSummary(os.Stderr, report)
	}
	return nil
}
