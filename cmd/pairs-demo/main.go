// Demo program running the pair generator on three statements
// with the offline hash embeddings
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/contrapair/internal/embed"
	"github.com/ppiankov/contrapair/internal/logging"
	"github.com/ppiankov/contrapair/internal/model"
	"github.com/ppiankov/contrapair/internal/pipeline"
)

func main() {
	fmt.Println("=== Pair Generation Demo ===")
	fmt.Println()

	statements := []model.Statement{
		{ID: "s1", Text: "Farmers need better MSP", SourceURL: "url1", HasOpinion: true},
		{ID: "s2", Text: "MSP should be increased", SourceURL: "url1", HasOpinion: true},
		{ID: "s3", Text: "Agriculture is important", SourceURL: "url2", HasOpinion: false},
	}

	cfg := model.DefaultConfig()
	cfg.Embedding.Provider = "hash"
	cfg.Cache.Enabled = false
	cfg.Sampling.TargetPairs = 10
	// Hash embeddings only overlap on shared words
	cfg.Pairing.SimilarityThreshold = 0.1

	logger := logging.New(os.Stderr, false)

	provider, err := embed.NewFromConfig(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p, err := pipeline.NewPipeline(cfg, provider, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := p.Run(ctx, statements)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d pairs:\n", len(report.Pairs))
	fmt.Println(strings.Repeat("-", 60))
	for _, pair := range report.Pairs {
		fmt.Printf("\nPair %d:\n", pair.ID)
		fmt.Printf("  A: %s\n", pair.StatementA.Text)
		fmt.Printf("  B: %s\n", pair.StatementB.Text)
		fmt.Printf("  Similarity: %.3f\n", pair.Similarity)
		fmt.Printf("  Quality: %.3f\n", pair.Quality)
		fmt.Printf("  Same source: %v, both opinions: %v\n", pair.SameSource, pair.BothHaveOpinions)
	}

	pipeline.RenderSummary(os.Stdout, report)
}
