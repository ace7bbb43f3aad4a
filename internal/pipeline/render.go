package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/contrapair/internal/model"
)

// WriteJSON encodes the report as indented JSON
func WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// RenderJSON writes the report to path, creating parent directories
func RenderJSON(report *model.Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	if err := WriteJSON(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RenderDataset prints dataset statistics
func RenderDataset(w io.Writer, stats model.DatasetStats) {
	_, _ = fmt.Fprintf(w, "Dataset Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total statements:   %d\n", stats.Statements)
	_, _ = fmt.Fprintf(w, "  Opinion statements: %d (%s)\n", stats.OpinionStatements, percent(stats.OpinionStatements, stats.Statements))
	_, _ = fmt.Fprintf(w, "  Unique sources:     %d\n", stats.UniqueSources)
	_, _ = fmt.Fprintf(w, "  Unique domains:     %d\n", stats.UniqueDomains)
}

// RenderSummary prints a human-readable overview of a report
func RenderSummary(w io.Writer, report *model.Report) {
	_, _ = fmt.Fprintf(w, "\nRun %s (%s)\n\n", report.RunID, report.Strategy)
	RenderDataset(w, report.Dataset)

	c := report.Candidates
	_, _ = fmt.Fprintf(w, "\nCandidates (similarity >= %.2f): %d\n", report.Threshold, c.Total)
	_, _ = fmt.Fprintf(w, "  Same source:   %d (%s)\n", c.SameSource, percent(c.SameSource, c.Total))
	_, _ = fmt.Fprintf(w, "  Both opinions: %d (%s)\n", c.BothOpinions, percent(c.BothOpinions, c.Total))
	_, _ = fmt.Fprintf(w, "  Avg similarity: %.3f\n", c.AvgSimilarity)
	for _, s := range model.Strata {
		_, _ = fmt.Fprintf(w, "  %-28s %d\n", s.String()+":", c.Strata[s])
	}

	if sp := report.Sampling; sp != nil {
		_, _ = fmt.Fprintf(w, "\nStratified sample (target %d):\n", sp.Target)
		for _, s := range model.Strata {
			_, _ = fmt.Fprintf(w, "  %-28s %d/%d\n", s.String()+":", sp.Taken[s], sp.Quotas[s])
		}
		_, _ = fmt.Fprintf(w, "  Back-filled: %d\n", sp.Backfilled)
	}

	d := report.Diversity
	_, _ = fmt.Fprintf(w, "\nDiversity filter (max %d per source pair):\n", d.MaxPerSourcePair)
	_, _ = fmt.Fprintf(w, "  Admitted: %d, rejected: %d\n", d.Admitted, d.Rejected)
	_, _ = fmt.Fprintf(w, "  Source pairs: %d, sources: %d\n", d.UniqueSourcePairs, d.UniqueSources)

	sum := report.Summary
	_, _ = fmt.Fprintf(w, "\nSelected pairs: %d\n", sum.Pairs)
	_, _ = fmt.Fprintf(w, "  Same source:    %d (%s)\n", sum.SameSource, percent(sum.SameSource, sum.Pairs))
	_, _ = fmt.Fprintf(w, "  Both opinions:  %d (%s)\n", sum.BothOpinions, percent(sum.BothOpinions, sum.Pairs))
	_, _ = fmt.Fprintf(w, "  Avg similarity: %.3f\n", sum.AvgSimilarity)
	_, _ = fmt.Fprintf(w, "  Avg quality:    %.3f\n", sum.AvgQuality)

	for _, warning := range report.Warnings {
		_, _ = fmt.Fprintf(w, "\nWarning: %s", warning)
	}
	if len(report.Warnings) > 0 {
		_, _ = fmt.Fprintln(w)
	}
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
