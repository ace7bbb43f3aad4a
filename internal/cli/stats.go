package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/contrapair/internal/ingest"
	"github.com/ppiankov/contrapair/internal/pipeline"
)

var statsJSON bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <statements.json>",
	Short: "Show dataset statistics without embedding",
	Long: `Stats loads statements and reports how many there are, how many carry an
opinion and how many distinct sources and domains they come from.

Example:
  contrapair stats data/processed/statements.json
  contrapair stats statements.jsonl --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := ingest.LoadFile(args[0], ingest.Options{SkipEmpty: true})
		if err != nil {
			return err
		}

		stats := ingest.Describe(loaded.Statements)

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		pipeline.RenderDataset(os.Stdout, stats)
		if loaded.Skipped > 0 {
			fmt.Printf("  Empty (skipped):    %d\n", loaded.Skipped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
}
