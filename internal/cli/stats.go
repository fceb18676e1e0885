package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/pipeline"
)

var statsTopN int

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [batch...]",
	Short: "Aggregate corpus statistics per batch",
	Long: `Stats aggregates the tagged documents of each batch into count totals,
frequency rankings for lemmas and place name categories, lemma failures
and a cross-batch comparison table.

Requires 'tag' to have run first.

Example:
  toponym stats
  toponym stats lc_2018 --top 25`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsTopN, "top", 10, "ranking size for the most-common tables")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batches, err := resolveBatches(cfg, args)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg)
	result, err := p.Stats(batches, statsTopN)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	names := make([]string, 0, len(result.PerBatch))
	for name := range result.PerBatch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := result.PerBatch[name]
		fmt.Fprintf(os.Stderr, "✓ %s: %d documents, %d tokens, %d entities\n",
			name, b.Documents, b.Counts["n_tokens"], b.Counts["n_entities"])
		if b.Failures > 0 {
			fmt.Fprintf(os.Stderr, "⚠ %s: %d tokens without a lemma\n", name, b.Failures)
		}
	}

	if verbose {
		for _, path := range result.Files {
			fmt.Fprintf(os.Stderr, "  wrote %s\n", path)
		}
	}
	return nil
}
