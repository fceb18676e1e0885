package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/pipeline"
)

var tagTimeout time.Duration

// tagCmd represents the tag command
var tagCmd = &cobra.Command{
	Use:   "tag [batch...]",
	Short: "Tag articles with tokens, lemmas and place entities",
	Long: `Tag runs the pattern model over the processed articles of each batch
and stores one tagged document per article: tokens with part of speech
and lemma, sentence boundaries and the matched place name entities.

Requires 'build' and 'extract' to have run first.

Example:
  toponym tag
  toponym tag lc_2018 --timeout 1h`,
	RunE: runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().DurationVar(&tagTimeout, "timeout", 30*time.Minute, "overall tagging timeout")
}

func runTag(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batches, err := resolveBatches(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), tagTimeout)
	defer cancel()

	p := pipeline.New(cfg)
	for _, batch := range batches {
		fmt.Fprintf(os.Stderr, "Tagging %s...\n", batch)

		result, err := p.TagBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("tag %s: %w", batch, err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Patterns: %d, workers: %d\n", result.Patterns, cfg.Concurrency.Workers)
		}
		fmt.Fprintf(os.Stderr, "✓ Tagged %d documents\n", result.Tagged)
		for _, fail := range result.Failed {
			fmt.Fprintf(os.Stderr, "⚠ %s: %v\n", fail.ID, fail.Err)
		}
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
