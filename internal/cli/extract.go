package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/pipeline"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [batch...]",
	Short: "Parse docx batches into cleaned article tables",
	Long: `Extract parses the docx files of each batch into article records and
runs the cleanup chain: duplicate articles are dropped, repeated
paragraphs (mastheads, ads) are removed from the text bodies, metadata
fields are derived and the configured filter selects the articles to
keep.

Without arguments every configured batch is processed.

Example:
  toponym extract
  toponym extract lc_2018`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batches, err := resolveBatches(cfg, args)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg)
	for _, batch := range batches {
		fmt.Fprintf(os.Stderr, "Extracting %s...\n", batch)

		result, err := p.ExtractBatch(batch)
		if err != nil {
			return fmt.Errorf("extract %s: %w", batch, err)
		}

		for _, skip := range result.Skipped {
			fmt.Fprintf(os.Stderr, "⚠ Skipped %s\n", skip)
		}
		fmt.Fprintf(os.Stderr, "✓ Parsed %d articles (%d duplicates removed)\n", result.Parsed, result.Duplicates)
		fmt.Fprintf(os.Stderr, "✓ Flagged %d repeated paragraphs, removed %d\n", result.AuditParagraphs, result.DupeParagraphs)
		fmt.Fprintf(os.Stderr, "✓ Kept %d articles, filtered out %d\n", result.Kept, result.Removed)
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
