package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/pipeline"
)

var gatherTimeout time.Duration

// gatherCmd represents the gather command
var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Download the geonames datasets",
	Long: `Gather downloads the configured geonames datasets into the resources
directory and extracts the zipped ones. Datasets already on disk are left
alone, so rerunning is cheap.

Example:
  toponym gather
  toponym gather --timeout 30m`,
	Args: cobra.NoArgs,
	RunE: runGather,
}

func init() {
	rootCmd.AddCommand(gatherCmd)
	gatherCmd.Flags().DurationVar(&gatherTimeout, "timeout", 15*time.Minute, "overall download timeout")
}

func runGather(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatherTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Base URL: %s\n", cfg.Geonames.BaseURL)
		fmt.Fprintf(os.Stderr, "Datasets: %d\n", len(cfg.Geonames.Datasets))
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.New(cfg)
	gathered, err := p.Gather(ctx)
	if err != nil {
		return fmt.Errorf("gather failed: %w", err)
	}

	for _, name := range gathered {
		fmt.Fprintf(os.Stderr, "✓ Downloaded %s\n", name)
	}
	skipped := len(cfg.Geonames.Datasets) - len(gathered)
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "✓ %d dataset(s) already present\n", skipped)
	}
	return nil
}
