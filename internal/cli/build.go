package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/pipeline"
)

var buildTimeout time.Duration

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the place name pattern model",
	Long: `Build joins the geonames tables with the country metadata, partitions
the place names into the configured categories and stores the pattern
model.

Homonyms across categories are written to duplicate_place_names.json for
review. When annotation logs exist, only phrases that cleared the
promotion threshold are kept, so run build once before annotating and
again after.

Example:
  toponym build
  toponym build -v`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 5*time.Minute, "overall build timeout")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Language: %s\n", cfg.Project.Language)
		fmt.Fprintf(os.Stderr, "Rules: %d\n", len(cfg.Topography.Rules))
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.New(cfg)
	result, err := p.BuildModel(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d place records\n", result.Places)

	labels := make([]string, 0, len(result.PerLabel))
	for label := range result.PerLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(os.Stderr, "  %-16s %6d patterns\n", label, result.PerLabel[label])
	}

	if !result.Duplicates.Empty() {
		fmt.Fprintf(os.Stderr, "⚠ %d category pair(s) share place names, see duplicate_place_names.json\n", len(result.Duplicates))
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote pattern model: %s\n", p.PatternsPath())
	return nil
}
