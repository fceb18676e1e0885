package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lcvriend/toponym-extraction/internal/annotate"
	"github.com/lcvriend/toponym-extraction/internal/model"
	"github.com/lcvriend/toponym-extraction/internal/pipeline"
	"github.com/lcvriend/toponym-extraction/internal/topography"
)

var annotateSample int

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <label>",
	Short: "Judge sampled matches for a pattern category",
	Long: `Annotate walks the phrases of one pattern category, shows sampled
article paragraphs containing each phrase and records your judgments:

  +        the phrase really is a place name here
  -        it is not
  ?        cannot tell
  / text   look up a different phrase first
  .        quit (judgments for the current phrase are discarded)

Judgments append to annotations_<label>.csv in the results directory.
Phrases already judged are skipped, so sessions can be resumed. Rerun
'build' afterwards to fold the judgments into the model.

Example:
  toponym annotate places_frl
  toponym annotate places_frl --sample 10`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	annotateCmd.Flags().IntVar(&annotateSample, "sample", 0, "matches to show per phrase (default from config)")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	label := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	patterns, err := topography.LoadPatterns(pipeline.New(cfg).PatternsPath())
	if err != nil {
		return err
	}
	var phrases []string
	for _, p := range patterns {
		if p.Label == label {
			phrases = append(phrases, p.Phrase)
		}
	}
	if len(phrases) == 0 {
		return fmt.Errorf("no patterns with label %q in the model", label)
	}

	corpus, err := loadCorpus(cfg)
	if err != nil {
		return err
	}

	sampleSize := cfg.Annotation.SampleSize
	if annotateSample > 0 {
		sampleSize = annotateSample
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Label: %s (%d phrases)\n", label, len(phrases))
		fmt.Fprintf(os.Stderr, "Corpus: %d articles\n", len(corpus))
		fmt.Fprintln(os.Stderr)
	}

	logPath := annotate.LogPath(cfg.Paths.Results, label)
	session, err := annotate.NewSession(corpus, logPath, sampleSize, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	if err := session.Run(phrases); err != nil {
		return fmt.Errorf("annotation session: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Judgments saved to %s\n", logPath)
	return nil
}

// loadCorpus concatenates the processed article tables of every configured
// batch.
func loadCorpus(cfg *model.Config) ([]model.Article, error) {
	var corpus []model.Article
	for _, batch := range cfg.LexisNexis.Batches {
		articles, err := pipeline.LoadArticles(
			pipeline.ProcessedTablePath(cfg.Paths.DataInterim, batch))
		if err != nil {
			if errors.Is(err, model.ErrResourceMissing) {
				fmt.Fprintf(os.Stderr, "⚠ Batch %s not extracted yet, skipping\n", batch)
				continue
			}
			return nil, err
		}
		corpus = append(corpus, articles...)
	}
	if len(corpus) == 0 {
		return nil, fmt.Errorf("%w: no extracted batches, run 'toponym extract' first", model.ErrResourceMissing)
	}
	return corpus, nil
}
