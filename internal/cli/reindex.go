package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/thepool/internal/domain/batch"
)

func newReindexCmd(g *globalFlags) *cobra.Command {
	var (
		all      bool
		verbose  bool
		recreate bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Generate embeddings for profiles that lack one",
		Long: `Embeds every profile without an embedding, or every profile with --all.
Profiles whose text is shorter than index.min_text_length are skipped.
--recreate-index drops and rebuilds the vector index first, e.g. after changing
embedding.dimensions or index.algorithm; it implies --all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := g.bootstrap(cmd.Context(), "info")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer a.Close()

			if recreate {
				if err := a.Profiles.RecreateIndex(cmd.Context()); err != nil {
					return fmt.Errorf("recreate index: %w", err)
				}
				logger.Info("Profile index recreated")
				all = true
			}

			results, runErr := a.Indexer.Reindex(cmd.Context(), all)
			if err := printReindex(cmd.OutOrStdout(), results, verbose); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Re-embed profiles that already have an embedding")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every skipped or failed profile")
	cmd.Flags().BoolVar(&recreate, "recreate-index", false, "Drop and rebuild the vector index before re-embedding")
	return cmd
}

func printReindex(w io.Writer, results []batch.Result, verbose bool) error {
	if verbose {
		for _, r := range results {
			if r.Status() == batch.StatusOK {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %-8s %s: %v\n", r.Status(), r.ID(), r.Err()); err != nil {
				return err
			}
		}
	}
	s := batch.Summarize(results)
	_, err := fmt.Fprintf(w, "Done: %d success, %d failed, %d skipped (of %d)\n",
		s.OK, s.Failed, s.Skipped, len(results))
	return err
}
