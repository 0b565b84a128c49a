package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/thepool/internal/domain"
	"github.com/kailas-cloud/thepool/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/thepool/internal/usecase/search"
)

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		exclude    string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank profiles for a query",
		Example: `  poolctl search "react developer"
  poolctl search дизайн --limit 5 --exclude u42
  poolctl search ml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := request.New(args[0], exclude, limit)
			if err != nil {
				return err
			}

			a, logger, err := g.bootstrap(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer a.Close()

			ctx, usage := domain.NewContextWithUsage(cmd.Context())
			res, err := a.Search.Search(ctx, req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Users)
			}
			return printResults(cmd.OutOrStdout(), res, usage)
		},
	}

	cmd.Flags().StringVar(&exclude, "exclude", "", "Profile ID to leave out (the searcher)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results, 0 for all")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output users as JSON")
	return cmd
}

func printResults(w io.Writer, res searchuc.Result, usage *domain.EmbeddingUsage) error {
	signal := "lexical only"
	if res.Semantic {
		signal = "hybrid"
	}
	fmt.Fprintf(w, "Mode: %s (%s), %d users", res.Mode, signal, len(res.Users))
	if usage != nil && usage.Used {
		fmt.Fprintf(w, ", %d embedding tokens", usage.TotalTokens)
	}
	fmt.Fprintln(w)
	if len(res.Users) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tID\tNAME\tREADY")
	for i, u := range res.Users {
		ready := "no"
		if u.IsReady {
			ready = "yes"
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%s\t%s\t%s\n", i+1, u.Score, u.ID, u.Name, ready)
	}
	return tw.Flush()
}
