package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/output"
)

type recallOptions struct {
	workspace         string
	mode              string
	limit             int
	includeSuperseded bool
}

func newRecallCmd() *cobra.Command {
	var opts recallOptions

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Recall memory items via hybrid search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecall(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "Workspace to search")
	cmd.Flags().StringVar(&opts.mode, "mode", "hybrid", "Retrieval mode: hybrid, lexical, vector")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&opts.includeSuperseded, "include-superseded", false, "Include archived/superseded items")

	return cmd
}

func runRecall(cmd *cobra.Command, query string, opts recallOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	hits, err := a.engine.Recall(cmd.Context(), query, core.RecallOptions{
		Workspace:         a.cfg.ResolveWorkspace(opts.workspace),
		Mode:              core.RecallMode(opts.mode),
		TopK:              opts.limit,
		IncludeSuperseded: opts.includeSuperseded,
	})
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Statusf("", "%d results for %q", len(hits), query)
	out.Newline()
	for i, h := range hits {
		out.Statusf("", "%d. %s (score: %.3f, via %s)", i+1, h.Title, h.Score, h.Source)
		if h.Snippet != "" {
			out.Status("", "   "+h.Snippet)
		}
	}
	return nil
}
