package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/output"
	"github.com/cosmiclasagnadev/zmem/internal/store"
)

type listOptions struct {
	workspace         string
	memType           string
	includeSuperseded bool
	limit             int
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memory items in a workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "Workspace to list")
	cmd.Flags().StringVar(&opts.memType, "type", "", "Filter by item type")
	cmd.Flags().BoolVar(&opts.includeSuperseded, "include-superseded", false, "Include archived/superseded items")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "Maximum number of items")

	return cmd
}

func runList(cmd *cobra.Command, opts listOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	filter := store.ListFilter{
		Workspace:         a.cfg.ResolveWorkspace(opts.workspace),
		IncludeSuperseded: opts.includeSuperseded,
		Limit:             opts.limit,
	}
	if opts.memType != "" {
		filter.Types = []memory.Type{memory.Type(opts.memType)}
	}

	res, err := a.engine.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if len(res.Items) == 0 {
		out.Status("", "No items found")
		return nil
	}

	out.Statusf("", "%d items", res.Total)
	for _, item := range res.Items {
		out.Status("", fmt.Sprintf("%s  [%s/%s]  %s", item.ID, item.Type, item.Status, item.Title))
	}
	return nil
}
