package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/output"
)

func newGetCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a memory item by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], workspace)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace to scope the lookup to")

	return cmd
}

func runGet(cmd *cobra.Command, id, workspace string) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ws := a.cfg.ResolveWorkspace(workspace)
	item, err := a.engine.Get(cmd.Context(), id, ws)
	if err != nil {
		return err
	}
	if item == nil {
		out.Error("not found")
		return fmt.Errorf("item %q not found in workspace %q", id, ws)
	}

	out.Successf("%s (%s)", item.Title, item.Type)
	out.Status("", fmt.Sprintf("status: %s  scope: %s  workspace: %s", item.Status, item.Scope, item.Workspace))
	if item.Source != "" {
		out.Status("", "source: "+item.Source)
	}
	out.Newline()
	out.Code(item.Content)
	return nil
}
