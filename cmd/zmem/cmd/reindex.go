package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/output"
)

func newReindexCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild chunks, embeddings, and vectors for a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd, workspace)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace to reindex (required)")
	_ = cmd.MarkFlagRequired("workspace")

	return cmd
}

func runReindex(cmd *cobra.Command, workspace string) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.Reindex(cmd.Context(), a.cfg.ResolveWorkspace(workspace))
	if err != nil {
		return err
	}

	out.Successf("Reindexed %d items (%d errors) in %s", res.Processed, res.Errors, res.Duration)
	return nil
}
