package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/output"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a memory item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}
	return cmd
}

func runDelete(cmd *cobra.Command, id string) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	deleted, err := a.engine.Delete(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("item %q not found or already deleted", id)
	}

	out.Successf("Deleted %s", id)
	return nil
}
