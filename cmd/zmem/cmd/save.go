package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/output"
)

type saveOptions struct {
	title        string
	memType      string
	workspace    string
	scope        string
	source       string
	tags         []string
	importance   float64
	supersedesID string
}

func newSaveCmd() *cobra.Command {
	var opts saveOptions

	cmd := &cobra.Command{
		Use:   "save <content>",
		Short: "Save a memory item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Item title (required)")
	cmd.Flags().StringVar(&opts.memType, "type", string(memory.TypeFact), "Item type: fact, decision, preference, event, goal, todo")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "Workspace (defaults per ZMEM_WORKSPACE/config)")
	cmd.Flags().StringVar(&opts.scope, "scope", string(memory.ScopeWorkspace), "Scope: global, workspace, user")
	cmd.Flags().StringVar(&opts.source, "source", "", "Source identifier (e.g. a file path)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().Float64Var(&opts.importance, "importance", 0.5, "Importance in [0,1]")
	cmd.Flags().StringVar(&opts.supersedesID, "supersedes", "", "ID of the item this save supersedes")

	return cmd
}

func runSave(cmd *cobra.Command, content string, opts saveOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	workspace := a.cfg.ResolveWorkspace(opts.workspace)
	item := &memory.Item{
		Type:          memory.Type(opts.memType),
		Title:         opts.title,
		Content:       content,
		Source:        opts.source,
		Scope:         memory.Scope(opts.scope),
		Workspace:     workspace,
		Tags:          opts.tags,
		Importance:    opts.importance,
		ImportanceSet: true,
		SupersedesID:  opts.supersedesID,
	}

	res, err := a.engine.Save(cmd.Context(), item)
	if err != nil {
		return err
	}

	out.Successf("Saved %s", res.ID)
	if res.SupersededID != "" {
		out.Status("", "Superseded "+res.SupersededID)
	}
	return nil
}
