package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var workspace string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace memory health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, workspace, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace to report on")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, workspace string, jsonOutput bool) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ws := a.cfg.ResolveWorkspace(workspace)
	report, err := a.engine.Status(cmd.Context(), ws)
	if err != nil {
		return err
	}

	embedderStatus := "ready"
	if !a.embedder.HealthCheck(cmd.Context()) {
		embedderStatus = "offline"
	}

	info := ui.StatusInfo{
		Workspace:         ws,
		TotalItems:        report.TotalItems,
		TotalVectors:      report.TotalVectors,
		PendingEmbeddings: report.PendingEmbeddings,
		LastIndexedAt:     report.LastIndexedAt,
		DBSize:            fileSize(a.cfg.Storage.DBPath),
		VecSize:           dirSize(a.cfg.Storage.ZvecPath),
		EmbedderProvider:  string(a.cfg.AI.Embedding.Provider),
		EmbedderModel:     a.cfg.AI.Embedding.Model,
		EmbedderStatus:    embedderStatus,
		WatcherStatus:     "n/a",
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func dirSize(root string) int64 {
	var total int64
	_ = filepathWalk(root, func(size int64) { total += size })
	return total
}

func filepathWalk(root string, add func(size int64)) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = filepathWalk(root+"/"+e.Name(), add)
			continue
		}
		if fi, err := e.Info(); err == nil {
			add(fi.Size())
		}
	}
	return nil
}
