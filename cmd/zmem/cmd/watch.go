package cmd

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/config"
	"github.com/cosmiclasagnadev/zmem/internal/ingest"
	"github.com/cosmiclasagnadev/zmem/internal/output"
	"github.com/cosmiclasagnadev/zmem/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <workspace>",
		Short: "Watch a workspace root and re-ingest on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a re-ingest is triggered")

	return cmd
}

func runWatch(cmd *cobra.Command, workspaceName string, debounce time.Duration) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ws := findWorkspace(a.cfg, a.cfg.ResolveWorkspace(workspaceName))
	if ws == nil {
		return fmt.Errorf("workspace %q is not configured", workspaceName)
	}

	ingestOpts := ingest.Options{
		Workspace:    ws.Name,
		RootPath:     ws.Root,
		GlobPatterns: ws.Patterns,
	}

	runOnce := func() {
		res, err := a.pipeline.Run(cmd.Context(), ingestOpts)
		if err != nil {
			out.Errorf("ingest failed: %v", err)
			return
		}
		out.Successf("Ingested: %d scanned, %d inserted, %d updated, %d removed, %d errors",
			res.Scanned, res.Inserted, res.Updated, res.Removed, res.Errors)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(ws.Root); err != nil {
		return fmt.Errorf("watch %s: %w", ws.Root, err)
	}

	out.Statusf("", "Watching %s for workspace %q (debounce %s)", ws.Root, ws.Name, debounce)
	runOnce()

	debouncer := watch.NewDebouncer(debounce)
	defer debouncer.Stop()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debouncer.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			out.Errorf("watch error: %v", err)
		case <-debouncer.Output():
			runOnce()
		}
	}
}

func findWorkspace(cfg *config.Config, name string) *config.WorkspaceConfig {
	for i := range cfg.Workspaces {
		if cfg.Workspaces[i].Name == name {
			return &cfg.Workspaces[i]
		}
	}
	return nil
}
