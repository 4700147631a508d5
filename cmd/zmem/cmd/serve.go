package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/mcptools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve zmem's memory tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := mcptools.NewServer(a.engine, a.pipeline, a.cfg)
	slog.Info("zmem serve starting", slog.String("dbPath", a.cfg.Storage.DBPath))
	return server.Run(ctx)
}
