// Command zmem-mcp serves zmem's memory tool surface over MCP stdio,
// for embedding zmem directly inside an agent harness.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosmiclasagnadev/zmem/internal/config"
	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/ingest"
	"github.com/cosmiclasagnadev/zmem/internal/lockfile"
	"github.com/cosmiclasagnadev/zmem/internal/mcptools"
	"github.com/cosmiclasagnadev/zmem/internal/store"
	"github.com/cosmiclasagnadev/zmem/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "zmem-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("ZMEM_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	lock := lockfile.New(cfg.Storage.DBPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	meta, err := store.OpenSQLiteMetadataStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer func() { _ = meta.Close() }()

	vectors, err := store.NewHNSWVectorStore(store.Config{
		DBPath:     cfg.Storage.DBPath,
		VecPath:    cfg.Storage.ZvecPath,
		Dimensions: cfg.AI.Embedding.Dimensions,
	})
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() { _ = vectors.Close() }()

	embedder, err := embed.New(cfg.AI.Embedding)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := embedder.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize embedder: %w", err)
	}
	defer func() { _ = embedder.Dispose() }()

	engine := core.New(meta, vectors, embedder, telemetry.NewRecallMetrics())
	pipeline := ingest.NewPipeline(engine, meta)

	server := mcptools.NewServer(engine, pipeline, cfg)
	slog.Info("zmem-mcp starting", slog.String("dbPath", cfg.Storage.DBPath))
	return server.Run(ctx)
}
