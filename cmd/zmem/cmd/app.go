package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cosmiclasagnadev/zmem/internal/config"
	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/ingest"
	"github.com/cosmiclasagnadev/zmem/internal/lockfile"
	"github.com/cosmiclasagnadev/zmem/internal/store"
	"github.com/cosmiclasagnadev/zmem/internal/telemetry"
)

// app bundles the open collaborators every zmem subcommand needs: the
// engine, the ingestion pipeline, and the resolved configuration. close
// releases them in reverse-acquisition order.
type app struct {
	cfg      *config.Config
	engine   *core.Engine
	pipeline *ingest.Pipeline
	embedder embed.Embedder
	meta     store.MetadataStore
	vectors  store.VectorStore
	lock     *lockfile.Lock
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(os.Getenv("ZMEM_CONFIG"))
	if err != nil {
		return nil, err
	}

	lock := lockfile.New(cfg.Storage.DBPath)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}

	meta, err := store.OpenSQLiteMetadataStore(cfg.Storage.DBPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	vectors, err := store.NewHNSWVectorStore(store.Config{
		DBPath:     cfg.Storage.DBPath,
		VecPath:    cfg.Storage.ZvecPath,
		Dimensions: cfg.AI.Embedding.Dimensions,
	})
	if err != nil {
		_ = meta.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	embedder, err := embed.New(cfg.AI.Embedding)
	if err != nil {
		_ = vectors.Close()
		_ = meta.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	if err := embedder.Initialize(ctx); err != nil {
		_ = vectors.Close()
		_ = meta.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	engine := core.New(meta, vectors, embedder, telemetry.NewRecallMetrics())
	pipeline := ingest.NewPipeline(engine, meta)

	return &app{
		cfg:      cfg,
		engine:   engine,
		pipeline: pipeline,
		embedder: embedder,
		meta:     meta,
		vectors:  vectors,
		lock:     lock,
	}, nil
}

func (a *app) Close() {
	_ = a.embedder.Dispose()
	_ = a.vectors.Close()
	_ = a.meta.Close()
	_ = a.lock.Unlock()
}
