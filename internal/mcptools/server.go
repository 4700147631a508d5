// Package mcptools exposes the engine's save/get/list/recall/delete/status
// (and optionally reindex) surface as an MCP tool server, wrapping
// github.com/modelcontextprotocol/go-sdk/mcp the way the teacher's own
// MCP entry point registers typed tool handlers.
package mcptools

import (
	"context"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cosmiclasagnadev/zmem/internal/config"
	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/ingest"
)

const (
	envVerbose       = "ZMEM_MCP_VERBOSE"
	envEnableReindex = "ZMEM_ENABLE_REINDEX_TOOL"
)

// Server wraps an mcp.Server bound to one Engine and its ingestion
// pipeline.
type Server struct {
	mcp      *mcp.Server
	engine   *core.Engine
	pipeline *ingest.Pipeline
	cfg      *config.Config
	logger   *slog.Logger
}

// NewServer builds a tool server over engine/pipeline/cfg, registering the
// always-on tool set plus memory_reindex when ZMEM_ENABLE_REINDEX_TOOL=true.
func NewServer(engine *core.Engine, pipeline *ingest.Pipeline, cfg *config.Config) *Server {
	level := slog.LevelInfo
	if os.Getenv(envVerbose) == "true" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := &Server{
		mcp:      mcp.NewServer(&mcp.Implementation{Name: "zmem", Version: "0.1.0"}, nil),
		engine:   engine,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_query",
		Description: "Recall saved memories relevant to a natural-language query using hybrid lexical+vector search.",
	}, s.handleQuery)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_get",
		Description: "Fetch a single memory item by id.",
	}, s.handleGet)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_list",
		Description: "List memory items in a workspace, newest first.",
	}, s.handleList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_save",
		Description: "Save a new memory item, optionally superseding a prior one.",
	}, s.handleSave)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_delete",
		Description: "Soft-delete a memory item by id.",
	}, s.handleDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_status",
		Description: "Report item/vector counts for a workspace.",
	}, s.handleStatus)

	if os.Getenv(envEnableReindex) == "true" {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "memory_reindex",
			Description: "Rebuild chunks, embeddings, and vectors for every active item in a workspace.",
		}, s.handleReindex)
		s.logger.Info("registered admin tool", slog.String("tool", "memory_reindex"))
	}

	s.logger.Info("mcp tools registered")
}

// Run serves the tool surface over stdio until ctx is cancelled or stdin
// closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
