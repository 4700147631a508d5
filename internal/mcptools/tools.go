package mcptools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/store"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

const maxQueryLimit = 100

// QueryInput is the memory_query tool's argument shape.
type QueryInput struct {
	Query             string   `json:"query" jsonschema:"the natural-language query to search for"`
	Workspace         string   `json:"workspace,omitempty" jsonschema:"workspace to search within; defaults to the configured workspace"`
	Scopes            []string `json:"scopes,omitempty" jsonschema:"restrict results to these scopes (global, workspace, user)"`
	Types             []string `json:"types,omitempty" jsonschema:"restrict results to these memory types"`
	Mode              string   `json:"mode,omitempty" jsonschema:"hybrid, lexical, or vector; defaults to hybrid"`
	Limit             int      `json:"limit,omitempty" jsonschema:"maximum number of hits to return, at most 100"`
	IncludeSuperseded bool     `json:"includeSuperseded,omitempty" jsonschema:"include archived/superseded items in results"`
}

// QueryHit is one result row in QueryOutput.
type QueryHit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Snippet string  `json:"snippet"`
	Scope   string  `json:"scope"`
	Type    string  `json:"type"`
}

// QueryOutput is the memory_query tool's result shape.
type QueryOutput struct {
	Hits []QueryHit `json:"hits"`
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	s.logger.Debug("memory_query", slog.Int("queryLen", len(in.Query)), slog.String("mode", in.Mode))

	if in.Limit > maxQueryLimit {
		return nil, QueryOutput{}, zerrors.Validationf("limit must not exceed %d", maxQueryLimit)
	}

	opts := core.RecallOptions{
		Workspace:         s.cfg.ResolveWorkspace(in.Workspace),
		Mode:              core.RecallMode(in.Mode),
		TopK:              in.Limit,
		IncludeSuperseded: in.IncludeSuperseded,
	}
	for _, sc := range in.Scopes {
		opts.Scopes = append(opts.Scopes, memory.Scope(sc))
	}
	for _, t := range in.Types {
		opts.Types = append(opts.Types, memory.Type(t))
	}

	hits, err := s.engine.Recall(ctx, in.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	out := QueryOutput{Hits: make([]QueryHit, len(hits))}
	for i, h := range hits {
		out.Hits[i] = QueryHit{ID: h.ID, Title: h.Title, Score: h.Score, Source: h.Source, Snippet: h.Snippet, Scope: string(h.Scope), Type: string(h.Type)}
	}
	return nil, out, nil
}

// GetInput is the memory_get tool's argument shape.
type GetInput struct {
	ID        string `json:"id" jsonschema:"the memory item id to fetch"`
	Workspace string `json:"workspace,omitempty" jsonschema:"workspace the item must belong to"`
}

// GetOutput is the memory_get tool's result shape.
type GetOutput struct {
	Item *ItemView `json:"item"`
}

// ItemView is the wire representation of a memory.Item.
type ItemView struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Source       string   `json:"source,omitempty"`
	Scope        string   `json:"scope"`
	Workspace    string   `json:"workspace"`
	Tags         []string `json:"tags,omitempty"`
	Importance   float64  `json:"importance"`
	Status       string   `json:"status"`
	SupersedesID string   `json:"supersedesId,omitempty"`
}

func itemView(item *memory.Item) *ItemView {
	if item == nil {
		return nil
	}
	return &ItemView{
		ID: item.ID, Type: string(item.Type), Title: item.Title, Content: item.Content,
		Source: item.Source, Scope: string(item.Scope), Workspace: item.Workspace, Tags: item.Tags,
		Importance: item.Importance, Status: string(item.Status), SupersedesID: item.SupersedesID,
	}
}

func (s *Server) handleGet(ctx context.Context, req *mcp.CallToolRequest, in GetInput) (*mcp.CallToolResult, GetOutput, error) {
	if in.ID == "" {
		return nil, GetOutput{}, zerrors.Validationf("id must not be empty")
	}
	s.logger.Debug("memory_get", slog.String("id", in.ID))

	item, err := s.engine.Get(ctx, in.ID, s.cfg.ResolveWorkspace(in.Workspace))
	if err != nil {
		return nil, GetOutput{}, err
	}
	return nil, GetOutput{Item: itemView(item)}, nil
}

// ListInput is the memory_list tool's argument shape.
type ListInput struct {
	Workspace         string `json:"workspace,omitempty" jsonschema:"workspace to list items from"`
	Type              string `json:"type,omitempty" jsonschema:"restrict to this memory type"`
	IncludeSuperseded bool   `json:"includeSuperseded,omitempty" jsonschema:"include archived/superseded items"`
	Limit             int    `json:"limit,omitempty" jsonschema:"maximum number of items to return"`
}

// ListOutput is the memory_list tool's result shape.
type ListOutput struct {
	Items []*ItemView `json:"items"`
	Total int         `json:"total"`
}

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, in ListInput) (*mcp.CallToolResult, ListOutput, error) {
	s.logger.Debug("memory_list", slog.String("workspace", in.Workspace))

	filter := store.ListFilter{
		Workspace:         s.cfg.ResolveWorkspace(in.Workspace),
		IncludeSuperseded: in.IncludeSuperseded,
		Limit:             in.Limit,
	}
	if in.Type != "" {
		filter.Types = []memory.Type{memory.Type(in.Type)}
	}
	result, err := s.engine.List(ctx, filter)
	if err != nil {
		return nil, ListOutput{}, err
	}

	out := ListOutput{Items: make([]*ItemView, len(result.Items)), Total: result.Total}
	for i, item := range result.Items {
		out.Items[i] = itemView(item)
	}
	return nil, out, nil
}

// SaveInput is the memory_save tool's argument shape.
type SaveInput struct {
	Title        string   `json:"title" jsonschema:"a short title for this memory"`
	Content      string   `json:"content" jsonschema:"the memory's full text content"`
	Type         string   `json:"type,omitempty" jsonschema:"fact, decision, preference, event, goal, or todo; defaults to fact"`
	Workspace    string   `json:"workspace,omitempty" jsonschema:"workspace to save into"`
	Scope        string   `json:"scope,omitempty" jsonschema:"global, workspace, or user; defaults to workspace"`
	Source       string   `json:"source,omitempty" jsonschema:"originating file or identifier"`
	Tags         []string `json:"tags,omitempty"`
	Importance   *float64 `json:"importance,omitempty" jsonschema:"0 to 1; defaults to 0.5 when omitted"`
	SupersedesID string   `json:"supersedesId,omitempty" jsonschema:"id of an active item this save replaces"`
}

// SaveOutput is the memory_save tool's result shape.
type SaveOutput struct {
	ID           string `json:"id"`
	SupersededID string `json:"supersededId,omitempty"`
}

func (s *Server) handleSave(ctx context.Context, req *mcp.CallToolRequest, in SaveInput) (*mcp.CallToolResult, SaveOutput, error) {
	if in.Title == "" {
		return nil, SaveOutput{}, zerrors.Validationf("title must not be empty")
	}
	s.logger.Debug("memory_save", slog.Int("contentLen", len(in.Content)), slog.String("workspace", in.Workspace))

	item := &memory.Item{
		Type: memory.Type(in.Type), Title: in.Title, Content: in.Content, Source: in.Source,
		Scope: memory.Scope(in.Scope), Workspace: s.cfg.ResolveWorkspace(in.Workspace),
		Tags: in.Tags, SupersedesID: in.SupersedesID,
	}
	if in.Importance != nil {
		item.Importance = *in.Importance
		item.ImportanceSet = true
	}
	res, err := s.engine.Save(ctx, item)
	if err != nil {
		return nil, SaveOutput{}, err
	}
	return nil, SaveOutput{ID: res.ID, SupersededID: res.SupersededID}, nil
}

// DeleteInput is the memory_delete tool's argument shape.
type DeleteInput struct {
	ID string `json:"id" jsonschema:"the memory item id to delete"`
}

// DeleteOutput is the memory_delete tool's result shape.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, in DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if in.ID == "" {
		return nil, DeleteOutput{}, zerrors.Validationf("id must not be empty")
	}
	s.logger.Debug("memory_delete", slog.String("id", in.ID))

	ok, err := s.engine.Delete(ctx, in.ID)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: ok}, nil
}

// StatusInput is the memory_status tool's argument shape.
type StatusInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"workspace to report on"`
}

// StatusOutput is the memory_status tool's result shape.
type StatusOutput struct {
	TotalItems        int    `json:"totalItems"`
	TotalVectors      int    `json:"totalVectors"`
	PendingEmbeddings int    `json:"pendingEmbeddings"`
	LastIndexedAt     string `json:"lastIndexedAt,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, in StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	s.logger.Debug("memory_status", slog.String("workspace", in.Workspace))

	report, err := s.engine.Status(ctx, s.cfg.ResolveWorkspace(in.Workspace))
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out := StatusOutput{TotalItems: report.TotalItems, TotalVectors: report.TotalVectors, PendingEmbeddings: report.PendingEmbeddings}
	if !report.LastIndexedAt.IsZero() {
		out.LastIndexedAt = report.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return nil, out, nil
}

// ReindexInput is the memory_reindex tool's argument shape.
type ReindexInput struct {
	Workspace string `json:"workspace" jsonschema:"workspace to rebuild chunks, embeddings, and vectors for"`
}

// ReindexOutput is the memory_reindex tool's result shape.
type ReindexOutput struct {
	Processed int    `json:"processed"`
	Errors    int    `json:"errors"`
	Duration  string `json:"duration"`
}

func (s *Server) handleReindex(ctx context.Context, req *mcp.CallToolRequest, in ReindexInput) (*mcp.CallToolResult, ReindexOutput, error) {
	if in.Workspace == "" {
		return nil, ReindexOutput{}, zerrors.Validationf("workspace must not be empty")
	}
	s.logger.Info("memory_reindex", slog.String("workspace", in.Workspace))

	result, err := s.pipeline.Reindex(ctx, in.Workspace)
	if err != nil {
		return nil, ReindexOutput{}, err
	}
	return nil, ReindexOutput{Processed: result.Processed, Errors: result.Errors, Duration: result.Duration.String()}, nil
}
