// Package vector implements semantic recall: embed the query, run an ANN
// search over a workspace's vector collection, and hydrate the surviving
// hits back into full memory items.
package vector

import (
	"context"
	"strings"

	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/store"
)

const defaultTopK = 30

// Options narrows a Search call to a workspace and the usual recall
// filters.
type Options struct {
	Workspace string
	Scopes    []memory.Scope
	Types     []memory.Type
	Statuses  []memory.Status
	TopK      int
}

// Hit is one semantic match, already hydrated from the metadata store.
type Hit struct {
	ID      string
	Title   string
	Snippet string
	Score   float64
	Source  string
	Scope   memory.Scope
	Type    memory.Type
	Status  memory.Status
}

// Searcher composes an embedder, a vector collection, and the metadata
// store that owns the items a vector hit ultimately refers to.
type Searcher struct {
	embedder embed.Embedder
	vectors  store.VectorStore
	metadata store.MetadataStore
}

// New builds a Searcher from its three collaborators.
func New(embedder embed.Embedder, vectors store.VectorStore, metadata store.MetadataStore) *Searcher {
	return &Searcher{embedder: embedder, vectors: vectors, metadata: metadata}
}

// Search embeds query, runs the ANN search, and hydrates every surviving
// hit. Hits whose underlying item is missing, soft-deleted, or filtered
// out by workspace/status are dropped rather than surfaced as partial
// results.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]Hit, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	statuses := opts.Statuses
	if len(statuses) == 0 {
		statuses = []memory.Status{memory.StatusActive}
	}

	vec, err := s.embedder.Embed(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	filter := store.VectorFilter{
		Workspace: opts.Workspace,
		Scopes:    opts.Scopes,
		Types:     opts.Types,
		Status:    statuses,
	}
	vhits, err := s.vectors.Search(ctx, opts.Workspace, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	if len(vhits) == 0 {
		return nil, nil
	}

	items, err := s.hydrate(ctx, vhits, opts.Workspace, statuses)
	if err != nil {
		return nil, err
	}

	queryWords := strings.Fields(strings.ToLower(trimmed))
	hits := make([]Hit, 0, len(vhits))
	for _, h := range vhits {
		memID := memoryIDFromChunkID(h.ChunkID)
		item, ok := items[memID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ID:      memID,
			Title:   item.Title,
			Snippet: snippetFor(item.Content, queryWords),
			Score:   float64(h.Score),
			Source:  "vec",
			Scope:   item.Scope,
			Type:    item.Type,
			Status:  item.Status,
		})
	}
	return hits, nil
}

// hydrate resolves the distinct memory ids referenced by vhits, dropping
// any whose item is missing or does not match workspace/status.
func (s *Searcher) hydrate(ctx context.Context, vhits []store.VectorHit, workspace string, statuses []memory.Status) (map[string]*memory.Item, error) {
	items := make(map[string]*memory.Item)
	seen := make(map[string]bool)
	for _, h := range vhits {
		memID := memoryIDFromChunkID(h.ChunkID)
		if seen[memID] {
			continue
		}
		seen[memID] = true

		item, err := s.metadata.GetItem(ctx, memID)
		if err != nil {
			continue
		}
		if workspace != "" && item.Workspace != workspace {
			continue
		}
		if !statusAllowed(item.Status, statuses) {
			continue
		}
		items[memID] = item
	}
	return items, nil
}

func statusAllowed(status memory.Status, allowed []memory.Status) bool {
	for _, a := range allowed {
		if a == status {
			return true
		}
	}
	return false
}

// memoryIDFromChunkID strips the trailing "_<digits>" chunk sequence
// suffix a chunk id was built with, recovering its owning memory id.
func memoryIDFromChunkID(chunkID string) string {
	idx := strings.LastIndex(chunkID, "_")
	if idx == -1 {
		return chunkID
	}
	suffix := chunkID[idx+1:]
	if suffix == "" {
		return chunkID
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return chunkID
		}
	}
	return chunkID[:idx]
}

const (
	snippetWindow = 200
	snippetBefore = 50
	snippetAfter  = 150
	minWordLen    = 2
)

// snippetFor finds the first query word longer than minWordLen inside
// content and returns a window around it; otherwise the first 200
// characters.
func snippetFor(content string, queryWords []string) string {
	lower := strings.ToLower(content)
	for _, w := range queryWords {
		if len(w) <= minWordLen {
			continue
		}
		idx := strings.Index(lower, w)
		if idx < 0 {
			continue
		}
		start := idx - snippetBefore
		if start < 0 {
			start = 0
		}
		end := idx + snippetAfter
		if end > len(content) {
			end = len(content)
		}
		snippet := content[start:end]
		if start > 0 {
			snippet = "…" + snippet
		}
		if end < len(content) {
			snippet = snippet + "…"
		}
		return snippet
	}
	if len(content) > snippetWindow {
		return content[:snippetWindow] + "…"
	}
	return content
}
