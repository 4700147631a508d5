// Package core composes the metadata store, vector collection, embedder,
// and search components into the engine's save/get/list/recall/delete/
// reindex/status surface.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosmiclasagnadev/zmem/internal/chunk"
	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/fusion"
	"github.com/cosmiclasagnadev/zmem/internal/lexical"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/store"
	"github.com/cosmiclasagnadev/zmem/internal/telemetry"
	"github.com/cosmiclasagnadev/zmem/internal/vector"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// Engine is the composition root: one long-lived struct holding every
// store and search collaborator the save/recall/... operations need.
type Engine struct {
	mu sync.RWMutex

	meta     store.MetadataStore
	vectors  store.VectorStore
	embedder embed.Embedder
	searcher *vector.Searcher

	chunkOpts chunk.Options
	metrics   *telemetry.RecallMetrics
}

// New builds an Engine from its collaborators. metrics may be nil to
// disable recall latency tracking.
func New(meta store.MetadataStore, vectors store.VectorStore, embedder embed.Embedder, metrics *telemetry.RecallMetrics) *Engine {
	return &Engine{
		meta:      meta,
		vectors:   vectors,
		embedder:  embedder,
		searcher:  vector.New(embedder, vectors, meta),
		chunkOpts: chunk.DefaultOptions(),
		metrics:   metrics,
	}
}

// SaveResult is returned by Save.
type SaveResult struct {
	ID           string
	IsNew        bool
	SupersededID string
}

// Save runs the four-phase dual-store save protocol described in the
// engine's design: prepare outside any transaction, commit the pending
// row, write vectors, then finalise status and clean up.
func (e *Engine) Save(ctx context.Context, item *memory.Item) (*SaveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := memory.ValidateSave(item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	supersedesID := item.SupersedesID
	if supersedesID != "" {
		target, err := e.meta.GetItem(ctx, supersedesID)
		if err != nil {
			return nil, zerrors.NotFoundf("supersedesId %q not found", supersedesID)
		}
		if target.Workspace != item.Workspace || target.Status != memory.StatusActive {
			return nil, zerrors.Conflictf("supersedesId %q is not an active item in workspace %q", supersedesID, item.Workspace)
		}
	}

	// Phase 0: prepare outside any transaction.
	pieces := chunk.Chunk(item.Content, e.chunkOpts)
	chunks := make([]*memory.Chunk, len(pieces))
	requests := make([]embed.Request, len(pieces))
	for i, p := range pieces {
		chunkID := memory.ChunkID(item.ID, p.Seq)
		chunks[i] = &memory.Chunk{ID: chunkID, MemoryID: item.ID, Seq: p.Seq, Pos: p.Pos, TokenCount: p.TokenCount, Text: p.Text}
		requests[i] = embed.Request{ID: chunkID, Text: p.Text}
	}

	var results []embed.Result
	if len(requests) > 0 {
		var err error
		results, err = e.embedder.EmbedBatch(ctx, requests)
		if err != nil {
			return nil, zerrors.Wrap(zerrors.Embedding, err)
		}
		byID := make(map[string]embed.Result, len(results))
		for _, r := range results {
			byID[r.ID] = r
		}
		for _, req := range requests {
			if _, ok := byID[req.ID]; !ok {
				return nil, zerrors.New(zerrors.Embedding, fmt.Sprintf("no embedding returned for chunk %s", req.ID), nil)
			}
		}
	}

	// Phase 1: DB transaction inserting the pending row and its chunks.
	itemID, err := e.meta.InsertPending(ctx, item, chunks)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}

	vectorIDs := make([]string, len(chunks))
	vectorVecs := make([][]float32, len(chunks))
	vectorMetas := make([]memory.VectorMetadata, len(chunks))
	for i, c := range chunks {
		vectorIDs[i] = c.ID
		vectorVecs[i] = resultFor(results, c.ID).Vector
		vectorMetas[i] = memory.VectorMetadata{
			MemoryID:  itemID,
			Workspace: item.Workspace,
			Scope:     item.Scope,
			Type:      item.Type,
			Status:    memory.StatusActive,
		}
	}

	embeddings := make([]memory.Embedding, len(chunks))
	for i, c := range chunks {
		embeddings[i] = memory.Embedding{ChunkID: c.ID, EmbeddedAt: time.Now(), Model: ""}
	}
	if len(embeddings) > 0 {
		if err := e.meta.SaveChunkEmbeddings(ctx, embeddings); err != nil {
			_ = e.meta.DeletePendingItem(ctx, itemID)
			return nil, zerrors.Wrap(zerrors.Database, err)
		}
	}

	// Phase 2: vector writes. Metadata carries status=active even though
	// the row is still pending; row-status filtering governs visibility.
	if len(vectorIDs) > 0 {
		if err := e.vectors.Add(ctx, item.Workspace, vectorIDs, vectorVecs, vectorMetas); err != nil {
			_ = e.meta.DeletePendingItem(ctx, itemID)
			return nil, zerrors.Wrap(zerrors.Database, err)
		}
	}

	// Phase 3: finalise row status.
	if err := e.meta.ActivateItem(ctx, itemID, supersedesID); err != nil {
		if len(vectorIDs) > 0 {
			_ = e.vectors.Delete(ctx, item.Workspace, vectorIDs)
		}
		_ = e.meta.DeletePendingItem(ctx, itemID)
		return nil, zerrors.Wrap(zerrors.Database, err)
	}

	// Phase 4: post-finalise cleanup of the superseded item's vectors.
	if supersedesID != "" {
		oldChunks, err := e.meta.GetChunksByMemory(ctx, supersedesID)
		if err != nil {
			return nil, zerrors.Wrap(zerrors.Database, err)
		}
		oldIDs := make([]string, len(oldChunks))
		for i, c := range oldChunks {
			oldIDs[i] = c.ID
		}
		if len(oldIDs) > 0 {
			if err := e.vectors.Delete(ctx, item.Workspace, oldIDs); err != nil {
				return nil, zerrors.Wrap(zerrors.Database, err)
			}
		}
	}

	return &SaveResult{ID: itemID, IsNew: true, SupersededID: supersedesID}, nil
}

func resultFor(results []embed.Result, id string) embed.Result {
	for _, r := range results {
		if r.ID == id {
			return r
		}
	}
	return embed.Result{}
}

// Get returns an item scoped to workspace, or nil if it does not exist
// or belongs to a different workspace.
func (e *Engine) Get(ctx context.Context, id, workspace string) (*memory.Item, error) {
	if id == "" {
		return nil, zerrors.Validationf("id must not be empty")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, err := e.meta.GetItem(ctx, id)
	if err != nil {
		return nil, nil
	}
	if workspace != "" && item.Workspace != workspace {
		return nil, nil
	}
	return item, nil
}

// ListResult pairs a page of items with the total matching count.
type ListResult struct {
	Items []*memory.Item
	Total int
}

// List returns a page of items matching filter, newest first.
func (e *Engine) List(ctx context.Context, filter store.ListFilter) (*ListResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	items, err := e.meta.List(ctx, filter)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}
	countFilter := filter
	countFilter.Limit = 1 << 30
	all, err := e.meta.List(ctx, countFilter)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}
	return &ListResult{Items: items, Total: len(all)}, nil
}

// RecallMode selects which retrieval path Recall dispatches to.
type RecallMode string

const (
	RecallHybrid RecallMode = "hybrid"
	RecallLexOnly RecallMode = "lexical"
	RecallVecOnly RecallMode = "vector"
)

// RecallOptions narrows a Recall call.
type RecallOptions struct {
	Workspace         string
	Scopes            []memory.Scope
	Types             []memory.Type
	Mode              RecallMode
	TopK              int
	IncludeSuperseded bool
}

// RecallHit is one ranked recall result.
type RecallHit struct {
	ID      string
	Title   string
	Score   float64
	Source  string
	Snippet string
	Scope   memory.Scope
	Type    memory.Type
}

// Recall runs the lexical and/or vector search, fuses the results when
// both are requested, excludes items superseded by another active item
// unless includeSuperseded is set, and truncates to topK.
func (e *Engine) Recall(ctx context.Context, query string, opts RecallOptions) ([]RecallHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, zerrors.Validationf("query must not be blank")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Record(time.Since(start))
		}
	}()

	topK := opts.TopK
	if topK <= 0 {
		topK = 30
	}
	mode := opts.Mode
	if mode == "" {
		mode = RecallHybrid
	}
	statuses := []memory.Status{memory.StatusActive}
	if opts.IncludeSuperseded {
		statuses = append(statuses, memory.StatusArchived)
	}

	var lexHits []lexical.Hit
	var vecHits []vector.Hit
	var err error

	runLex := mode == RecallHybrid || mode == RecallLexOnly
	runVec := mode == RecallHybrid || mode == RecallVecOnly

	if runLex {
		lexOpts := lexical.Options{Workspace: opts.Workspace, Limit: topK, IncludeSuperseded: opts.IncludeSuperseded}
		for _, s := range opts.Scopes {
			lexOpts.Scopes = append(lexOpts.Scopes, string(s))
		}
		lexHits, err = lexical.Search(ctx, e.meta, query, lexOpts)
		if err != nil {
			return nil, err
		}
	}
	if runVec {
		vecHits, err = e.searcher.Search(ctx, query, vector.Options{Workspace: opts.Workspace, Scopes: opts.Scopes, Types: opts.Types, Statuses: statuses, TopK: topK})
		if err != nil {
			return nil, err
		}
	}

	itemsByID, err := e.hydrateByLexicalHits(ctx, lexHits)
	if err != nil {
		return nil, err
	}
	for _, h := range vecHits {
		if _, ok := itemsByID[h.ID]; ok {
			continue
		}
		item, err := e.meta.GetItem(ctx, h.ID)
		if err == nil {
			itemsByID[h.ID] = item
		}
	}

	lexCandidates := make([]fusion.Candidate, 0, len(lexHits))
	seenLex := make(map[string]bool)
	for _, h := range lexHits {
		if seenLex[h.ItemID] {
			continue
		}
		seenLex[h.ItemID] = true
		lexCandidates = append(lexCandidates, fusion.Candidate{ID: h.ItemID, Payload: lexSnippet(itemsByID[h.ItemID], query)})
	}
	vecCandidates := make([]fusion.Candidate, len(vecHits))
	for i, h := range vecHits {
		vecCandidates[i] = fusion.Candidate{ID: h.ID, Payload: h.Snippet}
	}

	var fused []fusion.Result
	switch mode {
	case RecallLexOnly:
		fused = tagOnly(lexCandidates, "lex")
	case RecallVecOnly:
		fused = tagOnly(vecCandidates, "vec")
	default:
		fused = fusion.Fuse(lexCandidates, vecCandidates, fusion.DefaultOptions())
	}

	hidden := e.hiddenSuperseders(ctx, itemsByID, opts.IncludeSuperseded)

	hits := make([]RecallHit, 0, len(fused))
	for _, f := range fused {
		if hidden[f.ID] {
			continue
		}
		item, ok := itemsByID[f.ID]
		if !ok {
			continue
		}
		snippet, _ := f.Payload.(string)
		hits = append(hits, RecallHit{ID: f.ID, Title: item.Title, Score: f.Score, Source: f.Source, Snippet: snippet, Scope: item.Scope, Type: item.Type})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func tagOnly(cands []fusion.Candidate, source string) []fusion.Result {
	out := make([]fusion.Result, len(cands))
	for i, c := range cands {
		out[i] = fusion.Result{ID: c.ID, Score: 1.0 / float64(i+1), Source: source, Payload: c.Payload}
	}
	return out
}

func (e *Engine) hydrateByLexicalHits(ctx context.Context, hits []lexical.Hit) (map[string]*memory.Item, error) {
	items := make(map[string]*memory.Item)
	for _, h := range hits {
		if _, ok := items[h.ItemID]; ok {
			continue
		}
		item, err := e.meta.GetItem(ctx, h.ItemID)
		if err != nil {
			continue
		}
		items[h.ItemID] = item
	}
	return items, nil
}

func lexSnippet(item *memory.Item, query string) string {
	if item == nil {
		return ""
	}
	words := strings.Fields(strings.ToLower(query))
	lower := strings.ToLower(item.Content)
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if idx := strings.Index(lower, w); idx >= 0 {
			start := idx - 50
			if start < 0 {
				start = 0
			}
			end := idx + 150
			if end > len(item.Content) {
				end = len(item.Content)
			}
			return item.Content[start:end]
		}
	}
	if len(item.Content) > 200 {
		return item.Content[:200]
	}
	return item.Content
}

// hiddenSuperseders returns the set of item ids whose SupersedesID points
// at an item that is still active, guarding against the degenerate case of
// two competing active rows. Nothing is hidden when includeSuperseded is set.
func (e *Engine) hiddenSuperseders(ctx context.Context, items map[string]*memory.Item, includeSuperseded bool) map[string]bool {
	hidden := make(map[string]bool)
	if includeSuperseded {
		return hidden
	}
	for id, item := range items {
		if item.SupersedesID == "" {
			continue
		}
		target, err := e.meta.GetItem(ctx, item.SupersedesID)
		if err == nil && target.Status == memory.StatusActive {
			hidden[id] = true
		}
	}
	return hidden
}

// Delete soft-deletes an item and removes its vectors. If vector deletion
// fails, an item that was active is re-activated (its updated_at is set to
// the current time, not restored); an item in any other status stays
// deleted.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, zerrors.Validationf("id must not be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	item, err := e.meta.GetItem(ctx, id)
	if err != nil || item.Status == memory.StatusDeleted {
		return false, nil
	}
	prevStatus := item.Status
	prevUpdatedAt := item.UpdatedAt

	if err := e.meta.SoftDelete(ctx, id); err != nil {
		return false, zerrors.Wrap(zerrors.Database, err)
	}

	chunks, err := e.meta.GetChunksByMemory(ctx, id)
	if err == nil && len(chunks) > 0 {
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		if err := e.vectors.Delete(ctx, item.Workspace, ids); err != nil {
			_ = e.restoreStatus(ctx, id, prevStatus, prevUpdatedAt)
			return false, zerrors.Wrap(zerrors.Database, err)
		}
	}
	return true, nil
}

func (e *Engine) restoreStatus(ctx context.Context, id string, status memory.Status, updatedAt time.Time) error {
	switch status {
	case memory.StatusActive:
		return e.meta.ActivateItem(ctx, id, "")
	default:
		return nil
	}
}

// ReindexResult summarizes a reindex run.
type ReindexResult struct {
	Processed int
	Errors    int
	Duration  time.Duration
}

// Reindex rebuilds chunks, embeddings, and vectors for every active item in
// workspace from its stored content, without recreating any item row. A
// per-item failure is counted in Errors; Reindex continues
// with the remaining items. An empty workspace is a no-op.
func (e *Engine) Reindex(ctx context.Context, workspace string) (*ReindexResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	items, err := e.meta.List(ctx, store.ListFilter{Workspace: workspace, Limit: 1 << 30})
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}

	result := &ReindexResult{}
	for _, item := range items {
		if item.Status != memory.StatusActive {
			continue
		}
		if err := e.reindexOne(ctx, item); err != nil {
			result.Errors++
			continue
		}
		result.Processed++
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) reindexOne(ctx context.Context, item *memory.Item) error {
	oldChunks, err := e.meta.GetChunksByMemory(ctx, item.ID)
	if err != nil {
		return zerrors.Wrap(zerrors.Database, err)
	}
	oldIDs := make([]string, len(oldChunks))
	for i, c := range oldChunks {
		oldIDs[i] = c.ID
	}

	pieces := chunk.Chunk(item.Content, e.chunkOpts)
	newChunks := make([]*memory.Chunk, len(pieces))
	requests := make([]embed.Request, len(pieces))
	for i, p := range pieces {
		chunkID := memory.ChunkID(item.ID, p.Seq)
		newChunks[i] = &memory.Chunk{ID: chunkID, MemoryID: item.ID, Seq: p.Seq, Pos: p.Pos, TokenCount: p.TokenCount, Text: p.Text}
		requests[i] = embed.Request{ID: chunkID, Text: p.Text}
	}

	var results []embed.Result
	if len(requests) > 0 {
		results, err = e.embedder.EmbedBatch(ctx, requests)
		if err != nil {
			return zerrors.Wrap(zerrors.Embedding, err)
		}
		byID := make(map[string]embed.Result, len(results))
		for _, r := range results {
			byID[r.ID] = r
		}
		for _, req := range requests {
			if _, ok := byID[req.ID]; !ok {
				return zerrors.New(zerrors.Embedding, fmt.Sprintf("no embedding returned for chunk %s", req.ID), nil)
			}
		}
	}

	if len(oldIDs) > 0 {
		if err := e.vectors.Delete(ctx, item.Workspace, oldIDs); err != nil {
			return zerrors.Wrap(zerrors.Database, err)
		}
	}

	if err := e.meta.ReplaceChunks(ctx, item.ID, newChunks); err != nil {
		return zerrors.Wrap(zerrors.Database, err)
	}

	embeddings := make([]memory.Embedding, len(newChunks))
	for i, c := range newChunks {
		embeddings[i] = memory.Embedding{ChunkID: c.ID, EmbeddedAt: time.Now(), Model: ""}
	}
	if len(embeddings) > 0 {
		if err := e.meta.SaveChunkEmbeddings(ctx, embeddings); err != nil {
			return zerrors.Wrap(zerrors.Database, err)
		}
	}

	if len(newChunks) > 0 {
		vectorIDs := make([]string, len(newChunks))
		vectorVecs := make([][]float32, len(newChunks))
		vectorMetas := make([]memory.VectorMetadata, len(newChunks))
		for i, c := range newChunks {
			vectorIDs[i] = c.ID
			vectorVecs[i] = resultFor(results, c.ID).Vector
			vectorMetas[i] = memory.VectorMetadata{
				MemoryID:  item.ID,
				Workspace: item.Workspace,
				Scope:     item.Scope,
				Type:      item.Type,
				Status:    memory.StatusActive,
			}
		}
		if err := e.vectors.Add(ctx, item.Workspace, vectorIDs, vectorVecs, vectorMetas); err != nil {
			return zerrors.Wrap(zerrors.Database, err)
		}
	}
	return nil
}

// StatusReport summarizes the engine's workspace-scoped state.
type StatusReport struct {
	TotalItems        int
	TotalVectors      int
	PendingEmbeddings int
	LastIndexedAt     time.Time
}

// Status reports item/vector counts for the given workspace.
func (e *Engine) Status(ctx context.Context, workspace string) (*StatusReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts, err := e.meta.CountByStatus(ctx)
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}
	items, err := e.meta.List(ctx, store.ListFilter{Workspace: workspace, IncludeSuperseded: true, Limit: 1 << 30})
	if err != nil {
		return nil, zerrors.Wrap(zerrors.Database, err)
	}

	var lastIndexed time.Time
	totalVectors := 0
	for _, item := range items {
		if item.UpdatedAt.After(lastIndexed) {
			lastIndexed = item.UpdatedAt
		}
		chunks, err := e.meta.GetChunksByMemory(ctx, item.ID)
		if err == nil {
			totalVectors += len(chunks)
		}
	}

	return &StatusReport{
		TotalItems:        len(items),
		TotalVectors:      totalVectors,
		PendingEmbeddings: counts[memory.StatusPending],
		LastIndexedAt:     lastIndexed,
	}, nil
}
