// Package store persists memory items, chunks, and their embeddings: a
// SQLite-backed metadata store with an FTS5 lexical index, and an HNSW
// vector collection with its own metadata sidecar for filtering.
package store

import (
	"context"
	"time"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
)

// MetadataStore persists memory items, chunks, and chunk embeddings, and
// exposes the lexical (BM25/FTS5) search surface over active items.
type MetadataStore interface {
	// InsertPending inserts a new item row with status pending, along with
	// its chunks. Returns the assigned item ID.
	InsertPending(ctx context.Context, item *memory.Item, chunks []*memory.Chunk) (string, error)

	// SaveChunkEmbeddings records which model embedded which chunk, after
	// the vectors themselves have been written to the vector store.
	SaveChunkEmbeddings(ctx context.Context, embeddings []memory.Embedding) error

	// ActivateItem transitions a pending item to active. If supersedesID
	// is non-empty, that item is transitioned to archived in the same
	// transaction.
	ActivateItem(ctx context.Context, itemID, supersedesID string) error

	// DeletePendingItem removes a pending item and its chunks, used to
	// roll back a save that failed before activation.
	DeletePendingItem(ctx context.Context, itemID string) error

	// GetItem returns an item by ID regardless of status.
	GetItem(ctx context.Context, id string) (*memory.Item, error)

	// GetActiveBySource returns the active item for a given (workspace,
	// source) pair, or nil if none exists.
	GetActiveBySource(ctx context.Context, workspace, source string) (*memory.Item, error)

	// ListActiveSourcesByWorkspace returns source -> content hash for every
	// active item in a workspace, used by ingestion to detect changes.
	ListActiveSourcesByWorkspace(ctx context.Context, workspace string) (map[string]string, error)

	// List returns items matching the given filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*memory.Item, error)

	// SoftDelete marks an item deleted without removing its row.
	SoftDelete(ctx context.Context, id string) error

	// GetChunksByMemory returns all non-deleted chunks for a memory item,
	// ordered by sequence.
	GetChunksByMemory(ctx context.Context, memoryID string) ([]*memory.Chunk, error)

	// GetChunks returns chunks by ID, skipping any that no longer exist.
	GetChunks(ctx context.Context, ids []string) ([]*memory.Chunk, error)

	// ReplaceChunks tombstones every existing non-deleted chunk for itemID,
	// inserts newChunks in its place, and advances the item's updated_at.
	// The item's row and status are untouched, per the reindex contract.
	ReplaceChunks(ctx context.Context, itemID string, newChunks []*memory.Chunk) error

	// LexicalSearch runs an FTS5 MATCH expression against active items'
	// title/content/tags, scored by bm25(). matchExpr is already in FTS5
	// query syntax.
	LexicalSearch(ctx context.Context, matchExpr string, opts SearchOptions) ([]LexicalHit, error)

	// ArchivedKeywordSearch runs a LIKE-based fallback over archived items'
	// title/content, used when a search includes superseded items. Every hit
	// is returned with the fixed fallback score 0.35.
	ArchivedKeywordSearch(ctx context.Context, keyword string, opts SearchOptions) ([]LexicalHit, error)

	// CountByStatus returns the number of items per status, for status
	// reporting.
	CountByStatus(ctx context.Context) (map[memory.Status]int, error)

	// Close releases the underlying database handle.
	Close() error
}

// ListFilter narrows List results.
type ListFilter struct {
	Workspace         string
	Scopes            []memory.Scope
	Types             []memory.Type
	IncludeSuperseded bool
	Limit             int
	Cursor            string
}

// SearchOptions narrows LexicalSearch to a workspace/scope slice.
type SearchOptions struct {
	Workspace string
	Scopes    []memory.Scope
	Limit     int
}

// LexicalHit is one item-level lexical match.
type LexicalHit struct {
	ItemID string
	Score  float64
}

// VectorMetadata is stored alongside each vector for over-fetch-and-reject
// filtering, since the HNSW graph has no native predicate support.
type VectorMetadata = memory.VectorMetadata

// VectorFilter narrows a vector Search call.
type VectorFilter struct {
	Workspace string
	Scopes    []memory.Scope
	Types     []memory.Type
	Status    []memory.Status
}

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	ChunkID  string
	Score    float32
	Metadata VectorMetadata
}

// VectorStore provides per-workspace ANN search over chunk embeddings.
type VectorStore interface {
	// Add inserts or replaces vectors, each tagged with metadata used for
	// filtering at query time.
	Add(ctx context.Context, workspace string, ids []string, vectors [][]float32, metas []VectorMetadata) error

	// Search returns up to k nearest neighbours matching filter, over-
	// fetching internally to compensate for post-filtering rejection.
	Search(ctx context.Context, workspace string, query []float32, k int, filter VectorFilter) ([]VectorHit, error)

	// Delete removes vectors by ID from a workspace's collection.
	Delete(ctx context.Context, workspace string, ids []string) error

	// UpdateStatus rewrites the stored status for a set of vector IDs
	// without touching their coordinates, used when an item is activated
	// or archived after its vectors were already written.
	UpdateStatus(ctx context.Context, workspace string, ids []string, status memory.Status) error

	// Save persists the named workspace's collection to disk.
	Save(workspace string) error

	// Close flushes and releases every open collection.
	Close() error
}

// Config bundles the construction parameters for the store package.
type Config struct {
	DBPath  string
	VecPath string

	// Dimensions is the embedding vector width; required by the vector
	// collection before any vectors are added.
	Dimensions int

	// M and EfConstruction tune the HNSW graph. Zero selects the package
	// defaults (m=16, efConstruction=128).
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultConfig returns sensible defaults for Config's HNSW parameters.
func DefaultConfig(dbPath, vecPath string, dimensions int) Config {
	return Config{
		DBPath:         dbPath,
		VecPath:        vecPath,
		Dimensions:     dimensions,
		M:              16,
		EfConstruction: 128,
		EfSearch:       128,
	}
}

// now returns the current time used for every store timestamp.
func now() time.Time {
	return time.Now()
}
