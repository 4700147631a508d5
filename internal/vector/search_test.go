package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/store"
)

type fixedVectorEmbedder struct{ vector []float32 }

func (f *fixedVectorEmbedder) Initialize(ctx context.Context) error { return nil }
func (f *fixedVectorEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}
func (f *fixedVectorEmbedder) EmbedBatch(ctx context.Context, reqs []embed.Request) ([]embed.Result, error) {
	return nil, nil
}
func (f *fixedVectorEmbedder) HealthCheck(ctx context.Context) bool { return true }
func (f *fixedVectorEmbedder) Dispose() error                       { return nil }

var _ embed.Embedder = (*fixedVectorEmbedder)(nil)

func TestMemoryIDFromChunkID(t *testing.T) {
	assert.Equal(t, "abc", memoryIDFromChunkID("abc_0"))
	assert.Equal(t, "abc-def", memoryIDFromChunkID("abc-def_12"))
	assert.Equal(t, "noseparator", memoryIDFromChunkID("noseparator"))
	assert.Equal(t, "abc_xy", memoryIDFromChunkID("abc_xy"))
}

func TestSnippetForFindsQueryWord(t *testing.T) {
	content := "this is a long piece of content describing the deploy pipeline in great detail for testing"
	snippet := snippetFor(content, []string{"deploy"})
	assert.Contains(t, snippet, "deploy")
}

func TestSnippetForFallsBackToPrefix(t *testing.T) {
	content := "short content"
	snippet := snippetFor(content, []string{"missing"})
	assert.Equal(t, content, snippet)
}

func TestSearchReturnsEmptyForBlankQuery(t *testing.T) {
	s := New(nil, nil, nil)
	hits, err := s.Search(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestSearchEndToEndHydratesHits(t *testing.T) {
	ctx := context.Background()

	meta, err := store.OpenSQLiteMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	vecs, err := store.NewHNSWVectorStore(store.Config{VecPath: filepath.Join(t.TempDir(), "vectors"), Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vecs.Close() })

	item := &memory.Item{
		ID: uuid.NewString(), Type: memory.TypeFact, Title: "Deploy Runbook",
		Content: "the deploy pipeline rolls back automatically on failure",
		Scope:   memory.ScopeWorkspace, Workspace: "ws1", Source: "runbook.md",
		Tags: []string{}, Importance: 0.5, ContentHash: "h1",
	}
	chunk := &memory.Chunk{ID: memory.ChunkID(item.ID, 0), Seq: 0, Text: item.Content}
	_, err = meta.InsertPending(ctx, item, []*memory.Chunk{chunk})
	require.NoError(t, err)
	require.NoError(t, meta.ActivateItem(ctx, item.ID, ""))

	vec := []float32{1, 0, 0, 0}
	vmeta := memory.VectorMetadata{MemoryID: item.ID, Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive}
	require.NoError(t, vecs.Add(ctx, "ws1", []string{chunk.ID}, [][]float32{vec}, []memory.VectorMetadata{vmeta}))

	searcher := New(&fixedVectorEmbedder{vector: vec}, vecs, meta)
	hits, err := searcher.Search(ctx, "deploy pipeline", Options{Workspace: "ws1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, item.ID, hits[0].ID)
	assert.Equal(t, "Deploy Runbook", hits[0].Title)
	assert.Contains(t, hits[0].Snippet, "deploy")
	assert.Equal(t, "vec", hits[0].Source)
}

func TestSearchDropsHitsForWrongWorkspace(t *testing.T) {
	ctx := context.Background()

	meta, err := store.OpenSQLiteMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	vecs, err := store.NewHNSWVectorStore(store.Config{VecPath: filepath.Join(t.TempDir(), "vectors"), Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vecs.Close() })

	item := &memory.Item{
		ID: uuid.NewString(), Type: memory.TypeFact, Title: "Other workspace item",
		Content: "unrelated content", Scope: memory.ScopeWorkspace, Workspace: "ws2",
		Source: "x.md", Tags: []string{}, Importance: 0.5, ContentHash: "h2",
	}
	chunk := &memory.Chunk{ID: memory.ChunkID(item.ID, 0), Seq: 0, Text: item.Content}
	_, err = meta.InsertPending(ctx, item, []*memory.Chunk{chunk})
	require.NoError(t, err)
	require.NoError(t, meta.ActivateItem(ctx, item.ID, ""))

	vec := []float32{1, 0, 0, 0}
	vmeta := memory.VectorMetadata{MemoryID: item.ID, Workspace: "ws2", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive}
	require.NoError(t, vecs.Add(ctx, "ws2", []string{chunk.ID}, [][]float32{vec}, []memory.VectorMetadata{vmeta}))

	searcher := New(&fixedVectorEmbedder{vector: vec}, vecs, meta)
	hits, err := searcher.Search(ctx, "content", Options{Workspace: "ws1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
