package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/store"
)

const testDims = 4

type hashEmbedder struct{}

func (h *hashEmbedder) Initialize(ctx context.Context) error { return nil }

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, testDims)
	v[len(text)%testDims] = 1
	return v, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, requests []embed.Request) ([]embed.Result, error) {
	results := make([]embed.Result, len(requests))
	for i, r := range requests {
		vec, _ := h.Embed(ctx, r.Text)
		results[i] = embed.Result{ID: r.ID, Vector: vec, Dimensions: testDims}
	}
	return results, nil
}

func (h *hashEmbedder) HealthCheck(ctx context.Context) bool { return true }
func (h *hashEmbedder) Dispose() error                       { return nil }

func newTestPipeline(t *testing.T) (*Pipeline, store.MetadataStore) {
	t.Helper()
	meta, err := store.OpenSQLiteMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	vecs, err := store.NewHNSWVectorStore(store.Config{VecPath: filepath.Join(t.TempDir(), "vectors"), Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vecs.Close() })

	engine := core.New(meta, vecs, &hashEmbedder{}, nil)
	return NewPipeline(engine, meta), meta
}

func TestRunInsertsNewDocuments(t *testing.T) {
	pipeline, meta := newTestPipeline(t)
	root := t.TempDir()
	writeFile(t, root, "a.md", "# Alpha\ncontent about alpha systems\n")
	writeFile(t, root, "b.md", "# Beta\ncontent about beta systems\n")

	result, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errors)
	assert.Positive(t, result.ChunksCreated)

	items, err := meta.List(context.Background(), store.ListFilter{Workspace: "ws1"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRunIsIdempotentOnUnchangedCorpus(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	root := t.TempDir()
	writeFile(t, root, "a.md", "# Alpha\nstable content\n")

	first, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)
	require.Equal(t, 1, first.Inserted)

	second, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Unchanged)
}

func TestRunUpdatesChangedDocumentAndSupersedesOldRow(t *testing.T) {
	pipeline, meta := newTestPipeline(t)
	root := t.TempDir()
	writeFile(t, root, "a.md", "# Alpha\noriginal content\n")

	_, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)

	writeFile(t, root, "a.md", "# Alpha\nchanged content\n")
	result, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	item, err := meta.GetActiveBySource(context.Background(), "ws1", "a.md")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "# Alpha\nchanged content", item.Content)
	assert.NotEmpty(t, item.SupersedesID)
}

func TestRunMarksVanishedSourceDeleted(t *testing.T) {
	pipeline, meta := newTestPipeline(t)
	root := t.TempDir()
	writeFile(t, root, "a.md", "content a\n")
	writeFile(t, root, "b.md", "content b\n")

	_, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)

	require.NoError(t, removeFile(root, "b.md"))
	result, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)

	item, err := meta.GetActiveBySource(context.Background(), "ws1", "b.md")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestReindexDelegatesToEngine(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	root := t.TempDir()
	writeFile(t, root, "a.md", "content about reindexing\n")

	_, err := pipeline.Run(context.Background(), Options{Workspace: "ws1", RootPath: root})
	require.NoError(t, err)

	result, err := pipeline.Reindex(context.Background(), "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Errors)
}

func removeFile(root, rel string) error {
	return os.Remove(filepath.Join(root, rel))
}
