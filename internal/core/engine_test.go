package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmiclasagnadev/zmem/internal/embed"
	"github.com/cosmiclasagnadev/zmem/internal/memory"
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

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	meta, err := store.OpenSQLiteMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	vecs, err := store.NewHNSWVectorStore(store.Config{VecPath: filepath.Join(t.TempDir(), "vectors"), Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vecs.Close() })

	return New(meta, vecs, &hashEmbedder{}, nil)
}

func baseItem(workspace, title, content string) *memory.Item {
	return &memory.Item{
		Type: memory.TypeFact, Title: title, Content: content,
		Scope: memory.ScopeWorkspace, Workspace: workspace, Source: title + ".md",
	}
}

func TestSaveThenGetReturnsActiveItem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Save(ctx, baseItem("ws1", "note", "the deploy pipeline uses blue-green releases"))
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Empty(t, res.SupersededID)

	item, err := e.Get(ctx, res.ID, "ws1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, memory.StatusActive, item.Status)
}

func TestGetReturnsNilForWrongWorkspace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Save(ctx, baseItem("ws1", "note", "content about releases"))
	require.NoError(t, err)

	item, err := e.Get(ctx, res.ID, "ws2")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestSaveWithSupersedesArchivesPriorItem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Save(ctx, baseItem("ws1", "runbook", "old rollback steps"))
	require.NoError(t, err)

	second := baseItem("ws1", "runbook", "new rollback steps")
	second.SupersedesID = first.ID
	res, err := e.Save(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.SupersededID)

	oldItem, err := e.Get(ctx, first.ID, "ws1")
	require.NoError(t, err)
	assert.Equal(t, memory.StatusArchived, oldItem.Status)
}

func TestSaveRejectsSupersedesOfInactiveItem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Save(ctx, baseItem("ws1", "runbook", "v1"))
	require.NoError(t, err)
	second := baseItem("ws1", "runbook", "v2")
	second.SupersedesID = first.ID
	_, err = e.Save(ctx, second)
	require.NoError(t, err)

	third := baseItem("ws1", "runbook", "v3")
	third.SupersedesID = first.ID // already archived, no longer active
	_, err = e.Save(ctx, third)
	require.Error(t, err)
}

func TestListFiltersByWorkspace(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Save(ctx, baseItem("ws1", "a", "alpha note"))
	require.NoError(t, err)
	_, err = e.Save(ctx, baseItem("ws2", "b", "beta note"))
	require.NoError(t, err)

	result, err := e.List(ctx, store.ListFilter{Workspace: "ws1"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "a", result.Items[0].Title)
}

func TestRecallLexicalFindsSavedItem(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Save(ctx, baseItem("ws1", "deploy", "the deploy pipeline rolls back automatically on failure"))
	require.NoError(t, err)

	hits, err := e.Recall(ctx, "deploy pipeline", RecallOptions{Workspace: "ws1", Mode: RecallLexOnly})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "deploy", hits[0].Title)
}

func TestRecallRejectsBlankQuery(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Recall(context.Background(), "   ", RecallOptions{Workspace: "ws1"})
	assert.Error(t, err)
}

func TestDeleteSoftDeletesAndHidesFromRecall(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Save(ctx, baseItem("ws1", "deploy", "the deploy pipeline rolls back automatically"))
	require.NoError(t, err)

	ok, err := e.Delete(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := e.Get(ctx, res.ID, "ws1")
	require.NoError(t, err)
	assert.Equal(t, memory.StatusDeleted, item.Status)

	hits, err := e.Recall(ctx, "deploy pipeline", RecallOptions{Workspace: "ws1", Mode: RecallLexOnly})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteOfMissingItemReturnsFalse(t *testing.T) {
	e := newTestEngine(t)
	ok, err := e.Delete(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusReportsItemAndPendingCounts(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Save(ctx, baseItem("ws1", "a", "alpha content here"))
	require.NoError(t, err)

	report, err := e.Status(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalItems)
	assert.Equal(t, 0, report.PendingEmbeddings)
}

func TestReindexOnEmptyWorkspaceIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Reindex(context.Background(), "ws1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Errors)
}

func TestReindexRebuildsChunksAndKeepsItemSearchable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Save(ctx, baseItem("ws1", "deploy", "the deploy pipeline rolls back automatically on failure"))
	require.NoError(t, err)

	result, err := e.Reindex(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Errors)

	item, err := e.Get(ctx, res.ID, "ws1")
	require.NoError(t, err)
	assert.Equal(t, memory.StatusActive, item.Status)

	hits, err := e.Recall(ctx, "deploy pipeline", RecallOptions{Workspace: "ws1", Mode: RecallLexOnly})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, res.ID, hits[0].ID)
}

func TestReindexIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Save(ctx, baseItem("ws1", "deploy", "the deploy pipeline rolls back automatically"))
	require.NoError(t, err)

	first, err := e.Reindex(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := e.Reindex(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Errors)
}
