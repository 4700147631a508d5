package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
)

func newTestVectorStore(t *testing.T, dims int) *HNSWVectorStore {
	t.Helper()
	s, err := NewHNSWVectorStore(Config{VecPath: filepath.Join(t.TempDir(), "vectors"), Dimensions: dims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unitVector(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

func TestHNSWAddAndSearchReturnsNearest(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	metas := []memory.VectorMetadata{
		{MemoryID: "m1", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive},
		{MemoryID: "m2", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive},
	}
	require.NoError(t, s.Add(ctx, "ws1", []string{"m1_0", "m2_0"}, [][]float32{unitVector(4, 0), unitVector(4, 1)}, metas))

	hits, err := s.Search(ctx, "ws1", unitVector(4, 0), 1, VectorFilter{Workspace: "ws1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1_0", hits[0].ChunkID)
}

func TestHNSWSearchFiltersByMetadata(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	metas := []memory.VectorMetadata{
		{MemoryID: "m1", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive},
		{MemoryID: "m2", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeDecision, Status: memory.StatusActive},
	}
	require.NoError(t, s.Add(ctx, "ws1", []string{"m1_0", "m2_0"}, [][]float32{unitVector(4, 0), unitVector(4, 0)}, metas))

	hits, err := s.Search(ctx, "ws1", unitVector(4, 0), 5, VectorFilter{Workspace: "ws1", Types: []memory.Type{memory.TypeDecision}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m2_0", hits[0].ChunkID)
}

func TestHNSWDeleteRemovesFromResults(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	meta := memory.VectorMetadata{MemoryID: "m1", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive}
	require.NoError(t, s.Add(ctx, "ws1", []string{"m1_0"}, [][]float32{unitVector(4, 0)}, []memory.VectorMetadata{meta}))
	require.NoError(t, s.Delete(ctx, "ws1", []string{"m1_0"}))

	hits, err := s.Search(ctx, "ws1", unitVector(4, 0), 5, VectorFilter{Workspace: "ws1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWUpdateStatusChangesMetadataOnly(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	meta := memory.VectorMetadata{MemoryID: "m1", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive}
	require.NoError(t, s.Add(ctx, "ws1", []string{"m1_0"}, [][]float32{unitVector(4, 0)}, []memory.VectorMetadata{meta}))
	require.NoError(t, s.UpdateStatus(ctx, "ws1", []string{"m1_0"}, memory.StatusArchived))

	hits, err := s.Search(ctx, "ws1", unitVector(4, 0), 5, VectorFilter{Workspace: "ws1", Status: []memory.Status{memory.StatusActive}})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(ctx, "ws1", unitVector(4, 0), 5, VectorFilter{Workspace: "ws1", Status: []memory.Status{memory.StatusArchived}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestHNSWSaveAndReloadPersistsVectors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vectors")
	ctx := context.Background()

	s1, err := NewHNSWVectorStore(Config{VecPath: dir, Dimensions: 4})
	require.NoError(t, err)

	meta := memory.VectorMetadata{MemoryID: "m1", Workspace: "ws1", Scope: memory.ScopeWorkspace, Type: memory.TypeFact, Status: memory.StatusActive}
	require.NoError(t, s1.Add(ctx, "ws1", []string{"m1_0"}, [][]float32{unitVector(4, 0)}, []memory.VectorMetadata{meta}))
	require.NoError(t, s1.Save("ws1"))
	require.NoError(t, s1.Close())

	s2, err := NewHNSWVectorStore(Config{VecPath: dir, Dimensions: 4})
	require.NoError(t, err)
	defer s2.Close()

	hits, err := s2.Search(ctx, "ws1", unitVector(4, 0), 5, VectorFilter{Workspace: "ws1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1_0", hits[0].ChunkID)
}

func TestHNSWDimensionMismatchReturnsEmbeddingError(t *testing.T) {
	s := newTestVectorStore(t, 4)
	meta := memory.VectorMetadata{MemoryID: "m1", Workspace: "ws1"}
	err := s.Add(context.Background(), "ws1", []string{"m1_0"}, [][]float32{{1, 2, 3}}, []memory.VectorMetadata{meta})
	assert.Error(t, err)
}
