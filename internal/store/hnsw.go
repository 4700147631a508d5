package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/cosmiclasagnadev/zmem/internal/memory"
	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// defaultOverfetch multiplies the requested k to compensate for rejects
// during metadata post-filtering, since coder/hnsw has no native predicate
// support.
const defaultOverfetch = 4

// HNSWVectorStore implements VectorStore with one coder/hnsw graph per
// workspace, persisted under a directory as "<workspace>.hnsw" plus a gob
// metadata sidecar carrying the ID map and per-vector VectorMetadata.
type HNSWVectorStore struct {
	mu          sync.RWMutex
	dir         string
	dimensions  int
	m           int
	efConstruct int
	efSearch    int
	collections map[string]*collection
	closed      bool
}

type collection struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	metas   map[string]memory.VectorMetadata
	nextKey uint64
}

type collectionSidecar struct {
	IDMap   map[string]uint64
	NextKey uint64
	Metas   map[string]memory.VectorMetadata
}

var _ VectorStore = (*HNSWVectorStore)(nil)

// NewHNSWVectorStore opens (creating if necessary) the vector collection
// directory at dir.
func NewHNSWVectorStore(cfg Config) (*HNSWVectorStore, error) {
	if cfg.VecPath != "" {
		if err := os.MkdirAll(cfg.VecPath, 0o755); err != nil {
			return nil, zerrors.New(zerrors.Database, "create vector directory", err)
		}
	}
	m, ef, efSearch := cfg.M, cfg.EfConstruction, cfg.EfSearch
	if m <= 0 {
		m = 16
	}
	if ef <= 0 {
		ef = 128
	}
	if efSearch <= 0 {
		efSearch = 128
	}
	return &HNSWVectorStore{
		dir:         cfg.VecPath,
		dimensions:  cfg.Dimensions,
		m:           m,
		efConstruct: ef,
		efSearch:    efSearch,
		collections: make(map[string]*collection),
	}, nil
}

func (s *HNSWVectorStore) collectionPath(workspace string) string {
	return filepath.Join(s.dir, workspace+".hnsw")
}

func (s *HNSWVectorStore) newCollection() *collection {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = s.m
	graph.EfSearch = s.efSearch
	graph.Ml = 0.25
	return &collection{
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		metas:  make(map[string]memory.VectorMetadata),
	}
}

// getOrLoad returns the in-memory collection for workspace, loading it
// from disk on first access.
func (s *HNSWVectorStore) getOrLoad(workspace string) (*collection, error) {
	if c, ok := s.collections[workspace]; ok {
		return c, nil
	}

	c := s.newCollection()
	path := s.collectionPath(workspace)
	if s.dir != "" {
		if _, err := os.Stat(path); err == nil {
			if loadErr := s.loadCollection(c, path); loadErr != nil {
				// Corrupt collection: start fresh rather than fail open.
				c = s.newCollection()
			}
		}
	}
	s.collections[workspace] = c
	return c, nil
}

func (s *HNSWVectorStore) loadCollection(c *collection, path string) error {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return err
	}
	defer metaFile.Close()

	var side collectionSidecar
	if err := gob.NewDecoder(metaFile).Decode(&side); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := c.graph.Import(bufio.NewReader(file)); err != nil {
		return err
	}

	c.idMap = side.IDMap
	c.nextKey = side.NextKey
	c.metas = side.Metas
	c.keyMap = make(map[uint64]string, len(c.idMap))
	for id, key := range c.idMap {
		c.keyMap[key] = id
	}
	return nil
}

// Add inserts or replaces vectors, each tagged with metadata.
func (s *HNSWVectorStore) Add(ctx context.Context, workspace string, ids []string, vectors [][]float32, metas []memory.VectorMetadata) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) || len(ids) != len(metas) {
		return zerrors.New(zerrors.Validation, "ids, vectors, and metadata length mismatch", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "vector store is closed", nil)
	}

	for _, v := range vectors {
		if s.dimensions > 0 && len(v) != s.dimensions {
			return zerrors.New(zerrors.Embedding, fmt.Sprintf("vector dimension mismatch: expected %d, got %d", s.dimensions, len(v)), nil)
		}
	}

	c, err := s.getOrLoad(workspace)
	if err != nil {
		return err
	}

	for i, id := range ids {
		if existingKey, exists := c.idMap[id]; exists {
			delete(c.keyMap, existingKey)
			delete(c.idMap, id)
		}

		key := c.nextKey
		c.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeVectorInPlace(vec)

		c.graph.Add(hnsw.MakeNode(key, vec))
		c.idMap[id] = key
		c.keyMap[key] = id
		c.metas[id] = metas[i]
	}
	return nil
}

// Search returns up to k nearest neighbours matching filter.
func (s *HNSWVectorStore) Search(ctx context.Context, workspace string, query []float32, k int, filter VectorFilter) ([]VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, zerrors.New(zerrors.Database, "vector store is closed", nil)
	}

	c, err := s.getOrLoad(workspace)
	if err != nil {
		return nil, err
	}
	if c.graph.Len() == 0 {
		return nil, nil
	}
	if s.dimensions > 0 && len(query) != s.dimensions {
		return nil, zerrors.New(zerrors.Embedding, fmt.Sprintf("query dimension mismatch: expected %d, got %d", s.dimensions, len(query)), nil)
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	overfetch := k * defaultOverfetch
	if overfetch < k {
		overfetch = k
	}
	nodes := c.graph.Search(normalized, overfetch)

	var hits []VectorHit
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		meta := c.metas[id]
		if !matchesFilter(meta, filter) {
			continue
		}
		distance := c.graph.Distance(normalized, node.Value)
		hits = append(hits, VectorHit{ChunkID: id, Score: 1.0 - distance/2.0, Metadata: meta})
		if len(hits) >= k {
			break
		}
	}
	return hits, nil
}

func matchesFilter(meta memory.VectorMetadata, filter VectorFilter) bool {
	if filter.Workspace != "" && meta.Workspace != filter.Workspace {
		return false
	}
	if len(filter.Scopes) > 0 && !containsScope(filter.Scopes, meta.Scope) {
		return false
	}
	if len(filter.Types) > 0 && !containsType(filter.Types, meta.Type) {
		return false
	}
	if len(filter.Status) > 0 && !containsStatus(filter.Status, meta.Status) {
		return false
	}
	return true
}

func containsScope(scopes []memory.Scope, s memory.Scope) bool {
	for _, v := range scopes {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(types []memory.Type, t memory.Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []memory.Status, st memory.Status) bool {
	for _, v := range statuses {
		if v == st {
			return true
		}
	}
	return false
}

// Delete removes vectors by ID using lazy deletion: the node stays in the
// graph but is unreachable once its ID mapping is removed.
func (s *HNSWVectorStore) Delete(ctx context.Context, workspace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "vector store is closed", nil)
	}

	c, err := s.getOrLoad(workspace)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if key, exists := c.idMap[id]; exists {
			delete(c.keyMap, key)
			delete(c.idMap, id)
			delete(c.metas, id)
		}
	}
	return nil
}

// UpdateStatus rewrites the stored status for a set of vector IDs.
func (s *HNSWVectorStore) UpdateStatus(ctx context.Context, workspace string, ids []string, status memory.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "vector store is closed", nil)
	}

	c, err := s.getOrLoad(workspace)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if meta, ok := c.metas[id]; ok {
			meta.Status = status
			c.metas[id] = meta
		}
	}
	return nil
}

// Save persists the named workspace's collection to disk atomically.
func (s *HNSWVectorStore) Save(workspace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zerrors.New(zerrors.Database, "vector store is closed", nil)
	}
	if s.dir == "" {
		return nil
	}

	c, ok := s.collections[workspace]
	if !ok {
		return nil
	}

	path := s.collectionPath(workspace)
	tmpGraph := path + ".tmp"
	graphFile, err := os.Create(tmpGraph)
	if err != nil {
		return zerrors.New(zerrors.Database, "create vector temp file", err)
	}
	if err := c.graph.Export(graphFile); err != nil {
		graphFile.Close()
		os.Remove(tmpGraph)
		return zerrors.New(zerrors.Database, "export vector graph", err)
	}
	if err := graphFile.Close(); err != nil {
		os.Remove(tmpGraph)
		return zerrors.New(zerrors.Database, "close vector temp file", err)
	}
	if err := os.Rename(tmpGraph, path); err != nil {
		os.Remove(tmpGraph)
		return zerrors.New(zerrors.Database, "rename vector file", err)
	}

	tmpMeta := path + ".meta.tmp"
	metaFile, err := os.Create(tmpMeta)
	if err != nil {
		return zerrors.New(zerrors.Database, "create metadata temp file", err)
	}
	side := collectionSidecar{IDMap: c.idMap, NextKey: c.nextKey, Metas: c.metas}
	if err := gob.NewEncoder(metaFile).Encode(side); err != nil {
		metaFile.Close()
		os.Remove(tmpMeta)
		return zerrors.New(zerrors.Database, "encode vector metadata", err)
	}
	if err := metaFile.Close(); err != nil {
		os.Remove(tmpMeta)
		return zerrors.New(zerrors.Database, "close metadata temp file", err)
	}
	return os.Rename(tmpMeta, path+".meta")
}

// Close flushes and releases every open collection.
func (s *HNSWVectorStore) Close() error {
	s.mu.RLock()
	closed := s.closed
	workspaces := make([]string, 0, len(s.collections))
	for ws := range s.collections {
		workspaces = append(workspaces, ws)
	}
	s.mu.RUnlock()
	if closed {
		return nil
	}
	var firstErr error
	for _, ws := range workspaces {
		if err := s.Save(ws); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.collections = nil
	return firstErr
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
