package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize bounds the number of single-text embeddings
// kept in memory.
const DefaultEmbeddingCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache over single-text
// Embed calls, keyed by the SHA-256 of the text. Recall queries repeat
// often enough that this avoids redundant round trips to the provider.
//
// EmbedBatch always passes through to the inner embedder uncached:
// ingestion batches are made of distinct chunk text, so a batch-level
// cache would rarely hit and would only add bookkeeping.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Initialize delegates to the inner embedder.
func (c *CachedEmbedder) Initialize(ctx context.Context) error {
	return c.inner.Initialize(ctx)
}

// Embed returns the cached vector if present, otherwise computes, caches,
// and returns it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch always delegates to the inner embedder; batch results are not
// read from or written to the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, requests []Request) ([]Result, error) {
	return c.inner.EmbedBatch(ctx, requests)
}

// HealthCheck delegates to the inner embedder.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) bool {
	return c.inner.HealthCheck(ctx)
}

// Dispose delegates to the inner embedder. The cache itself holds no
// resources that need releasing.
func (c *CachedEmbedder) Dispose() error {
	return c.inner.Dispose()
}

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder {
	return c.inner
}
