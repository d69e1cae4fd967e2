package embed

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of distinct texts CachedEmbedder
// keeps encoded vectors for.
const DefaultCacheSize = 4096

// CachedEmbedder wraps an Embedder with an LRU cache keyed on the exact
// input text. Encode is a pure function of its input, and the engine calls
// it repeatedly against the same stems (ingest dedup probe, retrieval
// query, rerank pair score), so caching saves real recomputation without
// changing any observable result.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float64]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size. A
// non-positive size falls back to DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float64](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Encode returns the cached vector for text if present, otherwise computes
// it via the wrapped embedder and caches the result.
func (c *CachedEmbedder) Encode(text string) []float64 {
	if vec, ok := c.cache.Get(text); ok {
		return vec
	}
	vec := c.inner.Encode(text)
	c.cache.Add(text, vec)
	return vec
}
