package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultQueryCacheSize is the default number of query embeddings kept
// in memory. Queries repeat across users and sessions, so even a small
// cache absorbs most repeat traffic.
const DefaultQueryCacheSize = 1000

// Cached wraps an Embedder with an in-memory LRU so repeated query
// texts skip the remote call entirely. Keys are model-scoped: changing
// the model invalidates every entry.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*Cached)(nil)

// NewCached creates a cached embedder wrapping inner.
func NewCached(inner Embedder, cacheSize int) *Cached {
	if cacheSize <= 0 {
		cacheSize = DefaultQueryCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &Cached{inner: inner, cache: cache}
}

// cacheKey builds a model-scoped key for a text.
func (c *Cached) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(h[:])
}

// Embed returns a cached embedding when available, otherwise computes
// and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
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

// EmbedBatch checks the cache per text and batches only the misses.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		results[i] = vecs[j]
		c.cache.Add(c.cacheKey(texts[i]), vecs[j])
	}
	return results, nil
}

// Dimensions returns the embedding dimension of the inner embedder.
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the model identifier of the inner embedder.
func (c *Cached) ModelName() string { return c.inner.ModelName() }

// Available checks the inner embedder.
func (c *Cached) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close closes the inner embedder.
func (c *Cached) Close() error { return c.inner.Close() }
