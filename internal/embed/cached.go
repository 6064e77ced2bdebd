package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of embeddings to keep.
// At 768 dimensions * 4 bytes * 1000 entries this is roughly 3MB.
const DefaultCacheSize = 1000

// CachedProvider wraps a Provider with an LRU cache keyed by text.
// The CLI wires it around every provider: texts that recur within a
// process, like boilerplate chunks repeated across notes, skip the
// embedding call entirely.
type CachedProvider struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCachedProvider creates a cached provider wrapping inner.
// A non-positive size falls back to DefaultCacheSize.
func NewCachedProvider(inner Provider, size int) *CachedProvider {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedProvider{inner: inner, cache: cache}
}

// cacheKey hashes text together with the provider name, so switching
// providers never serves stale vectors.
func (c *CachedProvider) cacheKey(text string) string {
	combined := text + "\x00" + c.inner.Name()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// EmbedBatch returns cached vectors where available and embeds only
// the misses, preserving input order.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIndices := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
		} else {
			missIndices = append(missIndices, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIndices {
		results[idx] = embedded[j]
		c.cache.Add(c.cacheKey(texts[idx]), embedded[j])
	}
	return results, nil
}

// Name returns the inner provider's name.
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Dimensions passes through to the inner provider.
func (c *CachedProvider) Dimensions() (int, bool) { return c.inner.Dimensions() }

// Remote passes through to the inner provider.
func (c *CachedProvider) Remote() bool { return c.inner.Remote() }

// Close closes the inner provider.
func (c *CachedProvider) Close() error { return c.inner.Close() }

// Inner returns the wrapped provider.
func (c *CachedProvider) Inner() Provider { return c.inner }
