package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records how many texts reached the inner provider.
type countingProvider struct {
	inner Provider
	calls atomic.Int64
	texts atomic.Int64
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	p.texts.Add(int64(len(texts)))
	return p.inner.EmbedBatch(ctx, texts)
}

func (p *countingProvider) Name() string            { return p.inner.Name() }
func (p *countingProvider) Dimensions() (int, bool) { return p.inner.Dimensions() }
func (p *countingProvider) Remote() bool            { return p.inner.Remote() }
func (p *countingProvider) Close() error            { return p.inner.Close() }

func TestCachedProvider_AvoidsRepeatCalls(t *testing.T) {
	counting := &countingProvider{inner: NewDefaultProvider()}
	cached := NewCachedProvider(counting, 10)
	ctx := context.Background()

	first, err := cached.EmbedBatch(ctx, []string{"query one"})
	require.NoError(t, err)
	second, err := cached.EmbedBatch(ctx, []string{"query one"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestCachedProvider_PartialHit(t *testing.T) {
	counting := &countingProvider{inner: NewDefaultProvider()}
	cached := NewCachedProvider(counting, 10)
	ctx := context.Background()

	_, err := cached.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"a", "c", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// Only "c" should have reached the inner provider the second time
	assert.Equal(t, int64(3), counting.texts.Load())
}

func TestCachedProvider_EmptyBatch(t *testing.T) {
	counting := &countingProvider{inner: NewDefaultProvider()}
	cached := NewCachedProvider(counting, 10)

	vecs, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, counting.calls.Load())
}

func TestCachedProvider_Passthrough(t *testing.T) {
	inner := NewDefaultProvider()
	cached := NewCachedProvider(inner, 0)

	assert.Equal(t, inner.Name(), cached.Name())
	assert.Equal(t, inner.Remote(), cached.Remote())

	dims, known := cached.Dimensions()
	innerDims, innerKnown := inner.Dimensions()
	assert.Equal(t, innerDims, dims)
	assert.Equal(t, innerKnown, known)

	assert.Same(t, Provider(inner), cached.Inner())
	require.NoError(t, cached.Close())
}
