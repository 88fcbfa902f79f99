package embed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiskCache(t *testing.T) *DiskCache {
	t.Helper()
	cache, err := NewDiskCache("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestDiskCache_PutGet_RoundTrip(t *testing.T) {
	cache := newTestDiskCache(t)
	ctx := context.Background()

	vec := []float32{0.1, -0.5, 2.25}
	require.NoError(t, cache.Put(ctx, "some chunk text", "voyage-2", vec))

	got, ok, err := cache.Get(ctx, "some chunk text", "voyage-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestDiskCache_Get_MissOnUnknownText(t *testing.T) {
	cache := newTestDiskCache(t)

	_, ok, err := cache.Get(context.Background(), "never stored", "voyage-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskCache_Get_MissAcrossModels(t *testing.T) {
	cache := newTestDiskCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "text", "voyage-2", []float32{1}))

	_, ok, err := cache.Get(ctx, "text", "voyage-3")
	require.NoError(t, err)
	assert.False(t, ok, "a different model must not hit the voyage-2 entry")
}

func TestDiskCache_Put_LastWriteWins(t *testing.T) {
	cache := newTestDiskCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "text", "voyage-2", []float32{1, 2}))
	require.NoError(t, cache.Put(ctx, "text", "voyage-2", []float32{3, 4}))

	got, ok, err := cache.Get(ctx, "text", "voyage-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{3, 4}, got)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDiskCache_GetOrCompute_ComputesOnce(t *testing.T) {
	cache := newTestDiskCache(t)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]float32, error) {
		calls++
		return []float32{7}, nil
	}

	v1, err := cache.GetOrCompute(ctx, "text", "voyage-2", compute)
	require.NoError(t, err)
	v2, err := cache.GetOrCompute(ctx, "text", "voyage-2", compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call should hit the cache")
	assert.Equal(t, v1, v2)
}

func TestDiskCache_GetOrCompute_FailureNotStored(t *testing.T) {
	cache := newTestDiskCache(t)
	ctx := context.Background()

	boom := errors.New("provider down")
	_, err := cache.GetOrCompute(ctx, "text", "voyage-2", func(context.Context) ([]float32, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDiskCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "embeddings.db")
	ctx := context.Background()

	first, err := NewDiskCache(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "text", "voyage-2", []float32{9, 8}))
	require.NoError(t, first.Close())

	second, err := NewDiskCache(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, ok, err := second.Get(ctx, "text", "voyage-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{9, 8}, got)
}

func TestDiskCached_Rebuild_MakesNoProviderCalls(t *testing.T) {
	cache := newTestDiskCache(t)
	inner := newMockEmbedder(4)
	emb := NewDiskCached(inner, cache)

	ctx := context.Background()
	texts := []string{"chunk one", "chunk two", "chunk three"}

	vecs1, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs1, 3)

	// Same corpus again: everything comes from disk.
	vecs2, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, vecs1, vecs2)
	assert.Equal(t, int64(3), inner.batchTexts.Load(), "no texts re-sent on the second build")
}

func TestDiskCached_EmbedBatch_MixedHitsAndMisses(t *testing.T) {
	cache := newTestDiskCache(t)
	inner := newMockEmbedder(4)
	emb := NewDiskCached(inner, cache)

	ctx := context.Background()
	_, err := emb.Embed(ctx, "known")
	require.NoError(t, err)

	vecs, err := emb.EmbedBatch(ctx, []string{"known", "new"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, inner.vectorFor("known"), vecs[0])
	assert.Equal(t, inner.vectorFor("new"), vecs[1])
	assert.Equal(t, int64(1), inner.batchTexts.Load(), "only the miss reaches the provider")
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -3.25, 1e-7}
	assert.Equal(t, vec, DecodeVector(EncodeVector(vec)))
	assert.Empty(t, DecodeVector(nil))
}
