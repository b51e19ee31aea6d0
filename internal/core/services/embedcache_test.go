package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmbeddingCache_HitSkipsService tests that a repeated query never calls the service twice
func TestEmbeddingCache_HitSkipsService(t *testing.T) {
	embedder := &mockEmbedder{embedding: []float32{1, 2}}
	cache := NewEmbeddingCache(embedder, 4)

	first, err := cache.Embed(context.Background(), "lost tool")
	require.NoError(t, err)
	second, err := cache.Embed(context.Background(), "lost tool")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.callCount())

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

// TestEmbeddingCache_KeyNormalisation tests that case and whitespace variants share an entry
func TestEmbeddingCache_KeyNormalisation(t *testing.T) {
	embedder := &mockEmbedder{}
	cache := NewEmbeddingCache(embedder, 4)

	_, err := cache.Embed(context.Background(), "Lost Tool")
	require.NoError(t, err)
	_, err = cache.Embed(context.Background(), "  lost tool  ")
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.callCount())
}

// TestEmbeddingCache_EvictsLeastRecentlyUsed tests LRU eviction order
func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	embedder := &mockEmbedder{}
	cache := NewEmbeddingCache(embedder, 2)
	ctx := context.Background()

	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "b")
	// Touch "a" so "b" is now least recently used.
	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "c")
	require.Equal(t, 2, cache.Len())

	calls := embedder.callCount()
	_, _ = cache.Embed(ctx, "a")
	assert.Equal(t, calls, embedder.callCount(), "a should still be cached")

	_, _ = cache.Embed(ctx, "b")
	assert.Equal(t, calls+1, embedder.callCount(), "b should have been evicted")
}

// TestEmbeddingCache_CapacityZeroPassesThrough tests that capacity 0 disables caching
func TestEmbeddingCache_CapacityZeroPassesThrough(t *testing.T) {
	embedder := &mockEmbedder{}
	cache := NewEmbeddingCache(embedder, 0)
	ctx := context.Background()

	_, _ = cache.Embed(ctx, "same")
	_, _ = cache.Embed(ctx, "same")

	assert.Equal(t, 2, embedder.callCount())
	assert.Equal(t, 0, cache.Len())
}

// TestEmbeddingCache_ErrorsNotCached tests that failures propagate and never populate the cache
func TestEmbeddingCache_ErrorsNotCached(t *testing.T) {
	embedder := &mockEmbedder{embedErr: errors.New("connection refused")}
	cache := NewEmbeddingCache(embedder, 4)
	ctx := context.Background()

	_, err := cache.Embed(ctx, "q")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	// Once the service recovers the same key works and gets cached.
	embedder.embedErr = nil
	_, err = cache.Embed(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

// TestEmbeddingCache_Purge tests explicit eviction
func TestEmbeddingCache_Purge(t *testing.T) {
	cache := NewEmbeddingCache(&mockEmbedder{}, 4)
	_, _ = cache.Embed(context.Background(), "q")
	require.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

// TestEmbeddingCache_ConcurrentAccess tests racing lookups on the same key
func TestEmbeddingCache_ConcurrentAccess(t *testing.T) {
	embedder := &mockEmbedder{}
	cache := NewEmbeddingCache(embedder, 8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := cache.Embed(ctx, "shared query")
			assert.NoError(t, err)
			assert.NotEmpty(t, vec)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}
