package services

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Ensure the cache can stand in for the service it wraps.
var _ driven.EmbeddingService = (*EmbeddingCache)(nil)

// EmbeddingCache is a fixed-capacity LRU decorator around an
// EmbeddingService, keyed by (model, normalised query text). Concurrent
// queries may race on the same key; the mutex covers both the lookup and
// the recency promotion. Capacity 0 disables caching entirely.
type EmbeddingCache struct {
	service  driven.EmbeddingService
	capacity int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key    string
	vector []float32
}

// NewEmbeddingCache wraps service with an LRU cache of the given capacity.
func NewEmbeddingCache(service driven.EmbeddingService, capacity int) *EmbeddingCache {
	if capacity < 0 {
		capacity = 0
	}
	return &EmbeddingCache{
		service:  service,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Embed returns the cached vector for the text when present, promoting it
// to most-recently-used; otherwise it calls the underlying service and
// inserts the result. Service failures are never cached and propagate to
// the caller unchanged.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.capacity == 0 {
		return c.service.Embed(ctx, text)
	}

	key := c.key(text)

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		vec := el.Value.(*cacheEntry).vector
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}
	c.misses++
	c.mu.Unlock()

	vec, err := c.service.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent miss on the same key may have inserted already.
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).vector, nil
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, vector: vec})
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return vec, nil
}

// ModelName returns the wrapped service's model name.
func (c *EmbeddingCache) ModelName() string {
	return c.service.ModelName()
}

// Ping delegates to the wrapped service.
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.service.Ping(ctx)
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Purge drops all cached entries.
func (c *EmbeddingCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	logger.Debug("Embedding cache purged")
}

func (c *EmbeddingCache) key(text string) string {
	return c.service.ModelName() + "\x00" + strings.ToLower(strings.TrimSpace(text))
}
