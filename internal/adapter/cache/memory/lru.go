// Package memory is an in-process LRU execution cache with TTL bookkeeping.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var _ secondary.ExecutionCache = (*Cache)(nil)

const defaultMaxSize = 1000

type cacheEntry struct {
	key       string
	result    domain.ExecutionResult
	createdAt time.Time
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache evicts the least recently used entry once maxSize is reached.
// Entries older than ttl are misses even before a sweep removes them.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	now     func() time.Time
}

func New(maxSize int, ttl time.Duration, opts ...Option) *Cache {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	c := &Cache{
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(_ context.Context, language, code, input string) (*domain.ExecutionResult, bool) {
	key := domain.ExecutionKey(language, code, input)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.expired(entry) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits++

	res := entry.result
	res.FromCache = true
	return &res, true
}

func (c *Cache) Set(_ context.Context, language, code, input string, result *domain.ExecutionResult) {
	if result == nil || !result.Success {
		return
	}
	key := domain.ExecutionKey(language, code, input)
	stored := *result
	stored.FromCache = false

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = stored
		entry.createdAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{key: key, result: stored, createdAt: c.now()})
	c.items[key] = elem
	for len(c.items) > c.maxSize {
		c.evictOldest()
	}
}

func (c *Cache) Stats(_ context.Context) domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Backend: "memory",
		Size:    len(c.items),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		TTLSec:  int64(c.ttl.Seconds()),
	}
	stats.ComputeHitRate()
	return stats
}

func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
	c.hits, c.misses = 0, 0
	return nil
}

func (c *Cache) Sweep(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*cacheEntry)) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *Cache) expired(entry *cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.createdAt) >= c.ttl
}

func (c *Cache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.removeElement(elem)
}

func (c *Cache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.order.Remove(elem)
}
