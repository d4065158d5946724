// Package rediscache shares the execution cache across grader replicas.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var _ secondary.ExecutionCache = (*Cache)(nil)

const indexSuffix = "index"

// record keeps program output as []byte so JSON carries it as base64 and
// invalid UTF-8 survives the round trip unchanged.
type record struct {
	Success         bool             `json:"success"`
	Stdout          []byte           `json:"stdout"`
	Stderr          []byte           `json:"stderr"`
	ErrorKind       domain.ErrorKind `json:"errorKind"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func newRecord(result *domain.ExecutionResult, createdAt time.Time) record {
	return record{
		Success:         result.Success,
		Stdout:          []byte(result.Stdout),
		Stderr:          []byte(result.Stderr),
		ErrorKind:       result.ErrorKind,
		ExecutionTimeMs: result.ExecutionTimeMs,
		CreatedAt:       createdAt,
	}
}

func (r record) result() *domain.ExecutionResult {
	return &domain.ExecutionResult{
		Success:         r.Success,
		Stdout:          string(r.Stdout),
		Stderr:          string(r.Stderr),
		ErrorKind:       r.ErrorKind,
		ExecutionTimeMs: r.ExecutionTimeMs,
	}
}

// Cache stores each entry under prefix+hash with a Redis TTL and tracks insertion
// order in a sorted set so that capacity overflow evicts the oldest entries first.
type Cache struct {
	client  *redis.Client
	prefix  string
	maxSize int
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
	now     func() time.Time
	logger  primary.Logger
}

func New(client *redis.Client, prefix string, maxSize int, ttl time.Duration, logger primary.Logger) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		client:  client,
		prefix:  prefix,
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces time.Now, for tests
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Cache) indexKey() string {
	return c.prefix + indexSuffix
}

func (c *Cache) entryKey(language, code, input string) string {
	return c.prefix + domain.ExecutionKey(language, code, input)
}

func (c *Cache) Get(ctx context.Context, language, code, input string) (*domain.ExecutionResult, bool) {
	key := c.entryKey(language, code, input)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read cache entry", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || !rec.Success {
		c.logger.Warn("Dropping corrupt cache entry", "key", key, "error", err)
		c.client.Del(ctx, key)
		c.misses.Add(1)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(rec.CreatedAt) >= c.ttl {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	res := rec.result()
	res.FromCache = true
	return res, true
}

func (c *Cache) Set(ctx context.Context, language, code, input string, result *domain.ExecutionResult) {
	if result == nil || !result.Success {
		return
	}
	key := c.entryKey(language, code, input)
	now := c.now()

	data, err := json.Marshal(newRecord(result, now))
	if err != nil {
		c.logger.Error("Failed to marshal cache entry", "error", err)
		return
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.ZAdd(ctx, c.indexKey(), &redis.Z{Score: float64(now.UnixNano()), Member: key})
		return nil
	})
	if err != nil {
		c.logger.Warn("Failed to write cache entry", "key", key, "error", err)
		return
	}
	c.trim(ctx)
}

// trim evicts the oldest entries beyond maxSize
func (c *Cache) trim(ctx context.Context) {
	size, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil || size <= int64(c.maxSize) {
		return
	}
	evicted, err := c.client.ZPopMin(ctx, c.indexKey(), size-int64(c.maxSize)).Result()
	if err != nil {
		c.logger.Warn("Failed to evict cache entries", "error", err)
		return
	}
	c.deleteMembers(ctx, evicted)
}

func (c *Cache) deleteMembers(ctx context.Context, members []redis.Z) {
	if len(members) == 0 {
		return
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		if key, ok := m.Member.(string); ok {
			keys = append(keys, key)
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to delete cache entries", "count", len(keys), "error", err)
	}
}

func (c *Cache) Stats(ctx context.Context) domain.CacheStats {
	size, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		c.logger.Warn("Failed to read cache size", "error", err)
	}
	stats := domain.CacheStats{
		Backend: "redis",
		Size:    int(size),
		MaxSize: c.maxSize,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		TTLSec:  int64(c.ttl.Seconds()),
	}
	stats.ComputeHitRate()
	return stats
}

func (c *Cache) Clear(ctx context.Context) error {
	members, err := c.client.ZRangeWithScores(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return err
	}
	c.deleteMembers(ctx, members)
	if err := c.client.Del(ctx, c.indexKey()).Err(); err != nil {
		return err
	}
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

func (c *Cache) Sweep(ctx context.Context) int {
	if c.ttl <= 0 {
		return 0
	}
	cutoff := strconv.FormatInt(c.now().Add(-c.ttl).UnixNano(), 10)
	expired, err := c.client.ZRangeByScoreWithScores(ctx, c.indexKey(), &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		c.logger.Warn("Failed to scan expired cache entries", "error", err)
		return 0
	}
	c.deleteMembers(ctx, expired)
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", cutoff).Err(); err != nil {
		c.logger.Warn("Failed to prune cache index", "error", err)
	}
	return len(expired)
}
