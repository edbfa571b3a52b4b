// Package cache memoises search results in Redis. Concurrent misses for the
// same query collapse into one engine call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/redis"
)

// Result is what the search endpoint returns and what gets cached.
type Result struct {
	Words     []string `json:"words"`
	Total     int      `json:"total"`
	Documents []string `json:"documents"`
}

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client  Backend
	cfg     config.RedisConfig
	prefix  string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	// generation moves on every Invalidate; a result computed across a
	// change is returned but not stored.
	generation atomic.Uint64
}

// New builds a cache storing entries under cfg.KeyPrefix + "search:". m may
// be nil.
func New(client Backend, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		prefix:  cfg.KeyPrefix + "search:",
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up the result for key. Redis errors count as misses.
func (c *QueryCache) Get(ctx context.Context, key []string) (*Result, bool) {
	redisKey := c.buildKey(key)
	data, err := c.client.Get(ctx, redisKey)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", redisKey, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", redisKey, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key []string, result *Result) {
	redisKey := c.buildKey(key)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", redisKey, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKey, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", redisKey, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes, stores and
// returns it. The bool reports a cache hit. A result whose computation
// overlapped an Invalidate is not stored.
func (c *QueryCache) GetOrCompute(ctx context.Context, key []string, compute func() (*Result, error)) (*Result, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	gen := c.generation.Load()
	flight := fmt.Sprintf("%s@%d", c.buildKey(key), gen)
	val, err, _ := c.group.Do(flight, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if c.generation.Load() != gen {
			c.logger.Debug("cache invalidated during compute, not storing", "words", key)
			return result, nil
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached result. Called after ingestion since any
// new document can change any result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.generation.Add(1)
	deleted, err := c.client.FlushByPattern(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Debug("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(key []string) string {
	hash := sha256.Sum256([]byte(strings.Join(key, "\x00")))
	return fmt.Sprintf("%s%x", c.prefix, hash[:16])
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
