// Package cache provides the content-addressed cache collaborator:
// AST results keyed by (path, content-hash) and pattern results keyed
// by (pattern, content-hash). The engine tolerates the no-op
// implementation.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache is the external collaborator capability.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Close()
}

// ContentKey derives a content-addressed cache key.
func ContentKey(kind, path string, content []byte) string {
	return fmt.Sprintf("%s:%s:%016x", kind, path, xxhash.Sum64(content))
}

// Nop is the do-nothing cache.
type Nop struct{}

func (Nop) Get(string) (any, bool)            { return nil, false }
func (Nop) Set(string, any, time.Duration)    {}
func (Nop) Delete(string)                     {}
func (Nop) Close()                            {}

// Config defines in-memory cache tuning.
type Config struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	// OnEvict runs for entries leaving the cache, letting owners
	// release resources (parse trees hold arena storage).
	OnEvict func(key string, value any)
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxEntries:      400,
		DefaultTTL:      2 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

type entry struct {
	value     any
	expiresAt int64 // unix nano
	storedAt  int64
}

// Memory is a lock-free in-memory cache over sync.Map with TTL
// cleanup and approximate capacity enforcement.
type Memory struct {
	entries sync.Map

	maxEntries int
	ttlNanos   int64
	onEvict    func(string, any)

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	count     atomic.Int64

	done     chan struct{}
	wg       sync.WaitGroup
	closeOnce sync.Once
}

// NewMemory creates a running in-memory cache.
func NewMemory(cfg Config) *Memory {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	c := &Memory{
		maxEntries: cfg.MaxEntries,
		ttlNanos:   cfg.DefaultTTL.Nanoseconds(),
		onEvict:    cfg.OnEvict,
		done:       make(chan struct{}),
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}
	c.wg.Add(1)
	go c.cleanupLoop(interval)
	return c
}

func (c *Memory) Get(key string) (any, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := raw.(*entry)
	if time.Now().UnixNano() > e.expiresAt {
		c.remove(key, e)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

func (c *Memory) Set(key string, value any, ttl time.Duration) {
	nanos := c.ttlNanos
	if ttl > 0 {
		nanos = ttl.Nanoseconds()
	}
	now := time.Now().UnixNano()
	e := &entry{value: value, expiresAt: now + nanos, storedAt: now}
	if prev, loaded := c.entries.Swap(key, e); loaded {
		if c.onEvict != nil {
			c.onEvict(key, prev.(*entry).value)
		}
	} else {
		c.count.Add(1)
	}
	if int(c.count.Load()) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *Memory) Delete(key string) {
	if raw, ok := c.entries.Load(key); ok {
		c.remove(key, raw.(*entry))
	}
}

func (c *Memory) remove(key string, e *entry) {
	if _, loaded := c.entries.LoadAndDelete(key); loaded {
		c.count.Add(-1)
		c.evictions.Add(1)
		if c.onEvict != nil {
			c.onEvict(key, e.value)
		}
	}
}

// evictOldest removes the oldest ~10% of entries. Approximate by
// design: exact LRU would serialize every Get.
func (c *Memory) evictOldest() {
	type aged struct {
		key      string
		e        *entry
	}
	var all []aged
	c.entries.Range(func(k, v any) bool {
		all = append(all, aged{key: k.(string), e: v.(*entry)})
		return true
	})
	if len(all) <= c.maxEntries {
		return
	}
	toDrop := len(all) - c.maxEntries + c.maxEntries/10
	for i := 0; i < toDrop && i < len(all); i++ {
		oldest := i
		for j := i + 1; j < len(all); j++ {
			if all[j].e.storedAt < all[oldest].e.storedAt {
				oldest = j
			}
		}
		all[i], all[oldest] = all[oldest], all[i]
		c.remove(all[i].key, all[i].e)
	}
}

func (c *Memory) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			c.entries.Range(func(k, v any) bool {
				e := v.(*entry)
				if now > e.expiresAt {
					c.remove(k.(string), e)
				}
				return true
			})
		}
	}
}

// Stats reports cache counters.
func (c *Memory) Stats() (hits, misses, evictions, size int64) {
	return c.hits.Load(), c.misses.Load(), c.evictions.Load(), c.count.Load()
}

// Close stops the cleanup goroutine and evicts everything.
func (c *Memory) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.entries.Range(func(k, v any) bool {
			c.remove(k.(string), v.(*entry))
			return true
		})
	})
}
