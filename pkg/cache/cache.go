// Package cache provides a generic, thread-safe in-process cache with optional
// LRU eviction, always-on statistics and optional Prometheus metrics.
//
// It backs the in-memory persistent store of the cached provider: the store
// keeps serialized entity snapshots here keyed by namespace and entity id.
package cache

import (
	"container/list"
	"sync"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
)

// Cache represents a generic cache interface. The cache is parameterized by
// value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the given key. Returns true if a new entry was created, false if updated.
	Set(key string, value V) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed and was deleted.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries in the cache.
	Size() int

	// Keys returns a slice of all keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics.
	Stats() *Statistics
}

// EvictCallback is called when an entry is evicted or deleted from the cache.
type EvictCallback[V any] func(key string, value V)

type entry[V any] struct {
	key   string
	value V
}

// memoryCache keeps entries in recency order. A maxSize of 0 disables
// eviction.
type memoryCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newMemoryCache[V any](maxSize int, opts *cacheOptions[V]) (*memoryCache[V], error) {
	if maxSize < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "cache", "newMemoryCache", "max size cannot be negative")
	}

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newMemoryCache", "metrics registration")
		}
	}

	return &memoryCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key and marks it as recently used.
func (c *memoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		c.order.MoveToFront(element)
	}
	c.mu.Unlock()

	if !exists {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		var zero V
		return zero, false
	}

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return element.Value.(*entry[V]).value, true
}

// Set stores a value with the given key and marks it as recently used.
func (c *memoryCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted []*entry[V]
	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		element.Value.(*entry[V]).value = value
		c.order.MoveToFront(element)
	} else {
		c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
		for c.maxSize > 0 && len(c.items) > c.maxSize {
			evicted = append(evicted, c.removeOldest())
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}
	for _, e := range evicted {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		if c.evictFn != nil {
			c.evictFn(e.key, e.value)
		}
	}

	return !exists, nil
}

// removeOldest must be called with mu held.
func (c *memoryCache[V]) removeOldest() *entry[V] {
	back := c.order.Back()
	c.order.Remove(back)
	e := back.Value.(*entry[V])
	delete(c.items, e.key)
	return e
}

// Delete removes an entry by key.
func (c *memoryCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if exists {
		c.order.Remove(element)
		delete(c.items, key)
	}
	size := len(c.items)
	c.mu.Unlock()

	if !exists {
		return false, nil
	}

	c.stats.Delete()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(size)
	}
	if c.evictFn != nil {
		c.evictFn(key, element.Value.(*entry[V]).value)
	}
	return true, nil
}

// Clear removes all entries from the cache.
func (c *memoryCache[V]) Clear() error {
	c.mu.Lock()
	old := c.order
	c.items = make(map[string]*list.Element)
	c.order = list.New()
	c.mu.Unlock()

	if c.evictFn != nil {
		for element := old.Front(); element != nil; element = element.Next() {
			e := element.Value.(*entry[V])
			c.evictFn(e.key, e.value)
		}
	}

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	return nil
}

// Size returns the current number of entries in the cache.
func (c *memoryCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns all keys, most recently used first.
func (c *memoryCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *memoryCache[V]) Stats() *Statistics {
	return c.stats
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
