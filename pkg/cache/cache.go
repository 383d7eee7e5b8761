// Package cache provides a small in-process TTL cache with singleflight
// loading. Tallyman uses it to memoize each viewer's ranked feed ordering so
// consecutive pages of one browsing session paginate a stable list.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	TTL         time.Duration
	NegativeTTL time.Duration
	MaxEntries  int
}

type entry struct {
	value     interface{}
	err       error
	expiresAt time.Time
	negative  bool
}

type Cache struct {
	mu    sync.RWMutex
	items map[string]*entry
	order []string
	opts  Options
	sf    singleflight.Group
}

func New(opts Options) *Cache {
	return &Cache{
		items: make(map[string]*entry),
		order: make([]string, 0, 128),
		opts:  opts,
	}
}

// Loader produces the value for a missing key. ok=false or a non-nil error
// marks the result as negative (cached only when NegativeTTL is set).
type Loader func(ctx context.Context, key string) (interface{}, bool, error)

type loadResult struct {
	val interface{}
	ok  bool
	err error
}

// Get returns the cached value for key, loading and storing it on a miss.
// Concurrent misses for the same key share one loader call.
func (c *Cache) Get(ctx context.Context, key string, loader Loader) (interface{}, bool, error) {
	now := time.Now()
	c.mu.RLock()
	if e, ok := c.items[key]; ok && now.Before(e.expiresAt) {
		c.mu.RUnlock()
		if e.negative {
			return nil, false, e.err
		}
		return e.value, true, nil
	}
	c.mu.RUnlock()

	result, _, _ := c.sf.Do(key, func() (interface{}, error) {
		val, ok, err := loader(ctx, key)
		c.store(key, val, ok, err)
		return loadResult{val: val, ok: ok, err: err}, nil
	})
	res := result.(loadResult)
	if !res.ok || res.err != nil {
		return nil, false, res.err
	}
	return res.val, true, nil
}

func (c *Cache) store(key string, val interface{}, ok bool, err error) {
	now := time.Now()
	e := &entry{}
	if ok && err == nil {
		e.value = val
		e.expiresAt = now.Add(c.opts.TTL)
	} else {
		if c.opts.NegativeTTL <= 0 {
			return
		}
		e.err = err
		e.negative = true
		e.expiresAt = now.Add(c.opts.NegativeTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
}

// Set stores a value directly with an explicit TTL.
func (c *Cache) Set(key string, val interface{}, ttl time.Duration) {
	now := time.Now()
	e := &entry{value: val, expiresAt: now.Add(ttl)}
	c.mu.Lock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
	c.mu.Unlock()
}

// Peek returns a cached value without triggering a load.
func (c *Cache) Peek(key string) (interface{}, bool) {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || e.negative || now.After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.removeFromOrder(key)
	c.mu.Unlock()
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 || len(c.items) <= c.opts.MaxEntries {
		return
	}
	// Simple FIFO eviction; can be replaced with true LRU
	excess := len(c.items) - c.opts.MaxEntries
	for excess > 0 && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
		excess--
	}
}
