package plume

import (
	"container/list"
	"sync"
)

// templateCache maps raw source text to its compiled template, bounded by
// capacity with least-recently-used eviction. The recency order is explicit
// (a linked list), not insertion order, and all mutation is serialized so
// concurrent renders cannot tear it.
type templateCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key string
	tpl *Template
}

func newTemplateCache(capacity int) *templateCache {
	if capacity < 1 {
		capacity = 1
	}
	return &templateCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached template for key and promotes it to most recently
// used.
func (c *templateCache) Get(key string) (*Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).tpl, true
}

// Set inserts or replaces the entry for key. When the insert would exceed
// capacity, the least-recently-used entry is evicted first.
func (c *templateCache) Set(key string, tpl *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).tpl = tpl
		c.order.MoveToFront(el)
		return
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, tpl: tpl})
}

// Has reports whether key is cached without touching its recency.
func (c *templateCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Clear drops every entry.
func (c *templateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len reports the current number of cached templates.
func (c *templateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
