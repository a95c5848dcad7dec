package cache

import (
	"sync"
	"time"
)

// Item represents a cached entry with expiration
type Item struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache is a bounded in-memory TTL cache. It backs the webhook idempotency
// gate: entries past their TTL are treated as absent, and when the entry
// count exceeds maxEntries a prune pass evicts expired and oldest entries.
type Cache struct {
	items      map[string]*Item
	mutex      sync.RWMutex
	maxEntries int
	defaultTTL time.Duration
}

// New creates a cache with the given entry cap and default TTL
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		items:      make(map[string]*Item),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}
}

// Get retrieves an item from the cache. Expired entries are removed.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Now().After(item.ExpiresAt) {
		c.mutex.Lock()
		delete(c.items, key)
		c.mutex.Unlock()
		return nil, false
	}

	return item.Data, true
}

// Has reports whether a non-expired entry exists for key
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores an item with the default TTL, pruning first if the cache is full
func (c *Cache) Set(key string, data interface{}) {
	c.SetWithTTL(key, data, c.defaultTTL)
}

// SetWithTTL stores an item with an explicit TTL
func (c *Cache) SetWithTTL(key string, data interface{}, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.items) >= c.maxEntries {
		c.pruneLocked()
	}

	c.items[key] = &Item{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Len returns the number of entries currently held, expired or not
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Prune evicts expired entries, and oldest entries while over capacity
func (c *Cache) Prune() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.pruneLocked()
}

func (c *Cache) pruneLocked() {
	now := time.Now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}

	// Still at capacity: drop entries closest to expiry until under the cap.
	for len(c.items) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		for key, item := range c.items {
			if oldestKey == "" || item.ExpiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = item.ExpiresAt
			}
		}
		delete(c.items, oldestKey)
	}
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*Item)
}
