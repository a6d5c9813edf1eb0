package intent

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores successful classifications keyed by normalized text.
type Cache interface {
	Get(ctx context.Context, key string) (Classification, bool)
	Set(ctx context.Context, key string, c Classification)
	Clear(ctx context.Context) error
}

type lruEntry struct {
	key       string
	value     Classification
	expiresAt time.Time
}

// LRUCache is a bounded in-memory cache. Entries expire after ttl (zero
// means never) and the least recently used entry is evicted at capacity.
type LRUCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	entries   map[string]*list.Element
	evictList *list.List
	now       func() time.Time
}

func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{
		capacity:  capacity,
		ttl:       ttl,
		entries:   make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

func (c *LRUCache) Get(_ context.Context, key string) (Classification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Classification{}, false
	}
	e := el.Value.(*lruEntry)
	if c.expired(e) {
		c.remove(el)
		return Classification{}, false
	}
	c.evictList.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache) Set(_ context.Context, key string, value Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*lruEntry)
		e.value = value
		e.expiresAt = c.expiry()
		c.evictList.MoveToFront(el)
		return
	}

	el := c.evictList.PushFront(&lruEntry{key: key, value: value, expiresAt: c.expiry()})
	c.entries[key] = el

	for c.evictList.Len() > c.capacity {
		c.remove(c.evictList.Back())
	}
}

func (c *LRUCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.evictList.Init()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *LRUCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.evictList.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*lruEntry)) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *LRUCache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *LRUCache) expired(e *lruEntry) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

func (c *LRUCache) remove(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.entries, el.Value.(*lruEntry).key)
}
