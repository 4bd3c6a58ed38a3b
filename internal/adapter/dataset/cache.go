package dataset

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-sensor-pipeline/internal/observability"
)

// CachedSource wraps a Source with an in-memory LRU cache whose entries
// expire after ttl. A zero ttl keeps entries until evicted.
type CachedSource struct {
	inner   Source
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a source. A maxEntries
// of zero or less disables caching and returns inner unchanged.
func NewCachedSource(inner Source, maxEntries int, ttl time.Duration, metrics *observability.Metrics) Source {
	if maxEntries <= 0 {
		return inner
	}
	return newCachedSource(inner, maxEntries, ttl, metrics, clockwork.NewRealClock())
}

func newCachedSource(inner Source, maxEntries int, ttl time.Duration, metrics *observability.Metrics, clock clockwork.Clock) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	now := c.clock.Now()
	if body, ok := c.cache.get(path, now); ok {
		c.count("hit")
		return body, nil
	}
	c.count("miss")

	body, err := c.inner.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	// Only successful bodies are cached so failures are retried on the next load.
	var expires time.Time
	if c.ttl > 0 {
		expires = now.Add(c.ttl)
	}
	c.cache.put(path, body, expires)
	return body, nil
}

func (c *CachedSource) count(result string) {
	if c.metrics != nil {
		c.metrics.FetchCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache for dataset bodies.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time // zero means no expiry
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !now.Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
