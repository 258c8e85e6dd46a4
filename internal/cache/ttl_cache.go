package cache

import (
	"container/list"
	"sync"
	"time"

	"pos-service/internal/clock"
)

// TTLCache is a bounded in-process cache. When full, the oldest inserted
// entry is evicted regardless of how recently it was read. Entries older
// than the TTL are treated as absent and dropped on lookup.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
	order      *list.List
	items      map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
}

// NewTTLCache creates a cache holding at most maxEntries values for ttl each.
func NewTTLCache[K comparable, V any](maxEntries int, ttl time.Duration, clk clock.Clock) *TTLCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &TTLCache[K, V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clk,
		order:      list.New(),
		items:      make(map[K]*list.Element),
	}
}

// Get returns the live value for key.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[K, V])
	if c.clock.Now().Sub(e.insertedAt) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. Re-setting a key counts as a fresh insertion.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	for c.order.Len() >= c.maxEntries {
		c.removeElement(c.order.Front())
	}

	e := &entry[K, V]{key: key, value: value, insertedAt: c.clock.Now()}
	c.items[key] = c.order.PushBack(e)
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *TTLCache[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
}
