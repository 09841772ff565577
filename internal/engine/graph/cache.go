package graph

import (
	"container/list"
	"sync"
)

// closureKey identifies one cached closure query.
type closureKey struct {
	id   string
	form Form
	down bool
}

type closureEntry struct {
	key        closureKey
	generation uint64
	ids        []string
}

// closureCache is a bounded least recently used cache of closure results.
// Each entry remembers the store generation it was computed at; a lookup at
// a later generation is a miss, so mutations never need to walk the cache.
type closureCache struct {
	mu       sync.Mutex
	capacity int
	items    map[closureKey]*list.Element
	order    *list.List // front = most recently used
}

func newClosureCache(capacity int) *closureCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &closureCache{
		capacity: capacity,
		items:    make(map[closureKey]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *closureCache) get(key closureKey, generation uint64) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*closureEntry)
	if e.generation != generation {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.ids, true
}

func (c *closureCache) put(key closureKey, generation uint64, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		e := el.Value.(*closureEntry)
		e.generation, e.ids = generation, ids
		return
	}
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*closureEntry).key)
		}
	}
	c.items[key] = c.order.PushFront(&closureEntry{key: key, generation: generation, ids: ids})
}

func (c *closureCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
