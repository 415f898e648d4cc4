package pipeline

import (
	"container/list"
	"sync"
)

// seenCache is a fixed-capacity set of recently posted alert IDs,
// evicting oldest-first. It sits in front of the durable identity check
// to spare a query for alerts this process already posted. It is only a
// positive cache: a miss says nothing, a hit is authoritative for the
// warm process lifetime.
type seenCache struct {
	mu    sync.Mutex
	cap   int
	order *list.List               // front = oldest
	ids   map[string]*list.Element // alert ID -> order element
}

func newSeenCache(capacity int) *seenCache {
	if capacity <= 0 {
		capacity = 50
	}
	return &seenCache{
		cap:   capacity,
		order: list.New(),
		ids:   make(map[string]*list.Element, capacity),
	}
}

func (c *seenCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ids[id]
	return ok
}

func (c *seenCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.ids[id]; ok {
		return
	}
	if c.order.Len() >= c.cap {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.ids, oldest.Value.(string))
	}
	c.ids[id] = c.order.PushBack(id)
}

func (c *seenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
