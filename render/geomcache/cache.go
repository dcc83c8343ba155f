package geomcache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultCapacity int64 = 16 << 20
	// DefaultLowWaterPercent is the share of capacity kept after eviction.
	DefaultLowWaterPercent       = 85
	DefaultLowWater        int64 = DefaultCapacity * DefaultLowWaterPercent / 100
)

var ErrTooLarge = errors.New("geomcache: entry larger than cache capacity")

// EvictionListener is told about every entry removed to make room.
type EvictionListener func(key Key, e *Entry)

type item struct {
	key   Key
	entry *Entry
	size  int64
}

// Cache is a byte-bounded store of geometry entries. When a Put would exceed
// capacity, least recently used entries are evicted until usage drops to the
// low water mark. All methods are safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	capacity  int64
	lowWater  int64
	used      int64
	order     *list.List // front = most recently used
	items     map[Key]*list.Element
	listeners []EvictionListener
}

func New(capacity, lowWater int64) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if lowWater <= 0 || lowWater > capacity {
		lowWater = capacity * DefaultLowWaterPercent / 100
	}
	return &Cache{
		capacity: capacity,
		lowWater: lowWater,
		order:    list.New(),
		items:    make(map[Key]*list.Element),
	}
}

func NewDefault() *Cache {
	return New(DefaultCapacity, 0)
}

func (c *Cache) AddEvictionListener(l EvictionListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Get returns the entry for key and marks it recently used.
func (c *Cache) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*item).entry, true
}

func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Put stores e under key, replacing any previous entry.
func (c *Cache) Put(key Key, e *Entry) error {
	size := e.SizeInBytes()
	c.mu.Lock()
	if size > c.capacity {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d > %d bytes (%s)", ErrTooLarge, size, c.capacity, key.Tag)
	}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	var evicted []*item
	if c.used+size > c.capacity {
		evicted = c.shrink(c.lowWater - size)
	}
	el := c.order.PushFront(&item{key: key, entry: e, size: size})
	c.items[key] = el
	c.used += size
	listeners := c.listeners
	c.mu.Unlock()

	for _, it := range evicted {
		for _, l := range listeners {
			l(it.key, it.entry)
		}
	}
	return nil
}

func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[Key]*list.Element)
	c.used = 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) Capacity() int64 { return c.capacity }
func (c *Cache) LowWater() int64 { return c.lowWater }

func (c *Cache) UsedCapacity() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache) FreeCapacity() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity - c.used
}

// shrink evicts from the back until used <= target. Caller holds mu.
func (c *Cache) shrink(target int64) []*item {
	var out []*item
	for c.used > target && c.order.Len() > 0 {
		el := c.order.Back()
		out = append(out, el.Value.(*item))
		c.removeElement(el)
	}
	return out
}

func (c *Cache) removeElement(el *list.Element) {
	it := el.Value.(*item)
	c.order.Remove(el)
	delete(c.items, it.key)
	c.used -= it.size
}
