package cache

import (
	"sync"
	"sync/atomic"
)

// Cache is a concurrency-safe memo of compiled values keyed by structural
// criteria hashes. Reads never block other reads; concurrent misses on the
// same key may both build, and the first stored value wins so every caller
// observes the same compiled artifact.
type Cache struct {
	entries sync.Map
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// GetOrCreate returns the cached value for key, building it on a miss.
// A failed build is returned to the caller and never cached, so transient
// errors do not poison the key.
func (c *Cache) GetOrCreate(key string, build func() (any, error)) (any, error) {
	if v, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	v, err := build()
	if err != nil {
		return nil, err
	}
	actual, _ := c.entries.LoadOrStore(key, v)
	return actual, nil
}

// Get returns the cached value for key without counting a miss on absence.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.entries.Load(key)
	if ok {
		c.hits.Add(1)
	}
	return v, ok
}

// Clear drops every entry and resets the hit and miss counters.
func (c *Cache) Clear() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// HitRatio is hits over total lookups, 0 when nothing was looked up.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats counts the entries and snapshots the hit and miss counters.
func (c *Cache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	c.entries.Range(func(_, _ any) bool {
		s.Entries++
		return true
	})
	return s
}
