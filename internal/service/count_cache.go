package service

import (
	"context"
	"sync/atomic"
	"time"
)

// countEntry is immutable once published. An entry without a count is stale
// and only carries the generation.
type countEntry struct {
	gen         uint64
	count       int64
	refreshedAt time.Time
	valid       bool
}

// memoryCountCache keeps the count, its refresh time and the generation in
// one entry that is swapped atomically
type memoryCountCache struct {
	entry atomic.Pointer[countEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryCountCache creates a process-local count cache. Each instance of
// the service has its own view, so staleness is bounded per instance.
func NewMemoryCountCache(ttl time.Duration, now func() time.Time) CountCache {
	if now == nil {
		now = time.Now
	}
	c := &memoryCountCache{ttl: ttl, now: now}
	c.entry.Store(&countEntry{})
	return c
}

func (c *memoryCountCache) Get(_ context.Context) (int64, uint64, bool) {
	e := c.entry.Load()
	if !e.valid || c.now().Sub(e.refreshedAt) >= c.ttl {
		return 0, e.gen, false
	}
	return e.count, e.gen, true
}

// Set swaps in the new entry only if no Invalidate or Set landed since the
// entry was loaded; a lost race with an Invalidate drops the count.
func (c *memoryCountCache) Set(_ context.Context, count int64, gen uint64) {
	cur := c.entry.Load()
	if cur.gen != gen {
		return
	}
	c.entry.CompareAndSwap(cur, &countEntry{gen: gen, count: count, refreshedAt: c.now(), valid: true})
}

func (c *memoryCountCache) Invalidate(_ context.Context) error {
	for {
		cur := c.entry.Load()
		if c.entry.CompareAndSwap(cur, &countEntry{gen: cur.gen + 1}) {
			return nil
		}
	}
}
