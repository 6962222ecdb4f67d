// Package cache wraps the repository core with an in-process page and count
// cache. Entries live for a bounded TTL under LRU eviction; invalidation is
// driven both by the decorator's own writes and by bus events from other
// mutators.
package cache

import (
	"time"

	"github.com/marcus/roster/internal/models"
)

const (
	// TTL is how long a cached page or count stays servable.
	TTL = 5 * time.Minute
	// MaxPages bounds the page cache.
	MaxPages = 20
	// evictionWindow is how many least-recently-used entries are
	// candidates when the cache is full; the largest candidate goes
	// first, so eviction favors dropping big pages.
	evictionWindow = 4
)

// pageEntry is one cached page read-projection. Evicting it never touches
// the underlying store rows.
type pageEntry struct {
	users      []models.User
	totalPages int
	storedAt   time.Time
	lastAccess uint64
}

func (e *pageEntry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.storedAt) > ttl
}

// pageCache is a bounded, access-ordered page cache. Not goroutine-safe;
// the decorator serializes access.
type pageCache struct {
	entries   map[int]*pageEntry
	ttl       time.Duration
	capacity  int
	accessSeq uint64
	evictions uint64
}

func newPageCache(ttl time.Duration, capacity int) *pageCache {
	return &pageCache{
		entries:  make(map[int]*pageEntry),
		ttl:      ttl,
		capacity: capacity,
	}
}

// get returns a fresh entry and marks it used. An expired entry is dropped
// and reported as a miss.
func (c *pageCache) get(page int, now time.Time) (*pageEntry, bool) {
	e, ok := c.entries[page]
	if !ok {
		return nil, false
	}
	if e.expired(now, c.ttl) {
		delete(c.entries, page)
		return nil, false
	}
	c.accessSeq++
	e.lastAccess = c.accessSeq
	return e, true
}

// put stores a page, evicting if the cache is at capacity.
func (c *pageCache) put(page int, users []models.User, totalPages int, now time.Time) {
	if _, ok := c.entries[page]; !ok && len(c.entries) >= c.capacity {
		c.evict()
	}
	c.accessSeq++
	c.entries[page] = &pageEntry{
		users:      users,
		totalPages: totalPages,
		storedAt:   now,
		lastAccess: c.accessSeq,
	}
}

// evict removes one entry: the largest page among the few least-recently
// used ones, so a big stale page makes room before a small one.
func (c *pageCache) evict() {
	type cand struct {
		page   int
		access uint64
		size   int
	}
	cands := make([]cand, 0, len(c.entries))
	for page, e := range c.entries {
		cands = append(cands, cand{page: page, access: e.lastAccess, size: len(e.users)})
	}
	if len(cands) == 0 {
		return
	}

	// Partial selection of the eviction window by access order.
	window := evictionWindow
	if window > len(cands) {
		window = len(cands)
	}
	for i := 0; i < window; i++ {
		min := i
		for j := i + 1; j < len(cands); j++ {
			if cands[j].access < cands[min].access {
				min = j
			}
		}
		cands[i], cands[min] = cands[min], cands[i]
	}

	victim := cands[0]
	for _, cd := range cands[1:window] {
		if cd.size > victim.size {
			victim = cd
		}
	}

	delete(c.entries, victim.page)
	c.evictions++
}

func (c *pageCache) remove(page int) {
	delete(c.entries, page)
}

func (c *pageCache) clear() {
	c.entries = make(map[int]*pageEntry)
}

func (c *pageCache) len() int {
	return len(c.entries)
}

// countEntry is the single cached total-count value.
type countEntry struct {
	value    int
	storedAt time.Time
	valid    bool
}

func (e *countEntry) fresh(now time.Time, ttl time.Duration) bool {
	return e.valid && now.Sub(e.storedAt) <= ttl
}
