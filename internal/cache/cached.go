package cache

import (
	"context"
	"sync"
	"time"

	"github.com/marcus/roster/internal/events"
	"github.com/marcus/roster/internal/models"
	"github.com/marcus/roster/internal/repo"
)

// Cached decorates a repository with page and count caching. It implements
// the same contract as the core, so callers cannot tell which they hold.
// It subscribes to the invalidation bus at construction, which keeps it
// correct even when a different component performed the mutating call.
type Cached struct {
	delegate repo.Repository

	mu    sync.Mutex
	pages *pageCache
	count countEntry

	// lastList mirrors the delegate's snapshot stream opportunistically.
	// Used only for statistics, never to serve reads.
	lastList     []models.User
	lastListSeen bool

	hits   uint64
	misses uint64

	sub *events.Subscription
	now func() time.Time
}

// Stats is a point-in-time view of cache behaviour.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Evictions    uint64
	CachedPages  int
	CountCached  bool
	LastSnapshot int // -1 until the snapshot stream has emitted
}

// New wraps delegate and attaches to bus for invalidation events.
func New(delegate repo.Repository, bus *events.Bus) *Cached {
	c := &Cached{
		delegate: delegate,
		pages:    newPageCache(TTL, MaxPages),
		sub:      bus.Subscribe(),
		now:      time.Now,
	}
	go c.consumeEvents()
	return c
}

// Close detaches from the bus and stops the event consumer.
func (c *Cached) Close() {
	c.sub.Unsubscribe()
}

func (c *Cached) consumeEvents() {
	for {
		select {
		case <-c.sub.Done():
			return
		case ev := <-c.sub.Events():
			switch ev.Type {
			case events.SyncCompleted, events.InvalidateAll, events.EntityDeleted:
				// Deletions shift pagination boundaries; drop everything.
				c.invalidateAll()
			case events.EntityCreated, events.EntityUpdated:
				c.invalidatePagesAndCount()
			}
		}
	}
}

// Read passes the delegate's stream through, mirroring each emission into
// the stats snapshot. Reads are never answered from the page/count caches.
func (c *Cached) Read(ctx context.Context) <-chan []models.User {
	in := c.delegate.Read(ctx)
	out := make(chan []models.User, 1)

	go func() {
		defer close(out)
		for snapshot := range in {
			c.mu.Lock()
			c.lastList = snapshot
			c.lastListSeen = true
			c.mu.Unlock()

			select {
			case <-out:
			default:
			}
			select {
			case out <- snapshot:
			default:
			}
		}
	}()
	return out
}

// ReadPage serves a fresh cached page without touching the delegate; a miss
// or expired entry delegates and repopulates on success.
func (c *Cached) ReadPage(ctx context.Context, page int) ([]models.User, int, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.pages.get(page, now); ok {
		c.hits++
		users, totalPages := e.users, e.totalPages
		c.mu.Unlock()
		return users, totalPages, nil
	}
	c.misses++
	c.mu.Unlock()

	users, totalPages, err := c.delegate.ReadPage(ctx, page)
	if err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	c.pages.put(page, users, totalPages, c.now())
	c.mu.Unlock()
	return users, totalPages, nil
}

// TotalCount mirrors ReadPage's hit/miss/TTL handling for the single count
// value.
func (c *Cached) TotalCount(ctx context.Context) (int, error) {
	now := c.now()

	c.mu.Lock()
	if c.count.fresh(now, TTL) {
		c.hits++
		v := c.count.value
		c.mu.Unlock()
		return v, nil
	}
	c.misses++
	c.count.valid = false
	c.mu.Unlock()

	v, err := c.delegate.TotalCount(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.count = countEntry{value: v, storedAt: c.now(), valid: true}
	c.mu.Unlock()
	return v, nil
}

// Create delegates, then drops all cached state: a new row shifts page
// boundaries and the total.
func (c *Cached) Create(ctx context.Context, u models.User) (models.User, error) {
	created, err := c.delegate.Create(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	c.invalidateAll()
	return created, nil
}

// Update delegates, then drops page and count caches.
func (c *Cached) Update(ctx context.Context, u models.User) (models.User, error) {
	updated, err := c.delegate.Update(ctx, u)
	if err != nil {
		return models.User{}, err
	}
	c.invalidatePagesAndCount()
	return updated, nil
}

// Delete delegates, then drops everything: pagination boundaries shift.
func (c *Cached) Delete(ctx context.Context, id int) error {
	if err := c.delegate.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidateAll()
	return nil
}

// Sync passes through and invalidates unconditionally: even a failed sync
// may have drained part of the change log and touched local rows.
func (c *Cached) Sync(ctx context.Context) bool {
	ok := c.delegate.Sync(ctx)
	c.invalidateAll()
	return ok
}

// Stats returns counters for status output.
func (c *Cached) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	last := -1
	if c.lastListSeen {
		last = len(c.lastList)
	}
	return Stats{
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.pages.evictions,
		CachedPages:  c.pages.len(),
		CountCached:  c.count.valid,
		LastSnapshot: last,
	}
}

// invalidateAll drops every cache tier, the mirrored snapshot included.
func (c *Cached) invalidateAll() {
	c.mu.Lock()
	c.pages.clear()
	c.count = countEntry{}
	c.lastList = nil
	c.lastListSeen = false
	c.mu.Unlock()
}

// invalidatePagesAndCount drops the page and count tiers but keeps the
// mirrored snapshot; the stream refreshes it on its own.
func (c *Cached) invalidatePagesAndCount() {
	c.mu.Lock()
	c.pages.clear()
	c.count = countEntry{}
	c.mu.Unlock()
}
