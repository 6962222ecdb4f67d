package db

import (
	"context"
	"log/slog"

	"github.com/marcus/roster/internal/models"
)

// Observe returns a channel that emits the current full user snapshot
// immediately and re-emits after every user-table write until ctx is done.
// Each subscriber has a buffer of one snapshot; when a subscriber lags,
// intermediate snapshots are replaced by newer ones, so the latest write is
// never missed even though in-between states may collapse.
func (db *DB) Observe(ctx context.Context) <-chan []models.User {
	ch := make(chan []models.User, 1)

	db.mu.Lock()
	id := db.nextWatcher
	db.nextWatcher++
	db.watchers[id] = ch
	db.mu.Unlock()

	// Seed with the current snapshot so subscribers never start empty-handed.
	if snapshot, err := db.All(); err != nil {
		slog.Warn("observe: initial snapshot", "err", err)
	} else {
		ch <- snapshot
	}

	go func() {
		<-ctx.Done()
		db.mu.Lock()
		if cur, ok := db.watchers[id]; ok && cur == ch {
			delete(db.watchers, id)
			close(ch)
		}
		db.mu.Unlock()
	}()

	return ch
}

// notify pushes a fresh snapshot to every watcher. Write paths call it after
// their statement commits, so a snapshot observed after a write always
// reflects that write. The snapshot is read and delivered under one lock:
// with concurrent writers, a snapshot read before another writer's delivery
// must not land after it, or the replace-on-lag buffering would leave a
// stale snapshot as the latest.
func (db *DB) notify() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.watchers) == 0 {
		return
	}

	snapshot, err := db.All()
	if err != nil {
		slog.Warn("observe: snapshot after write", "err", err)
		return
	}

	for _, ch := range db.watchers {
		// Replace a stale buffered snapshot rather than block the writer.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
