package repo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/marcus/roster/internal/events"
	"github.com/marcus/roster/internal/models"
)

// Sync drains the change log against the remote service, fetches the full
// remote entity set, reconciles it with the local set and writes the merged
// result back. Safe to invoke concurrently; callers queue behind each other.
// Returns false when offline or when any step failed (logged, not thrown).
func (s *Store) Sync(ctx context.Context) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if !s.net.Online() {
		slog.Info("sync skipped: offline")
		return false
	}

	if err := s.syncLocked(ctx); err != nil {
		slog.Error("sync failed", "err", err)
		return false
	}
	return true
}

func (s *Store) syncLocked(ctx context.Context) error {
	if err := s.drainChangeLog(); err != nil {
		return err
	}

	remoteSet, err := s.fetchAllPages()
	if err != nil {
		return fmt.Errorf("fetch remote state: %w", err)
	}

	localSet, err := s.db.All()
	if err != nil {
		return fmt.Errorf("read local state: %w", err)
	}

	merged := s.reconcile(localSet, remoteSet)

	if err := s.db.UpsertMany(merged); err != nil {
		return fmt.Errorf("write merged state: %w", err)
	}

	if !s.bus.TryEmit(events.Event{Type: events.SyncCompleted}) {
		slog.Debug("sync-completed event dropped for a slow subscriber")
	}
	return nil
}

// drainChangeLog replays queued entries in log order. Entries are attempted
// independently: a failed entry is kept for the next sync and does not stop
// later entries. Successful entries are deleted in one batch at the end.
func (s *Store) drainChangeLog() error {
	changes, err := s.db.AllChanges()
	if err != nil {
		return fmt.Errorf("read change log: %w", err)
	}

	var done []int64
	for _, ch := range changes {
		if err := s.replay(ch); err != nil {
			slog.Warn("replay failed, entry kept", "log_id", ch.LogID, "kind", ch.Kind, "entity", ch.EntityID, "err", err)
			continue
		}
		slog.Debug("change replayed", "log_id", ch.LogID, "kind", ch.Kind, "entity", ch.EntityID)
		done = append(done, ch.LogID)

		// A replicated create retires its placeholder row; the
		// authoritative copy arrives with the remote fetch below.
		if ch.Kind == models.ChangeCreate && ch.EntityID < 0 {
			if err := s.db.Delete(ch.EntityID); err != nil {
				return fmt.Errorf("drop placeholder %d: %w", ch.EntityID, err)
			}
		}
	}

	if err := s.db.DeleteChanges(done); err != nil {
		return fmt.Errorf("clear drained changes: %w", err)
	}
	return nil
}

func (s *Store) replay(ch models.Change) error {
	switch ch.Kind {
	case models.ChangeCreate:
		if ch.Name == nil || ch.Job == nil {
			return fmt.Errorf("create entry %d has no payload", ch.LogID)
		}
		return s.remote.Create(*ch.Name, *ch.Job)
	case models.ChangeUpdate:
		if ch.Name == nil || ch.Job == nil {
			return fmt.Errorf("update entry %d has no payload", ch.LogID)
		}
		return s.remote.Update(ch.EntityID, *ch.Name, *ch.Job)
	case models.ChangeDelete:
		return s.remote.Delete(ch.EntityID)
	default:
		return fmt.Errorf("unknown change kind %q", ch.Kind)
	}
}

// fetchAllPages walks the paginated list until the page index exceeds the
// reported total.
func (s *Store) fetchAllPages() ([]models.User, error) {
	var all []models.User
	for page := 1; ; page++ {
		users, totalPages, err := s.remote.FetchPage(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, users...)
		if page >= totalPages {
			break
		}
	}
	return all, nil
}

// reconcile merges the two entity sets by id. Remote-only rows are taken;
// local-only rows are kept (not-yet-replicated creates or offline-only
// data); rows on both sides go through resolve, and a winning local copy is
// pushed back to the server best-effort.
func (s *Store) reconcile(localSet, remoteSet []models.User) []models.User {
	localByID := make(map[int]models.User, len(localSet))
	for _, u := range localSet {
		localByID[u.ID] = u
	}

	merged := make(map[int]models.User, len(remoteSet)+len(localSet))

	for _, ru := range remoteSet {
		lu, ok := localByID[ru.ID]
		if !ok {
			merged[ru.ID] = ru
			continue
		}
		winner := resolve(lu, ru)
		merged[ru.ID] = winner
		if localWins(lu, ru) {
			name, job := models.ChangePayload(lu)
			if err := s.remote.Update(lu.ID, name, job); err != nil {
				slog.Warn("push local winner", "id", lu.ID, "err", err)
			}
		}
	}

	for _, lu := range localSet {
		if _, ok := merged[lu.ID]; !ok {
			merged[lu.ID] = lu
		}
	}

	out := make([]models.User, 0, len(merged))
	for _, u := range merged {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
