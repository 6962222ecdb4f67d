package repo

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/roster/internal/events"
	"github.com/marcus/roster/internal/models"
	"github.com/marcus/roster/internal/netcheck"
)

// PageSize is the fixed pagination window, matching the server page size.
const PageSize = 6

// Store is the repository core. It checks connectivity at the start of
// every operation that needs it rather than caching the answer.
type Store struct {
	db        LocalStore
	remote    Remote
	net       netcheck.Checker
	bus       *events.Bus
	sessionID string

	// syncMu serializes concurrent Sync callers; a second caller queues
	// behind the first rather than interleaving with it.
	syncMu sync.Mutex

	now func() time.Time
}

// NewStore wires the repository core.
func NewStore(db LocalStore, remote Remote, net netcheck.Checker, bus *events.Bus, sessionID string) *Store {
	return &Store{
		db:        db,
		remote:    remote,
		net:       net,
		bus:       bus,
		sessionID: sessionID,
		now:       time.Now,
	}
}

// tempID returns a session-local placeholder id for an offline-created
// entity. Negative so it can never collide with a server-assigned id; random
// so two creates in one session cannot collide with each other.
func tempID() int {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a clock-derived id; still negative.
		return -int(time.Now().UnixNano()&0x3fffffff) - 1
	}
	return -int(binary.BigEndian.Uint32(b[:])&0x3fffffff) - 1
}

// Read delegates to the local store's snapshot stream. Remote data reaches
// callers only after Sync merged it into the store.
func (s *Store) Read(ctx context.Context) <-chan []models.User {
	return s.db.Observe(ctx)
}

// ReadPage serves one page. Online requests go to the remote service and
// surface remote failures to the caller; offline requests slice the local
// snapshot into fixed-size windows.
func (s *Store) ReadPage(ctx context.Context, page int) ([]models.User, int, error) {
	if s.net.Online() {
		users, totalPages, err := s.remote.FetchPage(page)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch page %d: %w", page, err)
		}
		return users, totalPages, nil
	}

	all, err := s.db.All()
	if err != nil {
		return nil, 0, fmt.Errorf("read local snapshot: %w", err)
	}

	totalPages := (len(all) + PageSize - 1) / PageSize
	if page < 1 || (len(all) > 0 && page > totalPages) {
		return nil, 0, fmt.Errorf("%w: %d of %d", ErrInvalidPage, page, totalPages)
	}

	start := (page - 1) * PageSize
	if start >= len(all) {
		return nil, totalPages, nil
	}
	end := start + PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], totalPages, nil
}

// TotalCount returns the remote total when online and reachable, degrading
// to the local row count on any remote failure.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	if s.net.Online() {
		if _, total, err := s.remote.FetchAllWithTotalCount(); err == nil {
			return total, nil
		} else {
			slog.Warn("total count: remote unavailable, using local count", "err", err)
		}
	}
	return s.db.Count()
}

// Create writes an optimistic local copy under a placeholder id and queues
// the create for replay. Returns the stored copy, placeholder id included.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = tempID()
	u.UpdatedAt = s.now().UnixMilli()
	u.Version = 1

	if err := s.db.UpsertOne(u); err != nil {
		return models.User{}, err
	}

	name, job := models.ChangePayload(u)
	logID, err := s.db.AppendChange(models.Change{
		EntityID:  u.ID,
		Kind:      models.ChangeCreate,
		Name:      &name,
		Job:       &job,
		SessionID: s.sessionID,
	})
	if err != nil {
		return models.User{}, err
	}

	s.emit(events.Event{Type: events.EntityCreated, EntityID: u.ID})
	s.pushNow(ctx, logID, func() error {
		if err := s.remote.Create(name, job); err != nil {
			return err
		}
		// The server assigned the real id; drop the placeholder row and
		// let the follow-up Sync pull the authoritative copy in.
		if err := s.db.Delete(u.ID); err != nil {
			slog.Warn("drop placeholder row", "id", u.ID, "err", err)
		}
		return nil
	})
	return u, nil
}

// Update bumps the entity's version and timestamp, writes it locally and
// queues the update. An update of a still-pending entity folds into its
// queued create instead, since the placeholder id does not exist remotely.
func (s *Store) Update(ctx context.Context, u models.User) (models.User, error) {
	cur, err := s.db.GetByID(u.ID)
	if err != nil {
		return models.User{}, err
	}
	if cur == nil {
		return models.User{}, fmt.Errorf("update user %d: no such row", u.ID)
	}

	u.UpdatedAt = s.now().UnixMilli()
	if u.UpdatedAt <= cur.UpdatedAt {
		// Timestamps never decrease, even against a skewed clock.
		u.UpdatedAt = cur.UpdatedAt + 1
	}
	u.Version = cur.Version + 1

	if err := s.db.UpsertOne(u); err != nil {
		return models.User{}, err
	}

	name, job := models.ChangePayload(u)

	if u.Pending() {
		folded, err := s.db.RewritePendingCreate(u.ID, name, job)
		if err != nil {
			return models.User{}, err
		}
		if folded {
			s.emit(events.Event{Type: events.EntityUpdated, EntityID: u.ID})
			return u, nil
		}
	}

	logID, err := s.db.AppendChange(models.Change{
		EntityID:  u.ID,
		Kind:      models.ChangeUpdate,
		Name:      &name,
		Job:       &job,
		SessionID: s.sessionID,
	})
	if err != nil {
		return models.User{}, err
	}

	s.emit(events.Event{Type: events.EntityUpdated, EntityID: u.ID})
	s.pushNow(ctx, logID, func() error { return s.remote.Update(u.ID, name, job) })
	return u, nil
}

// Delete removes the row locally and queues the delete. Deleting a pending
// entity cancels its queued history outright: the server never saw it.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := s.db.Delete(id); err != nil {
		return err
	}

	if id < 0 {
		if err := s.db.DeleteChangesFor(id); err != nil {
			return err
		}
		s.emit(events.Event{Type: events.EntityDeleted, EntityID: id})
		return nil
	}

	logID, err := s.db.AppendChange(models.Change{
		EntityID:  id,
		Kind:      models.ChangeDelete,
		SessionID: s.sessionID,
	})
	if err != nil {
		return err
	}

	s.emit(events.Event{Type: events.EntityDeleted, EntityID: id})
	s.pushNow(ctx, logID, func() error { return s.remote.Delete(id) })
	return nil
}

// PendingChanges reports the queued change-log depth, for status output.
func (s *Store) PendingChanges() (int, error) {
	return s.db.CountChanges()
}

// pushNow attempts the direct remote call for a fresh write when online.
// On success the queued entry is dropped before the follow-up Sync so the
// drain never replays an already-applied mutation; on failure the entry
// stays queued and the operation still counts as a success.
func (s *Store) pushNow(ctx context.Context, logID int64, call func() error) {
	if !s.net.Online() {
		return
	}

	if err := call(); err != nil {
		slog.Warn("remote write failed, queued for next sync", "log_id", logID, "err", err)
		return
	}

	if err := s.db.DeleteChanges([]int64{logID}); err != nil {
		slog.Warn("clear pushed change", "log_id", logID, "err", err)
	}
	s.Sync(ctx)
}

func (s *Store) emit(ev events.Event) {
	if !s.bus.TryEmit(ev) {
		slog.Debug("event dropped for a slow subscriber", "type", ev.Type, "id", ev.EntityID)
	}
}
