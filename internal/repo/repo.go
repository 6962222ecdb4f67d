// Package repo is the synchronizing repository core: the local store is the
// read source of truth, writes are optimistic-local-first with a queued
// change log, and Sync reconciles local and remote state with a
// deterministic last-write-wins rule.
package repo

import (
	"context"
	"errors"

	"github.com/marcus/roster/internal/models"
)

// ErrInvalidPage is returned by ReadPage for an out-of-range page request.
var ErrInvalidPage = errors.New("invalid page")

// Repository is the read/write contract shared by the Store core and the
// caching decorator. Callers cannot tell which of the two they hold.
type Repository interface {
	// Read streams full local snapshots: the current one immediately,
	// then one after every local write.
	Read(ctx context.Context) <-chan []models.User

	// ReadPage returns one fixed-size page plus the total page count.
	// Online it asks the remote service; offline it slices the local
	// snapshot and fails with ErrInvalidPage for out-of-range pages.
	ReadPage(ctx context.Context, page int) ([]models.User, int, error)

	// TotalCount returns the remote total when reachable and degrades to
	// the local row count otherwise. Remote failure never propagates.
	TotalCount(ctx context.Context) (int, error)

	// Create, Update and Delete apply the mutation to the local store
	// first and queue it for remote replay. They fail only when the
	// local write fails; connectivity never produces an error.
	Create(ctx context.Context, u models.User) (models.User, error)
	Update(ctx context.Context, u models.User) (models.User, error)
	Delete(ctx context.Context, id int) error

	// Sync drains the change log and reconciles local against remote
	// state. Returns false when offline or when any step errored; errors
	// are logged, never thrown.
	Sync(ctx context.Context) bool
}

// LocalStore is the durable store surface the core depends on.
// *db.DB satisfies it.
type LocalStore interface {
	Observe(ctx context.Context) <-chan []models.User
	GetByID(id int) (*models.User, error)
	All() ([]models.User, error)
	Count() (int, error)
	UpsertOne(u models.User) error
	UpsertMany(users []models.User) error
	Delete(id int) error

	AppendChange(ch models.Change) (int64, error)
	AllChanges() ([]models.Change, error)
	DeleteChanges(logIDs []int64) error
	DeleteChangesFor(entityID int) error
	RewritePendingCreate(entityID int, name, job string) (bool, error)
	CountChanges() (int, error)
}

// Remote is the directory API surface the core depends on. Both
// *remote.Client and *remote.Retrying satisfy it.
type Remote interface {
	FetchPage(page int) ([]models.User, int, error)
	FetchAllWithTotalCount() ([]models.User, int, error)
	Create(name, job string) error
	Update(id int, name, job string) error
	Delete(id int) error
}
