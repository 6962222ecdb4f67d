package models

import "strings"

// User is a single directory record. The local store is the source of truth
// for reads; remote state only reaches callers after reconciliation.
type User struct {
	ID        int
	Email     string
	FirstName string
	LastName  string
	AvatarURL string

	// UpdatedAt is epoch milliseconds of the last mutation. Primary
	// conflict-resolution signal; never decreases for a given record.
	UpdatedAt int64

	// Version increments on every update and breaks timestamp ties.
	Version int
}

// Pending reports whether the user carries a session-local placeholder id,
// i.e. it was created offline and has not been assigned a real id yet.
func (u User) Pending() bool {
	return u.ID < 0
}

// DisplayName returns "First Last", trimming whichever part is empty.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ChangeKind classifies a change-log entry.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ValidChangeKind reports whether k is one of the known kinds.
func ValidChangeKind(k ChangeKind) bool {
	switch k {
	case ChangeCreate, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// Change is an append-only change-log entry recording a local mutation that
// still has to be replayed against the remote service. Entries are replayed
// strictly in LogID order and deleted only after the remote call succeeds.
type Change struct {
	LogID    int64 // assigned by the store on insert, ordering key
	EntityID int
	Kind     ChangeKind

	// Name and Job are the replay payload for the remote write API.
	// Nil only for delete entries.
	Name *string
	Job  *string

	// SessionID attributes the entry to the device session that produced it.
	SessionID string
}

// ChangePayload maps a user onto the {name, job} body the remote write API
// expects.
func ChangePayload(u User) (name, job string) {
	return u.DisplayName(), u.Email
}
