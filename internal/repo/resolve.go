package repo

import "github.com/marcus/roster/internal/models"

// resolve picks the surviving copy of an entity present on both sides.
// Last-write-wins on UpdatedAt with Version as tie-break; the remote copy
// wins full ties, including equal versions. Deliberately not a field-level
// merge.
func resolve(local, remote models.User) models.User {
	if local.UpdatedAt > remote.UpdatedAt {
		return local
	}
	if local.UpdatedAt < remote.UpdatedAt {
		return remote
	}
	if local.Version > remote.Version {
		return local
	}
	return remote
}

// localWins reports whether resolve would keep the local copy, i.e. local
// is strictly newer and must be pushed back to the server.
func localWins(local, remote models.User) bool {
	if local.UpdatedAt != remote.UpdatedAt {
		return local.UpdatedAt > remote.UpdatedAt
	}
	return local.Version > remote.Version
}
