// Package events carries cache-invalidation signals between the repository
// core and any cache layers wrapping it, without either side holding a
// reference to the other.
package events

// EventType classifies an invalidation signal.
type EventType string

const (
	// SyncCompleted fires after a reconciliation pass wrote the merged
	// entity set back to the local store.
	SyncCompleted EventType = "sync_completed"
	// EntityCreated, EntityUpdated and EntityDeleted fire on individual
	// optimistic writes; EntityID carries the affected id.
	EntityCreated EventType = "entity_created"
	EntityUpdated EventType = "entity_updated"
	EntityDeleted EventType = "entity_deleted"
	// InvalidateAll asks every subscriber to drop all cached state.
	InvalidateAll EventType = "invalidate_all"
)

// Event is a single invalidation signal. Transient, never persisted;
// delivered at most once per subscriber per emission.
type Event struct {
	Type     EventType
	EntityID int // zero for SyncCompleted / InvalidateAll
}

// AllEventTypes returns all valid event types.
func AllEventTypes() map[EventType]bool {
	return map[EventType]bool{
		SyncCompleted: true,
		EntityCreated: true,
		EntityUpdated: true,
		EntityDeleted: true,
		InvalidateAll: true,
	}
}

// ValidEventType reports whether t is part of the taxonomy. The bus rejects
// emissions of unknown types.
func ValidEventType(t EventType) bool {
	return AllEventTypes()[t]
}
