package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this causes TryEmit to report false.
const subscriberBuffer = 16

// Bus is a broadcast channel for invalidation events. New subscribers do
// not see events emitted before they subscribed (no replay), and events
// from a single producer reach each subscriber in emission order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id   string
	bus  *Bus
	ch   chan Event
	done chan struct{}
}

// Events returns the subscriber's receive channel. It is never closed;
// consumers select on Done alongside it.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Done is closed by Unsubscribe. The event channel itself stays open so an
// emitter mid-delivery can never race a teardown into a send on a closed
// channel.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe detaches the subscription and signals Done. It does not wait
// for in-flight emissions, so it returns promptly even while an emitter is
// blocked on this subscriber's full buffer.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s.id]; ok {
		delete(s.bus.subs, s.id)
		close(s.done)
	}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id:   uuid.NewString(),
		bus:  b,
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// snapshot copies the current subscriber set so delivery happens without
// holding the bus lock.
func (b *Bus) snapshot() []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		out = append(out, sub)
	}
	return out
}

// Emit delivers ev to every subscriber registered at the start of the call,
// waiting for buffer space when a subscriber is full. A subscriber that
// unsubscribes mid-wait is skipped. Returns ctx.Err() if the context ends
// first, or an error for an event type outside the taxonomy.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if !ValidEventType(ev.Type) {
		return fmt.Errorf("emit: unknown event type %q", ev.Type)
	}
	for _, sub := range b.snapshot() {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// TryEmit delivers ev without blocking. It reports false for an event type
// outside the taxonomy or when at least one subscriber's buffer was full
// and the event was dropped for it.
func (b *Bus) TryEmit(ev Event) bool {
	if !ValidEventType(ev.Type) {
		return false
	}
	delivered := true
	for _, sub := range b.snapshot() {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		default:
			delivered = false
		}
	}
	return delivered
}
