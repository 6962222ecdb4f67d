package events

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestBroadcastToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	if !bus.TryEmit(Event{Type: EntityUpdated, EntityID: 7}) {
		t.Fatal("emit dropped")
	}

	for _, sub := range []*Subscription{a, b} {
		ev := recv(t, sub)
		if ev.Type != EntityUpdated || ev.EntityID != 7 {
			t.Errorf("got %+v", ev)
		}
	}
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	bus := NewBus()
	early := bus.Subscribe()
	defer early.Unsubscribe()

	bus.TryEmit(Event{Type: SyncCompleted})

	late := bus.Subscribe()
	defer late.Unsubscribe()

	select {
	case ev := <-late.Events():
		t.Fatalf("late subscriber saw earlier event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTryEmitReportsFullBuffer(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < subscriberBuffer; i++ {
		if !bus.TryEmit(Event{Type: InvalidateAll}) {
			t.Fatalf("emit %d dropped before buffer was full", i)
		}
	}
	if bus.TryEmit(Event{Type: InvalidateAll}) {
		t.Fatal("emit into a full buffer should report false")
	}
}

func TestEmitWaitsAndHonorsContext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	for i := 0; i < subscriberBuffer; i++ {
		bus.TryEmit(Event{Type: InvalidateAll})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bus.Emit(ctx, Event{Type: InvalidateAll}); err == nil {
		t.Fatal("expected context error on full buffer")
	}

	// Drain one slot; Emit must now succeed.
	<-sub.Events()
	if err := bus.Emit(context.Background(), Event{Type: SyncCompleted}); err != nil {
		t.Fatalf("emit after drain: %v", err)
	}
}

func TestEmissionOrderPerSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	want := []EventType{EntityCreated, EntityUpdated, EntityDeleted}
	for _, typ := range want {
		bus.TryEmit(Event{Type: typ})
	}
	for i, typ := range want {
		if ev := recv(t, sub); ev.Type != typ {
			t.Errorf("event %d: got %s, want %s", i, ev.Type, typ)
		}
	}
}

func TestUnsubscribeSignalsDone(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	sub.Unsubscribe()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not signalled after unsubscribe")
	}
	// Emitting after unsubscribe must not panic.
	bus.TryEmit(Event{Type: SyncCompleted})
	// Double unsubscribe is a no-op.
	sub.Unsubscribe()
}

func TestUnsubscribeNotBlockedByWedgedEmit(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()
	for i := 0; i < subscriberBuffer; i++ {
		bus.TryEmit(Event{Type: InvalidateAll})
	}
	other := bus.Subscribe() // empty buffer, subscribed after the backlog
	defer other.Unsubscribe()

	// Emit wedges on the slow subscriber's full buffer.
	emitDone := make(chan error, 1)
	go func() {
		emitDone <- bus.Emit(context.Background(), Event{Type: SyncCompleted})
	}()
	time.Sleep(20 * time.Millisecond)

	// Unsubscribing the slow subscriber must return promptly, and the
	// wedged Emit must move on to the remaining subscribers.
	unsubDone := make(chan struct{})
	go func() {
		slow.Unsubscribe()
		close(unsubDone)
	}()
	select {
	case <-unsubDone:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe blocked behind a wedged emit")
	}

	select {
	case err := <-emitDone:
		if err != nil {
			t.Fatalf("emit after unsubscribe: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("emit never finished after the blocking subscriber left")
	}

	// The remaining subscriber still received the emission.
	if ev := recv(t, other); ev.Type != SyncCompleted {
		t.Errorf("remaining subscriber got %s, want %s", ev.Type, SyncCompleted)
	}
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	if err := bus.Emit(context.Background(), Event{Type: "renamed"}); err == nil {
		t.Fatal("unknown event type should be rejected")
	}
	if bus.TryEmit(Event{Type: "renamed"}) {
		t.Fatal("TryEmit should refuse an unknown event type")
	}

	select {
	case ev := <-sub.Events():
		t.Fatalf("rejected event was delivered: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
