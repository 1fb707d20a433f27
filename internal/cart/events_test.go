package cart

import "testing"

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { order = append(order, "second") })

	bus.Emit(Event{Name: EventCartUpdated})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestBusScopedSubscriptions(t *testing.T) {
	bus := NewBus()
	got := 0
	bus.SubscribeScope("alice", func(evt Event) {
		if evt.Scope != "alice" {
			t.Fatalf("unexpected scope %q", evt.Scope)
		}
		got++
	})

	bus.Emit(Event{Name: EventCartUpdated, Scope: "bob"})
	bus.Emit(Event{Name: EventCartUpdated, Scope: "alice"})

	if got != 1 {
		t.Fatalf("expected 1 scoped delivery, got %d", got)
	}
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	keep := bus.Subscribe(func(Event) {})
	defer keep()

	unsubscribe()
	unsubscribe()
	bus.Emit(Event{Name: EventCartUpdated})

	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
	if bus.Len() != 1 {
		t.Fatalf("expected one remaining subscription, got %d", bus.Len())
	}
}

func TestBusListenerMayUnsubscribeDuringEmit(t *testing.T) {
	bus := NewBus()
	var unsubscribe func()
	calls := 0
	unsubscribe = bus.Subscribe(func(Event) {
		calls++
		unsubscribe()
	})

	bus.Emit(Event{Name: EventCartUpdated})
	bus.Emit(Event{Name: EventCartUpdated})

	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestBusIgnoresNilListener(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(nil)()
	if bus.Len() != 0 {
		t.Fatalf("expected nil listener to be ignored")
	}
}
