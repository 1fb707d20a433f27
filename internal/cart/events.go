package cart

import "sync"

// Event is a payload-less change signal. Scope identifies which cart changed; observers
// re-read the cart themselves.
type Event struct {
	Name  string
	Scope string
}

// Listener receives events synchronously on the emitting goroutine.
type Listener func(Event)

type subscription struct {
	id     uint64
	scope  string
	scoped bool
	fn     Listener
}

// Bus broadcasts cart events to any number of independent listeners.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every event. The returned func unsubscribes and is safe to
// call more than once.
func (b *Bus) Subscribe(fn Listener) func() {
	return b.add(subscription{fn: fn})
}

// SubscribeScope registers fn for events of a single scope.
func (b *Bus) SubscribeScope(scope string, fn Listener) func() {
	return b.add(subscription{scope: scope, scoped: true, fn: fn})
}

func (b *Bus) add(sub subscription) func() {
	if sub.fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.next++
	sub.id = b.next
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers evt to matching listeners in subscription order.
func (b *Bus) Emit(evt Event) {
	b.mu.RLock()
	targets := make([]Listener, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.scoped && sub.scope != evt.Scope {
			continue
		}
		targets = append(targets, sub.fn)
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(evt)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
