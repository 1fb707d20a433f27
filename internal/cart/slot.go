package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrSlotEmpty is returned by Slot.Get when nothing has been persisted under the key.
var ErrSlotEmpty = errors.New("cart slot empty")

// Slot is the durable string-keyed, string-valued storage the cart is persisted to.
type Slot interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemorySlot keeps values in process memory. Failures can be injected for tests.
type MemorySlot struct {
	mu       sync.Mutex
	values   map[string]string
	readErr  error
	writeErr error
	writes   int
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: map[string]string{}}
}

func (m *MemorySlot) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	value, ok := m.values[key]
	if !ok {
		return "", ErrSlotEmpty
	}
	return value, nil
}

func (m *MemorySlot) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.values[key] = value
	m.writes++
	return nil
}

// Put seeds a value without counting it as a write.
func (m *MemorySlot) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Value returns the raw stored value.
func (m *MemorySlot) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok
}

// Writes returns the number of successful Set calls.
func (m *MemorySlot) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// FailReads makes subsequent Get calls return err. Nil restores normal behaviour.
func (m *MemorySlot) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes subsequent Set calls return err. Nil restores normal behaviour.
func (m *MemorySlot) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

type scopedSlot struct {
	backend Slot
	scope   string
}

// ScopedSlot namespaces every key of backend under scope, giving each visitor its own slot.
func ScopedSlot(backend Slot, scope string) Slot {
	if scope == "" {
		return backend
	}
	return &scopedSlot{backend: backend, scope: scope}
}

func (s *scopedSlot) Get(ctx context.Context, key string) (string, error) {
	return s.backend.Get(ctx, s.scoped(key))
}

func (s *scopedSlot) Set(ctx context.Context, key, value string) error {
	return s.backend.Set(ctx, s.scoped(key), value)
}

func (s *scopedSlot) scoped(key string) string {
	return s.scope + ":" + key
}
