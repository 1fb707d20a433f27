package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultPersistTimeout = 2 * time.Second

// FailureKind classifies the recoverable failures a Store swallows.
type FailureKind string

const (
	FailureHydrate FailureKind = "hydrate"
	FailurePersist FailureKind = "persist"
)

// FailureHandler is told about every swallowed failure, after it has been logged.
type FailureHandler func(ctx context.Context, kind FailureKind, err error)

// StoreParams groups dependencies for a Store. Only Slot is required.
type StoreParams struct {
	Slot Slot
	// Key defaults to SlotKey.
	Key string
	// Scope tags emitted events so shared-bus observers can tell carts apart.
	Scope string
	// Bus defaults to a private bus.
	Bus *Bus
	// IDs defaults to TimeOrderedIDs.
	IDs            IDGenerator
	Logger         *logger.Logger
	Metrics        *metrics.CartMetrics
	OnFailure      FailureHandler
	PersistTimeout time.Duration
}

// Store owns the line items of one cart. In-memory state is authoritative; the slot is a
// best-effort copy of it, rewritten in full after every effective mutation.
//
// Mutations are serialized end-to-end (mutate, persist, emit), so events arrive in call
// order. Listeners run while that lock is held: they may read the store but must not
// mutate it synchronously.
type Store struct {
	slot           Slot
	key            string
	scope          string
	bus            *Bus
	ids            IDGenerator
	logg           *logger.Logger
	metrics        *metrics.CartMetrics
	onFailure      FailureHandler
	persistTimeout time.Duration

	opMu        sync.Mutex
	hydrateOnce sync.Once

	mu    sync.RWMutex
	items   []LineItem
	state   State
	pending []pendingOp
}

// NewStore returns a Store in the Loading state. Call Hydrate to restore persisted items.
func NewStore(params StoreParams) (*Store, error) {
	if params.Slot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart slot is required")
	}
	s := &Store{
		slot:           params.Slot,
		key:            params.Key,
		scope:          params.Scope,
		bus:            params.Bus,
		ids:            params.IDs,
		logg:           params.Logger,
		metrics:        params.Metrics,
		onFailure:      params.OnFailure,
		persistTimeout: params.PersistTimeout,
		items:          []LineItem{},
		state:          StateLoading,
	}
	if s.key == "" {
		s.key = SlotKey
	}
	if s.bus == nil {
		s.bus = NewBus()
	}
	if s.ids == nil {
		s.ids = TimeOrderedIDs{}
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = defaultPersistTimeout
	}
	return s, nil
}

// Open builds a Store and hydrates it before returning.
func Open(ctx context.Context, params StoreParams) (*Store, error) {
	s, err := NewStore(params)
	if err != nil {
		return nil, err
	}
	s.Hydrate(ctx)
	return s, nil
}

// Hydrate performs the store's single hydration attempt; later calls are no-ops.
// Mutations made while Loading are replayed in order onto the restored items and persisted once.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		s.load(ctx, false)
	})
}

// Reload discards in-memory items and re-reads the slot. On a store that was never hydrated
// it performs the hydration instead.
func (s *Store) Reload(ctx context.Context) {
	hydrated := false
	s.hydrateOnce.Do(func() {
		hydrated = true
		s.load(ctx, true)
	})
	if !hydrated {
		s.load(ctx, true)
	}
}

func (s *Store) load(ctx context.Context, notify bool) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	restored, normalized := s.readSlot(ctx)

	s.mu.Lock()
	replayed := len(s.pending) > 0
	if replayed {
		restored = s.replay(restored, s.pending)
	}
	s.items = restored
	s.state = StateReady
	s.pending = nil
	snapshot := cloneItems(s.items)
	s.mu.Unlock()

	if replayed || normalized {
		s.persist(ctx, snapshot)
	}
	if notify || replayed || len(snapshot) > 0 {
		s.emit()
	}
}

func (s *Store) readSlot(ctx context.Context) ([]LineItem, bool) {
	ctx = s.logg.WithFields(ctx, map[string]any{"cart_scope": s.scope, "cart_key": s.key})
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	raw, err := s.slot.Get(readCtx, s.key)
	if errors.Is(err, ErrSlotEmpty) {
		s.metrics.IncHydration("empty")
		return []LineItem{}, false
	}
	if err != nil {
		s.metrics.IncHydration("unavailable")
		s.fail(ctx, FailureHydrate, err, "cart.hydrate_unavailable")
		return []LineItem{}, false
	}

	items, normalized, err := decodeItems(raw, s.ids)
	if err != nil {
		s.metrics.IncHydration("corrupt")
		s.fail(ctx, FailureHydrate, err, "cart.hydrate_corrupt")
		return []LineItem{}, false
	}
	if normalized {
		s.logg.Warn(ctx, "cart.hydrate_normalized")
	}
	s.metrics.IncHydration("restored")
	return items, normalized
}

// AddItem merges the service into the line with the same title and category, or appends a
// new line. A quantity of 0 means 1; negative quantities are rejected.
func (s *Store) AddItem(ctx context.Context, service ServiceDescriptor, quantity int) (LineItem, error) {
	if quantity < 0 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if service.BasePrice < 0 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "base price must not be negative")
	}
	if quantity == 0 {
		quantity = 1
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	var line LineItem
	if i := s.indexOfKey(keyOf(service.Title, service.Category)); i >= 0 {
		merged, ok := addQuantity(s.items[i].Quantity, quantity)
		if !ok {
			s.mu.Unlock()
			return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity is too large")
		}
		s.items[i].Quantity = merged
		line = s.items[i].clone()
	} else {
		line = LineItem{
			ID:                s.uniqueIDLocked(),
			ServiceDescriptor: service.clone(),
			Quantity:          quantity,
		}
		s.items = append(s.items, line.clone())
	}
	snapshot, persist := s.commitLocked(pendingOp{kind: opAdd, id: line.ID, service: service.clone(), quantity: quantity})
	s.mu.Unlock()

	s.afterMutation(ctx, "add", snapshot, persist)
	return line, nil
}

// RemoveItem drops the line with id. Unknown ids are ignored.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.removeLocked(ctx, id)
}

func (s *Store) removeLocked(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOfID(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	snapshot, persist := s.commitLocked(pendingOp{kind: opRemove, id: id})
	s.mu.Unlock()

	s.afterMutation(ctx, "remove", snapshot, persist)
}

// UpdateQuantity sets the line's quantity. Values below 1 remove the line.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if quantity < 1 {
		s.removeLocked(ctx, id)
		return
	}

	s.mu.Lock()
	i := s.indexOfID(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items[i].Quantity = quantity
	snapshot, persist := s.commitLocked(pendingOp{kind: opUpdate, id: id, quantity: quantity})
	s.mu.Unlock()

	s.afterMutation(ctx, "update", snapshot, persist)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.clearLocked(ctx)
}

// ClearAfter hands the current lines to fn and empties the cart only if fn succeeds. No other
// mutation can run in between; fn must not mutate the store.
func (s *Store) ClearAfter(ctx context.Context, fn func(items []LineItem, subtotal decimal.Decimal) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	items := cloneItems(s.items)
	subtotal := subtotalOf(s.items)
	s.mu.RUnlock()

	if err := fn(items, subtotal); err != nil {
		return err
	}
	s.clearLocked(ctx)
	return nil
}

func (s *Store) clearLocked(ctx context.Context) {
	s.mu.Lock()
	s.items = []LineItem{}
	snapshot, persist := s.commitLocked(pendingOp{kind: opClear})
	s.mu.Unlock()

	s.afterMutation(ctx, "clear", snapshot, persist)
}

// Items returns a copy of the current lines in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Subtotal is the sum of base price times quantity over all lines.
func (s *Store) Subtotal() float64 {
	value, _ := s.SubtotalDecimal().Float64()
	return value
}

// Total equals Subtotal; no tax or discount is applied at this layer.
func (s *Store) Total() float64 {
	return s.Subtotal()
}

// SubtotalDecimal is Subtotal without the float conversion.
func (s *Store) SubtotalDecimal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return subtotalOf(s.items)
}

// ItemCount is the sum of quantities, not the number of lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return itemCountOf(s.items)
}

// Contains reports whether a line with the business key exists.
func (s *Store) Contains(title, category string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfKey(keyOf(title, category)) >= 0
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subtotal, _ := subtotalOf(s.items).Float64()
	return Snapshot{
		Items:     cloneItems(s.items),
		Subtotal:  subtotal,
		Total:     subtotal,
		ItemCount: itemCountOf(s.items),
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Scope returns the scope events from this store are tagged with.
func (s *Store) Scope() string {
	return s.scope
}

// Subscribe registers fn for this store's change events.
func (s *Store) Subscribe(fn Listener) func() {
	return s.bus.SubscribeScope(s.scope, fn)
}

// Serialize returns the persisted representation of the current items.
func (s *Store) Serialize() (string, error) {
	return encodeItems(s.Items())
}

// commitLocked must be called with mu held. Mutations while Loading are logged so that
// hydration can replay them instead of discarding them.
func (s *Store) commitLocked(op pendingOp) ([]LineItem, bool) {
	if s.state != StateReady {
		s.pending = append(s.pending, op)
		return nil, false
	}
	return cloneItems(s.items), true
}

func (s *Store) afterMutation(ctx context.Context, op string, snapshot []LineItem, persist bool) {
	s.metrics.IncMutation(op)
	if persist {
		s.persist(ctx, snapshot)
	}
	s.emit()
}

func (s *Store) persist(ctx context.Context, items []LineItem) {
	ctx = s.logg.WithFields(ctx, map[string]any{"cart_scope": s.scope, "cart_key": s.key})

	payload, err := encodeItems(items)
	if err != nil {
		s.fail(ctx, FailurePersist, err, "cart.persist_encode_failed")
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	start := time.Now()
	err = s.slot.Set(writeCtx, s.key, payload)
	s.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		s.fail(ctx, FailurePersist, err, "cart.persist_failed")
	}
}

func (s *Store) emit() {
	s.bus.Emit(Event{Name: EventCartUpdated, Scope: s.scope})
}

func (s *Store) fail(ctx context.Context, kind FailureKind, err error, msg string) {
	if kind == FailureHydrate {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
	} else {
		s.logg.Error(ctx, msg, err)
	}
	if s.onFailure != nil {
		s.onFailure(ctx, kind, err)
	}
}

func (s *Store) indexOfKey(key businessKey) int {
	for i, item := range s.items {
		if keyOf(item.Title, item.Category) == key {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfID(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueIDLocked() string {
	taken := make(map[string]bool, len(s.items))
	for _, item := range s.items {
		taken[item.ID] = true
	}
	return uniqueID(s.ids, taken)
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opUpdate
	opClear
)

// pendingOp is a mutation accepted while Loading. id is the provisional line id the caller saw.
type pendingOp struct {
	kind     opKind
	id       string
	service  ServiceDescriptor
	quantity int
}

// replay applies ops in call order onto the hydrated items. Provisional ids that were merged
// into a restored line, or renamed on collision, are resolved through aliases.
func (s *Store) replay(items []LineItem, ops []pendingOp) []LineItem {
	aliases := make(map[string]string, len(ops))
	resolve := func(id string) string {
		if alias, ok := aliases[id]; ok {
			return alias
		}
		return id
	}
	indexOf := func(id string) int {
		return slices.IndexFunc(items, func(item LineItem) bool { return item.ID == id })
	}

	for _, op := range ops {
		switch op.kind {
		case opAdd:
			key := keyOf(op.service.Title, op.service.Category)
			if i := slices.IndexFunc(items, func(item LineItem) bool { return keyOf(item.Title, item.Category) == key }); i >= 0 {
				items[i].Quantity = saturatingAdd(items[i].Quantity, op.quantity)
				aliases[op.id] = items[i].ID
				continue
			}
			taken := make(map[string]bool, len(items))
			for _, existing := range items {
				taken[existing.ID] = true
			}
			id := op.id
			if id == "" || taken[id] {
				id = uniqueID(s.ids, taken)
			}
			aliases[op.id] = id
			items = append(items, LineItem{ID: id, ServiceDescriptor: op.service.clone(), Quantity: op.quantity})
		case opRemove:
			if i := indexOf(resolve(op.id)); i >= 0 {
				items = slices.Delete(items, i, i+1)
			}
		case opUpdate:
			if i := indexOf(resolve(op.id)); i >= 0 {
				items[i].Quantity = op.quantity
			}
		case opClear:
			items = []LineItem{}
		}
	}
	return items
}

// addQuantity reports false when a+b does not fit in an int.
func addQuantity(a, b int) (int, bool) {
	if b > 0 && a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

func saturatingAdd(a, b int) int {
	if sum, ok := addQuantity(a, b); ok {
		return sum
	}
	return math.MaxInt
}

const maxIDAttempts = 8

func uniqueID(ids IDGenerator, taken map[string]bool) string {
	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id = ids.NewID()
		if id != "" && !taken[id] {
			return id
		}
	}
	// the generator keeps colliding; suffix the last candidate until it is free
	base := id
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func encodeItems(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart items: %w", err)
	}
	return string(payload), nil
}

// decodeItems parses a persisted list and restores the invariants: lines with a quantity
// below 1 or a negative price are dropped, duplicate business keys are merged and missing or
// duplicate ids are regenerated. The bool reports whether anything had to be fixed.
func decodeItems(raw string, ids IDGenerator) ([]LineItem, bool, error) {
	if strings.TrimSpace(raw) == "" {
		return []LineItem{}, false, nil
	}

	var decoded []LineItem
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, false, fmt.Errorf("decode cart items: %w", err)
	}

	normalized := false
	out := make([]LineItem, 0, len(decoded))
	index := make(map[businessKey]int, len(decoded))
	taken := make(map[string]bool, len(decoded))
	for _, item := range decoded {
		if item.Quantity < 1 || item.BasePrice < 0 {
			normalized = true
			continue
		}
		key := keyOf(item.Title, item.Category)
		if i, ok := index[key]; ok {
			out[i].Quantity = saturatingAdd(out[i].Quantity, item.Quantity)
			normalized = true
			continue
		}
		if item.ID == "" || taken[item.ID] {
			item.ID = uniqueID(ids, taken)
			normalized = true
		}
		taken[item.ID] = true
		index[key] = len(out)
		out = append(out, item)
	}
	return out, normalized, nil
}
