package cart

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/servicecart/pkg/errors"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const defaultMaxOpen = 10000

// RegistryParams groups dependencies for a Registry. Backend is required.
type RegistryParams struct {
	Backend        Slot
	Bus            *Bus
	IDs            IDGenerator
	Logger         *logger.Logger
	Metrics        *metrics.CartMetrics
	OnFailure      FailureHandler
	PersistTimeout time.Duration
	// MaxOpen bounds the number of stores held in memory; the least recently used is dropped.
	MaxOpen int
}

type registryEntry struct {
	visitorID string
	store     *Store
}

// Registry hands out one hydrated Store per visitor. All stores share one Bus, and events are
// scoped by visitor id.
type Registry struct {
	params RegistryParams

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart backend slot is required")
	}
	if params.Bus == nil {
		params.Bus = NewBus()
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.MaxOpen <= 0 {
		params.MaxOpen = defaultMaxOpen
	}
	return &Registry{
		params:  params,
		entries: map[string]*list.Element{},
		order:   list.New(),
	}, nil
}

// Bus returns the bus shared by every store of the registry.
func (r *Registry) Bus() *Bus {
	return r.params.Bus
}

// Get returns the visitor's store, opening and hydrating it on first use. Concurrent first
// calls for the same visitor share a single hydration.
func (r *Registry) Get(ctx context.Context, visitorID string) (*Store, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	if store := r.lookup(visitorID); store != nil {
		return store, nil
	}

	value, err, _ := r.group.Do(visitorID, func() (any, error) {
		if store := r.lookup(visitorID); store != nil {
			return store, nil
		}
		store, err := Open(ctx, StoreParams{
			Slot:           ScopedSlot(r.params.Backend, visitorID),
			Scope:          visitorID,
			Bus:            r.params.Bus,
			IDs:            r.params.IDs,
			Logger:         r.params.Logger,
			Metrics:        r.params.Metrics,
			OnFailure:      r.params.OnFailure,
			PersistTimeout: r.params.PersistTimeout,
		})
		if err != nil {
			return nil, err
		}
		r.insert(visitorID, store)
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Store), nil
}

// Evict drops the visitor's store from memory. Persisted data is untouched, and callers still
// holding the store may keep using it.
func (r *Registry) Evict(visitorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if elem, ok := r.entries[visitorID]; ok {
		r.removeLocked(elem)
	}
	r.params.Metrics.SetOpenCarts(len(r.entries))
}

// Len returns the number of stores held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) lookup(visitorID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	elem, ok := r.entries[visitorID]
	if !ok {
		return nil
	}
	r.order.MoveToFront(elem)
	return elem.Value.(*registryEntry).store
}

func (r *Registry) insert(visitorID string, store *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[visitorID] = r.order.PushFront(&registryEntry{visitorID: visitorID, store: store})
	for len(r.entries) > r.params.MaxOpen {
		r.removeLocked(r.order.Back())
	}
	r.params.Metrics.SetOpenCarts(len(r.entries))
}

func (r *Registry) removeLocked(elem *list.Element) {
	entry := elem.Value.(*registryEntry)
	r.order.Remove(elem)
	delete(r.entries, entry.visitorID)
}
