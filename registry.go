package dispatch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lockp111/go-cmap"
)

// Registry maps event kinds to the set of listeners subscribed to them.
//
// Writers are serialized; readers go straight to the sharded map and never
// wait on a writer touching another kind. Buckets are copy-on-write, so a
// snapshot is either fully before or fully after any single mutation.
type Registry struct {
	mu       sync.Mutex // serializes Register, Unregister and Clear
	buckets  cmap.ConcurrentMap[string, *bucket]
	declared map[Listener][]Kind
	logger   *slog.Logger
}

// NewRegistry - return an empty registry. A nil logger falls back to slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		buckets:  cmap.New[*bucket](),
		declared: make(map[Listener][]Kind),
		logger:   logger,
	}
}

// Register - add the listener under every kind it declares. Adding a listener
// that is already registered is a no-op and keeps the first declaration.
func (r *Registry) Register(l Listener) error {
	kinds, err := resolveKinds(l)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.declared[l]; ok {
		return nil
	}
	r.declared[l] = kinds

	for _, kind := range kinds {
		r.buckets.Upsert(string(kind), func(b *bucket, exist bool) *bucket {
			if !exist {
				b = newBucket(kind)
			}
			b.add(l)
			return b
		})
	}

	r.logger.Debug("listener registered", "listener", listenerName(l), "kinds", kinds)
	return nil
}

// Unregister - remove the listener from every kind it was registered under and
// prune buckets left empty. Removing an unknown listener is a no-op.
func (r *Registry) Unregister(l Listener) error {
	if err := identifiable(l); err != nil {
		return err
	}

	r.mu.Lock()
	kinds, ok := r.declared[l]
	if !ok {
		r.mu.Unlock()
		_, err := resolveKinds(l)
		return err
	}
	delete(r.declared, l)

	detached := make([]Kind, 0, len(kinds))
	for _, kind := range kinds {
		r.buckets.RemoveCb(string(kind), func(b *bucket, exists bool) bool {
			if !exists {
				return true
			}
			if b.remove(l) {
				detached = append(detached, kind)
			}
			return b.Count() == 0
		})
	}
	r.mu.Unlock()

	r.logger.Debug("listener unregistered", "listener", listenerName(l), "kinds", detached)
	r.notifyStop(l, detached)
	return nil
}

// Snapshot - return the listeners of a kind at this instant. The result is
// never affected by later registration changes and must not be modified.
func (r *Registry) Snapshot(kind Kind) []Listener {
	var listeners []Listener
	r.buckets.GetCb(string(kind), func(b *bucket, exists bool) {
		if exists {
			listeners = b.snapshot()
		}
	})
	return listeners
}

// Clear - remove every listener from every kind and return the number of
// memberships dropped
func (r *Registry) Clear() int {
	r.mu.Lock()

	var (
		keys     []string
		detached = make(map[Listener][]Kind)
		total    int
	)
	r.buckets.IterCb(func(key string, b *bucket) {
		keys = append(keys, key)
	})
	for _, key := range keys {
		r.buckets.RemoveCb(key, func(b *bucket, exists bool) bool {
			if !exists {
				return true
			}
			for _, l := range b.snapshot() {
				detached[l] = append(detached[l], b.kind)
				total++
			}
			return true
		})
	}
	r.declared = make(map[Listener][]Kind)
	r.mu.Unlock()

	for l, kinds := range detached {
		r.notifyStop(l, kinds)
	}
	return total
}

// Contains - report whether the listener is currently registered
func (r *Registry) Contains(l Listener) bool {
	if err := identifiable(l); err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.declared[l]
	return ok
}

// KindCount - return the number of kinds with at least one listener
func (r *Registry) KindCount() int {
	return r.buckets.Count()
}

// ListenerCount - return the number of listeners for a kind
func (r *Registry) ListenerCount(kind Kind) int {
	return len(r.Snapshot(kind))
}

// TotalListeners - return the number of listener memberships across all kinds
func (r *Registry) TotalListeners() int {
	total := 0
	r.buckets.IterCb(func(_ string, b *bucket) {
		total += b.Count()
	})
	return total
}

func (r *Registry) notifyStop(l Listener, kinds []Kind) {
	s, ok := l.(Stopper)
	if !ok {
		return
	}
	for _, kind := range kinds {
		func() {
			defer func() {
				if v := recover(); v != nil {
					r.logger.Error("listener stop hook panicked", "listener", listenerName(l), "kind", kind, "panic", v)
				}
			}()
			s.OnStop(kind)
		}()
	}
}

func listenerName(l Listener) string {
	return fmt.Sprintf("%T", l)
}
