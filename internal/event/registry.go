package event

import (
	"sort"
	"sync"
)

// Registry holds listeners of type L keyed by a monotonically increasing slot.
type Registry[L any] struct {
	mu    sync.Mutex
	next  uint64
	slots map[uint64]L
}

// NewRegistry returns an empty registry.
func NewRegistry[L any]() *Registry[L] {
	return &Registry[L]{slots: make(map[uint64]L)}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe registers l and returns its handle.
func (r *Registry[L]) Subscribe(l L) *Subscription {
	r.mu.Lock()
	slot := r.next
	r.next++
	r.slots[slot] = l
	r.mu.Unlock()

	return &Subscription{cancel: func() {
		r.mu.Lock()
		delete(r.slots, slot)
		r.mu.Unlock()
	}}
}

// Len returns the number of registered listeners.
func (r *Registry[L]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Snapshot returns the listeners in registration order.
func (r *Registry[L]) Snapshot() []L {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]uint64, 0, len(r.slots))
	for k := range r.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]L, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.slots[k])
	}
	return out
}

// Notify calls fn for every listener in a snapshot of the registry.
func (r *Registry[L]) Notify(fn func(L)) {
	for _, l := range r.Snapshot() {
		fn(l)
	}
}
