// Package observe provides a string-keyed, insertion-ordered store with
// change listeners. Mutations commit first, then all current listeners are
// notified synchronously from a snapshot taken at commit time, so listeners
// may freely re-enter the store (register, unregister, subscribe,
// unsubscribe) during notification without deadlocking or altering the
// in-flight delivery.
package observe

import (
	"log/slog"
	"sync"
)

// Op identifies the kind of mutation a Change describes.
type Op string

const (
	// OpRegistered indicates a value was stored under a previously unused key.
	OpRegistered Op = "registered"
	// OpReplaced indicates an existing entry was replaced wholesale.
	OpReplaced Op = "replaced"
	// OpRemoved indicates an entry was removed.
	OpRemoved Op = "removed"
)

// Change describes a single committed mutation. Old is the zero value for
// OpRegistered and New is the zero value for OpRemoved.
type Change[V any] struct {
	Key string
	Op  Op
	Old V
	New V
}

// Listener receives change notifications for a store.
type Listener[V any] func(Change[V])

// Subscription represents a registered listener. Unsubscribe is safe to call
// more than once; calls after the first are no-ops.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the listener from the store.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Store is an observable mapping from string keys to values. Keys preserve
// first-registration order: replacing a value keeps its original position,
// and a key registered again after removal moves to the end. The zero value
// is not usable; construct with New.
type Store[V any] struct {
	mu            sync.RWMutex
	order         []string
	entries       map[string]V
	listeners     map[uint64]Listener[V]
	listenerOrder []uint64
	nextListener  uint64
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{
		entries:   make(map[string]V),
		listeners: make(map[uint64]Listener[V]),
	}
}

// Register stores value under key, replacing any existing entry wholesale,
// and notifies listeners once.
func (s *Store[V]) Register(key string, value V) {
	s.mu.Lock()
	old, existed := s.entries[key]
	s.entries[key] = value
	if !existed {
		s.order = append(s.order, key)
	}
	change := Change[V]{Key: key, Op: OpRegistered, New: value}
	if existed {
		change.Op = OpReplaced
		change.Old = old
	}
	snapshot := s.listenerSnapshotLocked()
	s.mu.Unlock()

	deliver(snapshot, change)
}

// Unregister removes the entry for key and notifies listeners once. It
// reports whether an entry was removed; removing an absent key is a no-op
// and does not notify.
func (s *Store[V]) Unregister(key string) bool {
	s.mu.Lock()
	old, existed := s.entries[key]
	if !existed {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	change := Change[V]{Key: key, Op: OpRemoved, Old: old}
	snapshot := s.listenerSnapshotLocked()
	s.mu.Unlock()

	deliver(snapshot, change)
	return true
}

// Get returns the value stored under key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	return value, ok
}

// All returns the stored values in registration order.
func (s *Store[V]) All() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]V, 0, len(s.order))
	for _, key := range s.order {
		values = append(values, s.entries[key])
	}
	return values
}

// Keys returns the stored keys in registration order.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Subscribe registers a listener for subsequent changes. A nil listener
// yields an inert subscription.
func (s *Store[V]) Subscribe(listener Listener[V]) *Subscription {
	if listener == nil {
		return &Subscription{cancel: func() {}}
	}

	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.listenerOrder = append(s.listenerOrder, id)
	s.mu.Unlock()

	return &Subscription{cancel: func() { s.removeListener(id) }}
}

func (s *Store[V]) removeListener(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, lid := range s.listenerOrder {
		if lid == id {
			s.listenerOrder = append(s.listenerOrder[:i], s.listenerOrder[i+1:]...)
			break
		}
	}
}

// listenerSnapshotLocked copies the current listeners in subscription order.
// Callers must hold the store lock.
func (s *Store[V]) listenerSnapshotLocked() []Listener[V] {
	if len(s.listeners) == 0 {
		return nil
	}
	snapshot := make([]Listener[V], 0, len(s.listenerOrder))
	for _, id := range s.listenerOrder {
		snapshot = append(snapshot, s.listeners[id])
	}
	return snapshot
}

// deliver invokes each listener from the snapshot outside the store lock.
// A panicking listener is logged and does not stop delivery to the rest.
func deliver[V any](snapshot []Listener[V], change Change[V]) {
	for _, listener := range snapshot {
		invoke(listener, change)
	}
}

func invoke[V any](listener Listener[V], change Change[V]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Store listener panicked", "key", change.Key, "op", string(change.Op), "panic", r)
		}
	}()
	listener(change)
}
