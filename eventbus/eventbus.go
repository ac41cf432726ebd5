// Package eventbus provides a process-wide publish/subscribe event bus with
// a bounded, FIFO-evicted dispatch history and wildcard subscriptions.
//
// Dispatch is synchronous: every handler for an event runs before Dispatch
// returns. Handlers for the exact event name are notified first, then
// handlers subscribed to the Wildcard name, each group in subscription order
// over a stable snapshot taken when that group's delivery begins. Handlers
// may subscribe, unsubscribe, or dispatch again during notification; a
// snapshot already being delivered is never affected.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Wildcard is the event name that receives every dispatched event
// regardless of its specific name.
const Wildcard = "*"

// EventRecord describes a single dispatched event. Records are immutable
// once created; the payload is opaque to the bus.
type EventRecord struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source,omitempty"`
}

// Handler processes events delivered by the bus. Handlers are identified by
// HandlerID: subscribing a handler under a name it is already registered for
// is a no-op, so the same handler is never invoked twice for one dispatch.
type Handler interface {
	// HandlerID returns a stable identifier for this handler.
	HandlerID() string

	// Handle processes a delivered event. A returned error is logged and
	// does not affect delivery to other handlers.
	Handle(ctx context.Context, record EventRecord) error
}

// HandlerFunc adapts a function to the Handler interface with an explicit id.
type HandlerFunc struct {
	id string
	fn func(ctx context.Context, record EventRecord) error
}

// NewHandlerFunc creates a Handler backed by the given function.
func NewHandlerFunc(id string, fn func(ctx context.Context, record EventRecord) error) *HandlerFunc {
	return &HandlerFunc{id: id, fn: fn}
}

// HandlerID returns the handler's identifier.
func (h *HandlerFunc) HandlerID() string {
	return h.id
}

// Handle invokes the wrapped function.
func (h *HandlerFunc) Handle(ctx context.Context, record EventRecord) error {
	return h.fn(ctx, record)
}

// Subscription represents a handler registered under one event name.
type Subscription struct {
	bus  *EventBus
	name string
	id   string
}

// EventName returns the name the handler is subscribed to.
func (s *Subscription) EventName() string {
	return s.name
}

// HandlerID returns the id of the subscribed handler.
func (s *Subscription) HandlerID() string {
	return s.id
}

// Unsubscribe removes the handler registration. Calling it more than once
// is a safe no-op.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.name, s.id)
}

// registration pairs a handler with its id inside a name group.
type registration struct {
	id      string
	handler Handler
}

// EventBus is the in-process bus engine. Instances are safe for concurrent
// use; delivery happens outside the internal locks, so handlers may re-enter
// the bus from the dispatching goroutine.
type EventBus struct {
	mu         sync.RWMutex
	groups     map[string][]*registration
	history    []EventRecord
	maxHistory int
	module     *EventBusModule // Reference to emit events
}

// New creates an event bus engine. A nil config uses defaults.
func New(config *EventBusConfig) *EventBus {
	maxHistory := DefaultMaxHistory
	if config != nil && config.MaxHistory > 0 {
		maxHistory = config.MaxHistory
	}
	return &EventBus{
		groups:     make(map[string][]*registration),
		maxHistory: maxHistory,
	}
}

// SetModule sets the parent module for operational event emission.
func (b *EventBus) SetModule(module *EventBusModule) {
	b.module = module
}

// Subscribe registers handler for events dispatched under name. Name may be
// the Wildcard to receive every event. Subscribing a handler whose id is
// already registered under name keeps the existing registration and its
// original position.
func (b *EventBus) Subscribe(ctx context.Context, name string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	id := handler.HandlerID()
	if id == "" {
		return nil, ErrEmptyHandlerID
	}

	b.mu.Lock()
	for _, reg := range b.groups[name] {
		if reg.id == id {
			b.mu.Unlock()
			return &Subscription{bus: b, name: name, id: id}, nil
		}
	}
	b.groups[name] = append(b.groups[name], &registration{id: id, handler: handler})
	b.mu.Unlock()

	b.emitEvent(ctx, EventTypeSubscriptionCreated, map[string]interface{}{
		"name":    name,
		"handler": id,
	})
	return &Subscription{bus: b, name: name, id: id}, nil
}

// SubscribeFunc registers fn under a generated handler id. Each call
// creates a distinct registration.
func (b *EventBus) SubscribeFunc(ctx context.Context, name string, fn func(ctx context.Context, record EventRecord) error) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(ctx, name, NewHandlerFunc(uuid.New().String(), fn))
}

// unsubscribe removes the (name, id) registration if present.
func (b *EventBus) unsubscribe(name, id string) {
	b.mu.Lock()
	group := b.groups[name]
	removed := false
	for i, reg := range group {
		if reg.id == id {
			b.groups[name] = append(group[:i], group[i+1:]...)
			if len(b.groups[name]) == 0 {
				delete(b.groups, name)
			}
			removed = true
			break
		}
	}
	b.mu.Unlock()

	if removed {
		b.emitEvent(context.Background(), EventTypeSubscriptionRemoved, map[string]interface{}{
			"name":    name,
			"handler": id,
		})
	}
}

// Dispatch publishes an event and returns the created record once every
// handler has run. Handler errors and panics are logged and never propagate
// to the caller.
func (b *EventBus) Dispatch(ctx context.Context, name string, payload interface{}) EventRecord {
	return b.DispatchFrom(ctx, name, payload, "")
}

// DispatchFrom is Dispatch with an explicit source attached to the record.
func (b *EventBus) DispatchFrom(ctx context.Context, name string, payload interface{}, source string) EventRecord {
	record := EventRecord{
		ID:        uuid.New().String(),
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
		Source:    source,
	}

	b.mu.Lock()
	b.history = append(b.history, record)
	b.trimHistoryLocked()
	b.mu.Unlock()

	b.notifyGroup(ctx, name, record)
	if name != Wildcard {
		b.notifyGroup(ctx, Wildcard, record)
	}

	b.emitEvent(ctx, EventTypeEventDispatched, map[string]interface{}{
		"name":   name,
		"id":     record.ID,
		"source": source,
	})
	return record
}

// notifyGroup delivers record to the handlers registered under name, in
// subscription order, iterating a snapshot taken when delivery for this
// group begins.
func (b *EventBus) notifyGroup(ctx context.Context, name string, record EventRecord) {
	b.mu.RLock()
	group := b.groups[name]
	if len(group) == 0 {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]*registration, len(group))
	copy(snapshot, group)
	b.mu.RUnlock()

	for _, reg := range snapshot {
		b.invokeHandler(ctx, reg, record)
	}
}

// invokeHandler runs one handler with panic and error isolation.
func (b *EventBus) invokeHandler(ctx context.Context, reg *registration, record EventRecord) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", record.Name, "handler", reg.id, "panic", r)
		}
	}()

	if err := reg.handler.Handle(ctx, record); err != nil {
		slog.Error("Event handler failed", "event", record.Name, "handler", reg.id, "error", err)
	}
}

// GetHistory returns a copy of the retained dispatch history, oldest first.
func (b *EventBus) GetHistory() []EventRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	history := make([]EventRecord, len(b.history))
	copy(history, b.history)
	return history
}

// ClearHistory discards all retained records.
func (b *EventBus) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()

	b.emitEvent(context.Background(), EventTypeHistoryCleared, nil)
}

// SetMaxHistory updates the history bound and immediately evicts the oldest
// records if the current history exceeds it. Negative values are treated
// as zero.
func (b *EventBus) SetMaxHistory(n int) {
	if n < 0 {
		n = 0
	}

	b.mu.Lock()
	b.maxHistory = n
	b.trimHistoryLocked()
	b.mu.Unlock()
}

// MaxHistory returns the current history bound.
func (b *EventBus) MaxHistory() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.maxHistory
}

// trimHistoryLocked evicts from the oldest end until the bound holds.
// Callers must hold the write lock.
func (b *EventBus) trimHistoryLocked() {
	if excess := len(b.history) - b.maxHistory; excess > 0 {
		b.history = b.history[excess:]
	}
}

// EventNames returns the names that currently have at least one subscriber.
func (b *EventBus) EventNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.groups))
	for name := range b.groups {
		names = append(names, name)
	}
	return names
}

// SubscriberCount returns the number of handlers registered under name.
func (b *EventBus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.groups[name])
}
