// Package flows defines guided multi-step flows over registered frames and
// tracks per-flow completion progress. Flow definitions live in an
// observable registry; progress lives in a store backed by a pluggable
// key-value engine (memory, file, or redis) and survives restarts when the
// engine is durable. Progress persistence is strictly best effort: a broken
// backend degrades the store, it never breaks the caller.
package flows

import (
	"context"

	"github.com/GoCodeAlone/appshell/frames"
	"github.com/GoCodeAlone/appshell/observe"
)

// Step is one stage of a flow. The frame is held by reference: a frame
// registered in a frame registry and used by a step is the same *Frame in
// both places. A step's identity for progress tracking is its index in the
// flow's step list, so reordering steps reinterprets previously recorded
// progress.
type Step struct {
	Frame *frames.Frame `json:"frame"`
	Tasks []string      `json:"tasks,omitempty"`
}

// Flow is an ordered sequence of steps that guides a user through an app.
type Flow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AppID       string `json:"appId"`
	Steps       []Step `json:"steps"`
}

// Registry holds flow definitions keyed by flow id. Definitions are
// replaced wholesale; subscribers are notified synchronously after each
// mutation commits. A Registry is safe for concurrent use.
type Registry struct {
	store  *observe.Store[*Flow]
	module *FlowsModule
}

// NewRegistry creates an empty flow registry.
func NewRegistry() *Registry {
	return &Registry{
		store: observe.New[*Flow](),
	}
}

// SetModule attaches the owning module so registry operations can emit
// observer events.
func (r *Registry) SetModule(module *FlowsModule) {
	r.module = module
}

// DefineFlow stores a flow definition, replacing any prior definition with
// the same id wholesale, and notifies subscribers once. The step list is
// copied; the step frames stay shared by reference.
func (r *Registry) DefineFlow(ctx context.Context, flow *Flow) error {
	if flow == nil {
		return ErrNilFlow
	}
	if flow.ID == "" {
		return ErrFlowIDEmpty
	}

	entry := copyFlow(flow)
	r.store.Register(entry.ID, entry)

	r.emitEvent(ctx, EventTypeFlowDefined, map[string]interface{}{
		"flowId": entry.ID,
		"appId":  entry.AppID,
		"steps":  len(entry.Steps),
	})
	return nil
}

// RemoveFlow deletes a flow definition and notifies subscribers once.
// Removing an unknown flow is a no-op. Recorded progress for the flow is
// not touched; it simply becomes unreachable until the flow is redefined.
func (r *Registry) RemoveFlow(ctx context.Context, flowID string) {
	if !r.store.Unregister(flowID) {
		return
	}

	r.emitEvent(ctx, EventTypeFlowRemoved, map[string]interface{}{
		"flowId": flowID,
	})
}

// GetFlow returns a copy of the identified flow definition. The step
// frames are shared by reference.
func (r *Registry) GetFlow(flowID string) (*Flow, error) {
	entry, ok := r.store.Get(flowID)
	if !ok {
		return nil, ErrFlowNotFound
	}
	return copyFlow(entry), nil
}

// GetAllFlows returns every flow definition in definition order.
func (r *Registry) GetAllFlows() []*Flow {
	entries := r.store.All()
	out := make([]*Flow, 0, len(entries))
	for _, entry := range entries {
		out = append(out, copyFlow(entry))
	}
	return out
}

// FlowCount returns the number of defined flows.
func (r *Registry) FlowCount() int {
	return r.store.Len()
}

// Subscribe registers a listener for flow definition changes. Listeners
// run synchronously after each mutation commits and may safely re-enter
// the registry.
func (r *Registry) Subscribe(listener observe.Listener[*Flow]) *observe.Subscription {
	return r.store.Subscribe(listener)
}

// copyFlow copies a flow definition. Frame pointers are shared so frame
// identity is preserved across registries; task lists are not.
func copyFlow(flow *Flow) *Flow {
	out := *flow
	out.Steps = append([]Step(nil), flow.Steps...)
	for i := range out.Steps {
		out.Steps[i].Tasks = append([]string(nil), flow.Steps[i].Tasks...)
	}
	return &out
}

// emitEvent forwards an operational event to the owning module, when the
// registry is running under one.
func (r *Registry) emitEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.module != nil {
		r.module.emitOperationalEvent(ctx, eventType, data)
	}
}
