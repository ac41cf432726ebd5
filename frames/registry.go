package frames

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/appshell/observe"
)

// Registry maps app ids to their frame sets and navigator handles. All
// mutations notify registry subscribers synchronously after committing, so
// shells can mirror the catalog (menus, launchers, search indexes) without
// polling. A Registry is safe for concurrent use.
type Registry struct {
	store *observe.Store[*AppFrames]

	mu          sync.RWMutex
	navigators  map[string]Navigator
	navCallback NavigationCallback

	module *FramesModule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		store:      observe.New[*AppFrames](),
		navigators: make(map[string]Navigator),
	}
}

// SetModule attaches the owning module so registry operations can emit
// observer events.
func (r *Registry) SetModule(module *FramesModule) {
	r.module = module
}

// RegisterFrames records an app's frame set, replacing any existing entry
// for appID wholesale, and notifies subscribers once. The frames slice is
// copied; the *Frame values are shared with the caller so frame identity is
// preserved across registries.
func (r *Registry) RegisterFrames(ctx context.Context, appID, appName string, appFrames []*Frame, initialFrameID string) error {
	if appID == "" {
		return ErrAppIDEmpty
	}

	entry := &AppFrames{
		AppID:          appID,
		AppName:        appName,
		Frames:         append([]*Frame(nil), appFrames...),
		InitialFrameID: initialFrameID,
	}
	r.store.Register(appID, entry)

	r.emitEvent(ctx, EventTypeAppRegistered, map[string]interface{}{
		"appId":   appID,
		"appName": appName,
		"frames":  len(entry.Frames),
	})
	return nil
}

// UnregisterFrames removes an app's entry and notifies subscribers once.
// Removing an unknown app is a no-op.
func (r *Registry) UnregisterFrames(ctx context.Context, appID string) {
	if !r.store.Unregister(appID) {
		return
	}

	r.emitEvent(ctx, EventTypeAppUnregistered, map[string]interface{}{
		"appId": appID,
	})
}

// GetAppFrames returns a copy of the app's entry. The contained *Frame
// values are shared; the slice is not.
func (r *Registry) GetAppFrames(appID string) (*AppFrames, error) {
	entry, ok := r.store.Get(appID)
	if !ok {
		return nil, ErrAppNotFound
	}
	out := copyAppFrames(entry)
	return &out, nil
}

// Apps returns every registered entry in registration order.
func (r *Registry) Apps() []*AppFrames {
	entries := r.store.All()
	out := make([]*AppFrames, 0, len(entries))
	for _, entry := range entries {
		copied := copyAppFrames(entry)
		out = append(out, &copied)
	}
	return out
}

// AppCount returns the number of registered apps.
func (r *Registry) AppCount() int {
	return r.store.Len()
}

// GetFrame finds a frame by app and frame id. Lookup misses are reported
// as ErrAppNotFound or ErrFrameNotFound; duplicate frame ids resolve to
// the first match in frame order.
func (r *Registry) GetFrame(appID, frameID string) (*Frame, error) {
	entry, ok := r.store.Get(appID)
	if !ok {
		return nil, ErrAppNotFound
	}
	for _, frame := range entry.Frames {
		if frame != nil && frame.ID == frameID {
			return frame, nil
		}
	}
	return nil, ErrFrameNotFound
}

// Subscribe registers a listener for app entry changes. Listeners run
// synchronously after each mutation commits and may safely re-enter the
// registry.
func (r *Registry) Subscribe(listener observe.Listener[*AppFrames]) *observe.Subscription {
	return r.store.Subscribe(listener)
}

func copyAppFrames(entry *AppFrames) AppFrames {
	out := *entry
	out.Frames = append([]*Frame(nil), entry.Frames...)
	return out
}

// emitEvent forwards an operational event to the owning module, when the
// registry is running under one.
func (r *Registry) emitEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.module != nil {
		r.module.emitOperationalEvent(ctx, eventType, data)
	}
}
