package frames

import (
	"context"
	"log/slog"
)

// RegisterNavigator installs the app's navigator handle, silently replacing
// any existing handle for the same app.
func (r *Registry) RegisterNavigator(ctx context.Context, appID string, nav Navigator) error {
	if appID == "" {
		return ErrAppIDEmpty
	}
	if nav == nil {
		return ErrNilNavigator
	}

	r.mu.Lock()
	r.navigators[appID] = nav
	r.mu.Unlock()

	r.emitEvent(ctx, EventTypeNavigatorRegistered, map[string]interface{}{
		"appId": appID,
	})
	return nil
}

// UnregisterNavigator removes the app's navigator handle if present.
func (r *Registry) UnregisterNavigator(ctx context.Context, appID string) {
	r.mu.Lock()
	_, existed := r.navigators[appID]
	delete(r.navigators, appID)
	r.mu.Unlock()

	if !existed {
		return
	}
	r.emitEvent(ctx, EventTypeNavigatorUnregistered, map[string]interface{}{
		"appId": appID,
	})
}

// Navigator returns the app's registered handle.
func (r *Registry) Navigator(appID string) (Navigator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nav, ok := r.navigators[appID]
	return nav, ok
}

// SetNavigationCallback installs the single global navigation observer.
// Setting a new callback replaces the previous one; nil clears it.
func (r *Registry) SetNavigationCallback(callback NavigationCallback) {
	r.mu.Lock()
	r.navCallback = callback
	r.mu.Unlock()
}

// NavigateToFrame resolves the frame and the app's navigator handle and
// performs at most one navigation action: the frame's OnNavigate handler
// when it defines one (the handle may be nil and no default action runs),
// otherwise Reset on the handle with the frame id as the new root. When the
// frame or the required handle is missing, no action runs. The global
// navigation callback, when set, observes the call regardless of outcome.
func (r *Registry) NavigateToFrame(ctx context.Context, appID, frameID string) {
	frame, _ := r.GetFrame(appID, frameID)
	nav, _ := r.Navigator(appID)

	action := "none"
	if frame != nil {
		switch {
		case frame.OnNavigate != nil:
			invokeNavigationHandler(frame, nav)
			action = "handler"
		case nav != nil:
			invokeReset(nav, frameID)
			action = "reset"
		}
	}

	r.mu.RLock()
	callback := r.navCallback
	r.mu.RUnlock()
	if callback != nil {
		invokeNavigationCallback(callback, NavigationEvent{AppID: appID, FrameID: frameID})
	}

	r.emitEvent(ctx, EventTypeFrameNavigated, map[string]interface{}{
		"appId":   appID,
		"frameId": frameID,
		"action":  action,
	})
}

func invokeNavigationHandler(frame *Frame, nav Navigator) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Navigation handler panicked", "frameId", frame.ID, "panic", rec)
		}
	}()
	frame.OnNavigate(nav)
}

func invokeReset(nav Navigator, frameID string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Navigator reset panicked", "frameId", frameID, "panic", rec)
		}
	}()
	nav.Reset(frameID)
}

func invokeNavigationCallback(callback NavigationCallback, event NavigationEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Navigation callback panicked", "appId", event.AppID, "frameId", event.FrameID, "panic", rec)
		}
	}()
	callback(event)
}
