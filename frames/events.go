package frames

// Event type constants for frames module events.
// Following CloudEvents specification with reverse domain notation.
const (
	// App frame registration events
	EventTypeAppRegistered   = "com.appshell.frames.app.registered"
	EventTypeAppUnregistered = "com.appshell.frames.app.unregistered"

	// Navigator handle events
	EventTypeNavigatorRegistered   = "com.appshell.frames.navigator.registered"
	EventTypeNavigatorUnregistered = "com.appshell.frames.navigator.unregistered"

	// Navigation events
	EventTypeFrameNavigated = "com.appshell.frames.frame.navigated"
)
