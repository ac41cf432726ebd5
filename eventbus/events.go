package eventbus

// Event type constants for eventbus module events.
// Following CloudEvents specification reverse domain notation.
const (
	// Dispatch events
	EventTypeEventDispatched = "com.appshell.eventbus.event.dispatched"

	// Subscription events
	EventTypeSubscriptionCreated = "com.appshell.eventbus.subscription.created"
	EventTypeSubscriptionRemoved = "com.appshell.eventbus.subscription.removed"

	// History events
	EventTypeHistoryCleared = "com.appshell.eventbus.history.cleared"

	// Configuration events
	EventTypeConfigLoaded = "com.appshell.eventbus.config.loaded"
)
