package flows

// Event type constants for flows module events.
// Following CloudEvents specification with reverse domain notation.
const (
	// Flow definition events
	EventTypeFlowDefined = "com.appshell.flows.flow.defined"
	EventTypeFlowRemoved = "com.appshell.flows.flow.removed"

	// Progress events
	EventTypeStepToggled   = "com.appshell.flows.step.toggled"
	EventTypeTaskToggled   = "com.appshell.flows.task.toggled"
	EventTypeProgressReset = "com.appshell.flows.progress.reset"
	EventTypePersistFailed = "com.appshell.flows.persist.failed"

	// Backend lifecycle events
	EventTypeBackendConnected = "com.appshell.flows.backend.connected"
	EventTypeBackendDegraded  = "com.appshell.flows.backend.degraded"
)
