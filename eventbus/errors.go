package eventbus

import "errors"

var (
	// Subscription errors
	ErrNilHandler     = errors.New("event handler cannot be nil")
	ErrEmptyHandlerID = errors.New("event handler id cannot be empty")

	// Configuration errors
	ErrInvalidMaxHistory = errors.New("maxHistory cannot be negative")

	// Event emission errors
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)
