package frames

import "errors"

// Registry errors
var (
	ErrAppIDEmpty    = errors.New("app id cannot be empty")
	ErrAppNotFound   = errors.New("app not found")
	ErrFrameNotFound = errors.New("frame not found")
	ErrNilNavigator  = errors.New("navigator cannot be nil")
)

// Event observation errors
var (
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)
