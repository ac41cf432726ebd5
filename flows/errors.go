package flows

import (
	"errors"
)

// Error definitions
var (
	// ErrNilFlow is returned when a nil flow definition is registered
	ErrNilFlow = errors.New("flow cannot be nil")

	// ErrFlowIDEmpty is returned when a flow is defined without an id
	ErrFlowIDEmpty = errors.New("flow id cannot be empty")

	// ErrFlowNotFound is returned when looking up an unknown flow
	ErrFlowNotFound = errors.New("flow not found")

	// ErrKeyNotFound is returned by backends when no record exists for a key
	ErrKeyNotFound = errors.New("progress record not found")

	// ErrNotConnected is returned when an operation is attempted on a backend that is not connected
	ErrNotConnected = errors.New("progress backend not connected")

	// ErrCorruptRecord wraps parse failures of persisted progress records
	ErrCorruptRecord = errors.New("corrupt progress record")

	// ErrFilePathRequired is returned when the file engine is selected without a file path
	ErrFilePathRequired = errors.New("file engine requires a file path")

	// ErrRedisURLRequired is returned when the redis engine is selected without a connection URL
	ErrRedisURLRequired = errors.New("redis engine requires a connection URL")

	// ErrNoSubjectForEventEmission is returned when trying to emit events without a subject
	ErrNoSubjectForEventEmission = errors.New("no subject available for event emission")
)
