package flows

import "context"

// ProgressBackend is the durable key-value contract behind the progress
// store. Backends report failures as explicit errors and never panic; the
// progress store decides which failures surface to its callers (none do:
// reads degrade to empty and writes are logged and discarded).
type ProgressBackend interface {
	// Connect prepares the backend for use.
	Connect(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error

	// Get returns the serialized record stored under key.
	// A missing key is reported as ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the serialized record under key, replacing any prior
	// value.
	Set(ctx context.Context, key, value string) error
}
