package ports

import "context"

// Cache is the process-wide key/value store shared by all sessions.
type Cache interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) (any, bool, error)

	// Put stores a value, replacing any previous one.
	Put(ctx context.Context, key string, value any) error

	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear drops every entry.
	Clear(ctx context.Context) error
}
