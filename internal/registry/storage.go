package registry

import "context"

// Storage is the key/value provider the registry persists through.
// The host picks the implementation (redis, memory, ...).
type Storage interface {
	// Get returns the value stored under key, or nil with no error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// DefaultKey is the well-known key the source collection is stored under.
const DefaultKey = "sources"
