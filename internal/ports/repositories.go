package ports

import (
	"context"
)

// KeyValueStore is the durable string key-value storage behind every
// persisted scalar and the catalog blob.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set fully overwrites the value for key before returning.
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// StatsReporter is implemented by stores backed by a connection pool.
type StatsReporter interface {
	Stats() map[string]interface{}
}
