// Package dbinterfaces provides shared storage interface definitions.
package dbinterfaces

import (
	"context"
	"io"
)

// Database defines the common interface for database operations
type Database interface {
	io.Closer // Close() error
}

// KeyValueStore is a flat string namespace. There is no transaction across keys;
// callers writing multi-key records must tolerate partial writes.
type KeyValueStore interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// StatsProvider defines the interface for stores that provide statistics
type StatsProvider interface {
	GetStats() (map[string]any, error)
}
