// Package port defines the interfaces the application layer expects from
// infrastructure collaborators.
package port

import (
	"context"
	"errors"
)

// Well-known storage keys. Persistence, recovery and auto-save share one
// durable key-value store and stay collision-free by key.
const (
	KeySessionPrimary = "session:primary"
	KeySessionBackups = "session:backups"
	KeyAutoSave       = "autosave"
)

// ErrStorageUnavailable is returned when the durable store cannot accept
// writes (quota exhausted, backend missing). Callers degrade to warnings
// rather than crash.
var ErrStorageUnavailable = errors.New("durable storage unavailable")

// KeyValue is the durable key-value storage the workbench persists into.
// Implementations must treat writes as fallible and report usage so callers
// can check availability before relying on saves succeeding.
type KeyValue interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Usage returns current usage and quota in bytes. A quota of zero
	// means unbounded.
	Usage(ctx context.Context) (used, quota int64, err error)
}

// StorageAvailable reports whether the store can be relied on for writes:
// reachable and, when a quota is set, below it.
func StorageAvailable(ctx context.Context, kv KeyValue) bool {
	used, quota, err := kv.Usage(ctx)
	if err != nil {
		return false
	}
	return quota <= 0 || used < quota
}
