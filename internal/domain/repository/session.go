// Package repository defines persistence interfaces for domain entities.
package repository

import (
	"context"

	"github.com/tessera-ide/tessera/internal/domain/entity"
)

// SessionLoadResult is the outcome of loading a session snapshot.
type SessionLoadResult struct {
	Snapshot   *entity.SessionSnapshot
	FromBackup bool // the primary was corrupt and a ring entry was used
	Migrated   bool // the stored schema needed a major-version migration
}

// SessionStore persists the primary session snapshot and its backup ring.
type SessionStore interface {
	// Save persists the snapshot as the new primary, rotating the previous
	// primary into the backup ring first.
	Save(ctx context.Context, snap *entity.SessionSnapshot) error

	// Load returns the stored snapshot. Nil result with nil error is the
	// first-run case. Failures are StateError values, never raw errors.
	Load(ctx context.Context) (*SessionLoadResult, error)

	// Backups returns readable ring snapshots, newest first.
	Backups(ctx context.Context) ([]*entity.SessionSnapshot, error)

	// Clear removes the primary snapshot and the ring.
	Clear(ctx context.Context) error
}

// AutoSaveStore persists the per-tab auto-save map, independent of the full
// session snapshot.
type AutoSaveStore interface {
	// Save writes the auto-saved content for a tab.
	Save(ctx context.Context, tabID, content string) error

	// Delete removes a tab's record.
	Delete(ctx context.Context, tabID string) error

	// All returns every record regardless of age.
	All(ctx context.Context) (map[string]entity.AutoSaveRecord, error)

	// Valid returns only records within the read-validity window.
	Valid(ctx context.Context) (map[string]entity.AutoSaveRecord, error)

	// Prune deletes records past the retention window, returning the count.
	Prune(ctx context.Context) (int, error)

	// Clear removes the whole map.
	Clear(ctx context.Context) error
}
