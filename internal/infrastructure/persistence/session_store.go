// Package persistence implements snapshot and auto-save storage over the
// durable key-value port.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/logging"
)

// BackupRingCapacity bounds the rolling ring of prior snapshots kept for
// corruption recovery. FIFO: the oldest entry is evicted first.
const BackupRingCapacity = 3

// SessionStore persists the primary session snapshot and its backup ring.
type SessionStore struct {
	kv       port.KeyValue
	ringSize int
	idGen    entity.IDGenerator
}

var _ repository.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store. ringSize is clamped to
// [1, BackupRingCapacity]; zero selects the default capacity.
func NewSessionStore(kv port.KeyValue, ringSize int, idGen entity.IDGenerator) *SessionStore {
	if ringSize <= 0 || ringSize > BackupRingCapacity {
		ringSize = BackupRingCapacity
	}
	return &SessionStore{kv: kv, ringSize: ringSize, idGen: idGen}
}

// Save persists the snapshot as the new primary, first pushing the previous
// primary onto the backup ring. All failures surface as StateError values;
// a raw storage error never escapes.
func (s *SessionStore) Save(ctx context.Context, snap *entity.SessionSnapshot) error {
	log := logging.FromContext(ctx)
	if snap == nil {
		return entity.NewStorageError("nil snapshot", nil)
	}
	if !port.StorageAvailable(ctx, s.kv) {
		return entity.NewStorageError("storage quota exhausted or unavailable", port.ErrStorageUnavailable)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return entity.NewStorageError("marshal session snapshot", err)
	}

	// Rotate the previous primary into the ring before overwriting so a
	// torn write can never lose the last good snapshot.
	if prev, ok, err := s.kv.Get(ctx, port.KeySessionPrimary); err == nil && ok {
		if err := s.pushBackup(ctx, prev); err != nil {
			log.Warn().Err(err).Msg("failed to rotate snapshot into backup ring")
		}
	}

	if err := s.kv.Set(ctx, port.KeySessionPrimary, data); err != nil {
		return entity.NewStorageError("write session snapshot", err)
	}

	log.Debug().
		Int("tab_count", len(snap.Tabs)).
		Int("pane_count", snap.CountPanes()).
		Msg("session snapshot saved")
	return nil
}

// Load returns the stored session snapshot. A missing primary is the
// first-run case and yields a nil result with no error. A corrupt primary
// falls back to the backup ring, newest first; only when every ring entry is
// also unreadable does Load fail with a corruption StateError. A major
// version mismatch that migration cannot bridge fails with a version
// StateError.
func (s *SessionStore) Load(ctx context.Context) (*repository.SessionLoadResult, error) {
	log := logging.FromContext(ctx)

	raw, ok, err := s.kv.Get(ctx, port.KeySessionPrimary)
	if err != nil {
		return nil, entity.NewStorageError("read session snapshot", err)
	}
	if !ok {
		return nil, nil
	}

	result := &repository.SessionLoadResult{}
	snap, parseErr := parseSnapshot(raw)
	if parseErr != nil {
		log.Warn().Err(parseErr).Msg("primary snapshot unreadable, trying backup ring")
		backup, backupErr := s.newestReadableBackup(ctx)
		if backupErr != nil {
			return nil, entity.NewCorruptionError("session snapshot and all backups unreadable", parseErr)
		}
		snap = backup
		result.FromBackup = true
	}

	if !entity.CompatibleVersion(snap.Version) {
		migrated, changed, migErr := entity.MigrateSnapshot(snap, s.idGen)
		if migErr != nil {
			return nil, entity.NewVersionError(
				fmt.Sprintf("snapshot version %q incompatible with %q", snap.Version, entity.SnapshotVersion),
				migErr)
		}
		snap = migrated
		result.Migrated = changed
	}

	result.Snapshot = snap
	return result, nil
}

// Backups returns the readable snapshots in the ring, newest first.
// Unreadable entries are skipped, not fatal.
func (s *SessionStore) Backups(ctx context.Context) ([]*entity.SessionSnapshot, error) {
	ring, err := s.readRing(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]*entity.SessionSnapshot, 0, len(ring))
	for _, raw := range ring {
		snap, err := parseSnapshot(raw)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("skipping corrupted backup snapshot")
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Clear removes the primary snapshot and the backup ring.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, port.KeySessionPrimary); err != nil {
		return entity.NewStorageError("delete session snapshot", err)
	}
	if err := s.kv.Delete(ctx, port.KeySessionBackups); err != nil {
		return entity.NewStorageError("delete backup ring", err)
	}
	return nil
}

func (s *SessionStore) pushBackup(ctx context.Context, raw []byte) error {
	ring, err := s.readRing(ctx)
	if err != nil {
		// A corrupt ring is abandoned rather than preserved; the fresh
		// entry is worth more than unreadable history.
		ring = nil
	}
	ring = append([]json.RawMessage{raw}, ring...)
	if len(ring) > s.ringSize {
		ring = ring[:s.ringSize]
	}
	data, err := json.Marshal(ring)
	if err != nil {
		return fmt.Errorf("marshal backup ring: %w", err)
	}
	return s.kv.Set(ctx, port.KeySessionBackups, data)
}

func (s *SessionStore) readRing(ctx context.Context) ([]json.RawMessage, error) {
	raw, ok, err := s.kv.Get(ctx, port.KeySessionBackups)
	if err != nil {
		return nil, entity.NewStorageError("read backup ring", err)
	}
	if !ok {
		return nil, nil
	}
	var ring []json.RawMessage
	if err := json.Unmarshal(raw, &ring); err != nil {
		return nil, entity.NewCorruptionError("parse backup ring", err)
	}
	return ring, nil
}

func (s *SessionStore) newestReadableBackup(ctx context.Context) (*entity.SessionSnapshot, error) {
	ring, err := s.readRing(ctx)
	if err != nil {
		return nil, err
	}
	for _, raw := range ring {
		if snap, err := parseSnapshot(raw); err == nil {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("no readable backup in ring")
}

func parseSnapshot(raw []byte) (*entity.SessionSnapshot, error) {
	var snap entity.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse session snapshot: %w", err)
	}
	if snap.Version == "" {
		return nil, fmt.Errorf("snapshot missing version")
	}
	return &snap, nil
}
