package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/logging"
)

// Auto-save retention policy. Records older than ReadValidity are ignored by
// recovery but still stored; records older than Retention are physically
// deleted by the prune sweep.
const (
	ReadValidity = 24 * time.Hour
	Retention    = 7 * 24 * time.Hour
)

// AutoSaveStore persists the per-tab auto-save map, independent of the full
// session snapshot. Writers target disjoint tab keys; last write wins.
type AutoSaveStore struct {
	kv  port.KeyValue
	now func() time.Time
}

var _ repository.AutoSaveStore = (*AutoSaveStore)(nil)

// NewAutoSaveStore creates an auto-save store.
func NewAutoSaveStore(kv port.KeyValue) *AutoSaveStore {
	return &AutoSaveStore{kv: kv, now: entity.Now}
}

// Save writes the auto-saved content for a tab with the current timestamp.
func (s *AutoSaveStore) Save(ctx context.Context, tabID, content string) error {
	records, err := s.load(ctx)
	if err != nil {
		// A corrupt map is replaced; auto-save must keep accepting writes.
		logging.FromContext(ctx).Warn().Err(err).Msg("auto-save map unreadable, starting fresh")
		records = make(map[string]entity.AutoSaveRecord)
	}
	records[tabID] = entity.AutoSaveRecord{
		Content:   content,
		Timestamp: entity.UnixMillis(s.now().UTC().Truncate(time.Millisecond)),
	}
	return s.write(ctx, records)
}

// Delete removes a tab's auto-save record, if any.
func (s *AutoSaveStore) Delete(ctx context.Context, tabID string) error {
	records, err := s.load(ctx)
	if err != nil || len(records) == 0 {
		return err
	}
	if _, ok := records[tabID]; !ok {
		return nil
	}
	delete(records, tabID)
	return s.write(ctx, records)
}

// All returns every stored record, regardless of age.
func (s *AutoSaveStore) All(ctx context.Context) (map[string]entity.AutoSaveRecord, error) {
	return s.load(ctx)
}

// Valid returns only records within the read-validity window. Recovery
// consults these; older records are stale and ignored until pruned.
func (s *AutoSaveStore) Valid(ctx context.Context) (map[string]entity.AutoSaveRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-ReadValidity)
	valid := make(map[string]entity.AutoSaveRecord, len(records))
	for tabID, record := range records {
		if record.Timestamp.Time().After(cutoff) {
			valid[tabID] = record
		}
	}
	return valid, nil
}

// Prune physically deletes records older than the retention window and
// returns how many were removed.
func (s *AutoSaveStore) Prune(ctx context.Context) (int, error) {
	records, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-Retention)
	removed := 0
	for tabID, record := range records {
		if !record.Timestamp.Time().After(cutoff) {
			delete(records, tabID)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(ctx, records); err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Debug().Int("removed", removed).Msg("pruned expired auto-save records")
	return removed, nil
}

// Clear removes the whole auto-save map.
func (s *AutoSaveStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, port.KeyAutoSave); err != nil {
		return entity.NewStorageError("delete auto-save map", err)
	}
	return nil
}

func (s *AutoSaveStore) load(ctx context.Context) (map[string]entity.AutoSaveRecord, error) {
	raw, ok, err := s.kv.Get(ctx, port.KeyAutoSave)
	if err != nil {
		return nil, entity.NewStorageError("read auto-save map", err)
	}
	if !ok {
		return make(map[string]entity.AutoSaveRecord), nil
	}
	var records map[string]entity.AutoSaveRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, entity.NewCorruptionError("parse auto-save map", err)
	}
	if records == nil {
		records = make(map[string]entity.AutoSaveRecord)
	}
	return records, nil
}

func (s *AutoSaveStore) write(ctx context.Context, records map[string]entity.AutoSaveRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return entity.NewStorageError("marshal auto-save map", err)
	}
	if err := s.kv.Set(ctx, port.KeyAutoSave, data); err != nil {
		return entity.NewStorageError("write auto-save map", err)
	}
	return nil
}
