package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence/memory"
)

func testIDGen() entity.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testSnapshot(marker string) *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		Version:   entity.SnapshotVersion,
		Timestamp: entity.UnixMillis(entity.Now()),
		Tabs: map[string]entity.TabSnapshot{
			"t1": {ID: "t1", Title: "tab", IsActive: true},
		},
		Panes: map[string]entity.PaneSnapshot{
			marker: {ID: marker, TabIDs: []string{"t1"}, ActiveTabID: "t1"},
		},
		Layout:       &entity.LayoutSnapshot{ID: marker, Kind: "leaf", PaneID: marker},
		ActivePaneID: marker,
	}
}

func TestSessionStoreFirstRun(t *testing.T) {
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	result, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSessionStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	require.NoError(t, store.Save(ctx, testSnapshot("p1")))

	result, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.FromBackup)
	assert.False(t, result.Migrated)
	assert.Equal(t, "p1", result.Snapshot.ActivePaneID)
}

func TestSessionStoreRotatesBackups(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Save(ctx, testSnapshot(fmt.Sprintf("p%d", i))))
	}

	backups, err := store.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, BackupRingCapacity)
	// Newest first; the freshest primary (p5) is not in the ring.
	assert.Equal(t, "p4", backups[0].ActivePaneID)
	assert.Equal(t, "p3", backups[1].ActivePaneID)
	assert.Equal(t, "p2", backups[2].ActivePaneID)
}

func TestSessionStoreCorruptPrimaryFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	store := NewSessionStore(kv, 0, testIDGen())

	require.NoError(t, store.Save(ctx, testSnapshot("good")))
	require.NoError(t, store.Save(ctx, testSnapshot("newer")))
	require.NoError(t, kv.Set(ctx, port.KeySessionPrimary, []byte("{corrupt")))

	result, err := store.Load(ctx)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.FromBackup)
	assert.Equal(t, "good", result.Snapshot.ActivePaneID)
}

func TestSessionStoreCorruptEverywhereIsCorruptionError(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	store := NewSessionStore(kv, 0, testIDGen())

	require.NoError(t, kv.Set(ctx, port.KeySessionPrimary, []byte("{corrupt")))

	_, err := store.Load(ctx)

	var stateErr *entity.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.ErrorKindCorruption, stateErr.Kind)
	assert.False(t, stateErr.Recoverable)
}

func TestSessionStoreMigratesOldMajorVersion(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	old := testSnapshot("p1")
	old.Version = "1.0.0"
	old.Layout = nil
	require.NoError(t, store.Save(ctx, old))

	result, err := store.Load(ctx)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Migrated)
	assert.Equal(t, entity.SnapshotVersion, result.Snapshot.Version)
	require.NotNil(t, result.Snapshot.Layout)
}

func TestSessionStoreUnsupportedVersionIsVersionError(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	future := testSnapshot("p1")
	future.Version = "9.0.0"
	require.NoError(t, store.Save(ctx, future))

	_, err := store.Load(ctx)

	var stateErr *entity.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.ErrorKindVersion, stateErr.Kind)
}

func TestSessionStoreQuotaExhaustedIsRecoverableStorageError(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(10)
	require.NoError(t, kv.Set(ctx, "filler", make([]byte, 64)))
	store := NewSessionStore(kv, 0, testIDGen())

	err := store.Save(ctx, testSnapshot("p1"))

	var stateErr *entity.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, entity.ErrorKindStorage, stateErr.Kind)
	assert.True(t, stateErr.Recoverable)
}

func TestSessionStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(memory.New(0), 0, testIDGen())

	require.NoError(t, store.Save(ctx, testSnapshot("p1")))
	require.NoError(t, store.Save(ctx, testSnapshot("p2")))
	require.NoError(t, store.Clear(ctx))

	result, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, result)

	backups, err := store.Backups(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestSessionStoreSkipsCorruptBackupEntries(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	store := NewSessionStore(kv, 0, testIDGen())

	require.NoError(t, store.Save(ctx, testSnapshot("p1")))
	require.NoError(t, store.Save(ctx, testSnapshot("p2")))
	require.NoError(t, kv.Set(ctx, port.KeySessionBackups, []byte(`[{"bad": true}, "not even an object"]`)))

	backups, err := store.Backups(ctx)

	require.NoError(t, err)
	assert.Empty(t, backups)
}
