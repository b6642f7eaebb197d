package usecase

import (
	"context"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/logging"
)

// SnapshotSessionUseCase captures the workbench into a session snapshot and
// persists it. Document content is resolved through the external store at
// save time so the snapshot is self-contained for recovery.
type SnapshotSessionUseCase struct {
	store repository.SessionStore
	docs  port.DocumentStore
}

// NewSnapshotSessionUseCase creates a new SnapshotSessionUseCase.
func NewSnapshotSessionUseCase(store repository.SessionStore, docs port.DocumentStore) *SnapshotSessionUseCase {
	return &SnapshotSessionUseCase{store: store, docs: docs}
}

// Execute snapshots the workbench and saves it. Failures are StateError
// values; a save that fails because storage is unavailable is recoverable
// and safe to retry.
func (uc *SnapshotSessionUseCase) Execute(ctx context.Context, wb *entity.Workbench) error {
	log := logging.FromContext(ctx)
	if wb == nil {
		return entity.NewStorageError("nil workbench", nil)
	}

	snap := entity.SnapshotFromWorkbench(wb, uc.resolver(ctx))

	log.Debug().
		Int("tab_count", len(snap.Tabs)).
		Int("pane_count", snap.CountPanes()).
		Msg("creating session snapshot")

	return uc.store.Save(ctx, snap)
}

func (uc *SnapshotSessionUseCase) resolver(ctx context.Context) entity.ContentResolver {
	if uc.docs == nil {
		return nil
	}
	return func(documentID string) (string, string, bool) {
		doc, err := uc.docs.GetDocument(ctx, documentID)
		if err != nil || doc == nil {
			return "", "", false
		}
		return doc.Content, doc.Language, true
	}
}
