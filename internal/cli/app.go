// Package cli wires application dependencies for the command-line interface.
package cli

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/application/usecase"
	"github.com/tessera-ide/tessera/internal/bootstrap"
	"github.com/tessera-ide/tessera/internal/domain/build"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/infrastructure/autosave"
	"github.com/tessera-ide/tessera/internal/infrastructure/config"
	"github.com/tessera-ide/tessera/internal/infrastructure/documents"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence/sqlite"
	"github.com/tessera-ide/tessera/internal/infrastructure/snapshot"
	"github.com/tessera-ide/tessera/internal/logging"
)

// App holds CLI dependencies.
type App struct {
	Config    *config.Config
	BuildInfo build.Info

	Sessions repository.SessionStore
	AutoSave repository.AutoSaveStore
	Docs     port.DocumentStore

	PanelsUC   *usecase.ManagePanelsUseCase
	TabsUC     *usecase.ManageTabsUseCase
	SnapshotUC *usecase.SnapshotSessionUseCase
	RecoverUC  *usecase.RecoverSessionUseCase

	DragDrop *usecase.DragDropCoordinator

	// Scheduler is nil when auto-save is disabled in the configuration.
	Scheduler *autosave.Scheduler
	Snapshots *snapshot.Service

	mu        sync.RWMutex
	workbench *entity.Workbench

	kv  *sqlite.KV
	ctx context.Context
}

// NewApp creates a new CLI application with all dependencies.
func NewApp() (*App, error) {
	// A quiet env-driven logger until config decides the real one.
	ctx := logging.WithContext(context.Background(), logging.NewFromEnv())

	boot, err := bootstrap.Run(ctx)
	if err != nil {
		return nil, err
	}
	cfg := boot.Config
	kv := boot.KV

	logger := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		TimeFormat: "15:04:05",
	})
	ctx = logging.WithContext(context.Background(), logger)

	idGen := entity.IDGenerator(uuid.NewString)
	sessions := persistence.NewSessionStore(kv, cfg.Session.BackupRingSize, idGen)
	autoSaves := persistence.NewAutoSaveStore(kv)
	docs := documents.NewStore()

	panelsUC := usecase.NewManagePanelsUseCase(idGen)

	app := &App{
		Config:     cfg,
		Sessions:   sessions,
		AutoSave:   autoSaves,
		Docs:       docs,
		PanelsUC:   panelsUC,
		TabsUC:     usecase.NewManageTabsUseCase(panelsUC, docs, idGen),
		SnapshotUC: usecase.NewSnapshotSessionUseCase(sessions, docs),
		RecoverUC:  usecase.NewRecoverSessionUseCase(sessions, autoSaves, docs, idGen),
		DragDrop:   usecase.NewDragDropCoordinatorWithThreshold(cfg.DragDrop.EdgeThresholdPx),
		kv:         kv,
		ctx:        ctx,
	}

	app.Snapshots = snapshot.NewService(app.SnapshotUC.Execute, cfg.Session.SnapshotDebounceMs)
	app.Snapshots.Start(logging.WithComponent(ctx, "snapshot"))

	if cfg.AutoSave.Enabled {
		app.Scheduler = autosave.NewScheduler(autoSaves, app.tabContent, cfg.AutoSave.DelayMs, nil)
		app.Scheduler.Start(logging.WithComponent(ctx, "autosave"))
	}

	return app, nil
}

// Ctx returns the application context carrying the logger.
func (a *App) Ctx() context.Context { return a.ctx }

// SetWorkbench publishes the live workbench so the auto-save scheduler can
// resolve tab content.
func (a *App) SetWorkbench(wb *entity.Workbench) {
	a.mu.Lock()
	a.workbench = wb
	a.mu.Unlock()
}

// Workbench returns the published workbench, nil before any session is
// restored.
func (a *App) Workbench() *entity.Workbench {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.workbench
}

// tabContent resolves a tab to its current document content for the auto-save
// scheduler. Tabs without a published workbench or a document are skipped.
func (a *App) tabContent(tabID string) (string, bool) {
	wb := a.Workbench()
	if wb == nil {
		return "", false
	}
	for _, leaf := range entity.Leaves(wb.Root) {
		for _, tab := range leaf.Tabs {
			if tab.ID != tabID {
				continue
			}
			if tab.DocumentID == "" {
				return "", false
			}
			doc, err := a.Docs.GetDocument(a.ctx, tab.DocumentID)
			if err != nil || doc == nil {
				return "", false
			}
			return doc.Content, true
		}
	}
	return "", false
}

// PurgeAll clears the session snapshot, its backup ring, and every auto-save
// record.
func (a *App) PurgeAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Sessions.Clear(ctx) })
	g.Go(func() error { return a.AutoSave.Clear(ctx) })
	return g.Wait()
}

// Close releases held resources, flushing pending snapshot and auto-save
// writes first.
func (a *App) Close() error {
	if a.Snapshots != nil {
		a.Snapshots.Stop(a.ctx)
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop(a.ctx)
	}
	if a.kv != nil {
		return a.kv.Close()
	}
	return nil
}
