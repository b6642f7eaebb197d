package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/logging"
)

// RecoveryTier identifies which fallback level produced the workbench.
type RecoveryTier string

const (
	// TierFull means the stored snapshot loaded and validated, possibly
	// after dropping individual invalid items.
	TierFull RecoveryTier = "full"
	// TierPartial means full restoration failed and tabs were salvaged
	// from the snapshot into a single pane.
	TierPartial RecoveryTier = "partial"
	// TierAutoSave means no snapshot was usable and tabs were rebuilt
	// from auto-saved content alone.
	TierAutoSave RecoveryTier = "autosave"
	// TierDefault means the default workbench was used.
	TierDefault RecoveryTier = "default"
)

// WelcomeTitle is the tab title of the default workbench.
const WelcomeTitle = "Welcome"

// AutoRecoveredSuffix annotates tabs whose content was overridden by a newer
// auto-save record during recovery.
const AutoRecoveredSuffix = " (Auto-recovered)"

// RecoverOutput is the result of session recovery. Workbench is never nil.
type RecoverOutput struct {
	Workbench *entity.Workbench
	// Recovered is true when anything beyond a clean load happened: a
	// backup or lower tier was used, items were dropped during repair, or
	// auto-saved content overrode snapshot content.
	Recovered bool
	Tier      RecoveryTier
	Errors    []*entity.StateError
	Warnings  []string
}

// RecoverSessionUseCase restores the workbench at startup through a chain of
// fallbacks: full snapshot restoration, partial tab salvage, auto-save
// reconstruction, and finally a default workbench. The last tier is
// infallible, so Execute always hands back a usable workbench and never
// propagates a panic.
type RecoverSessionUseCase struct {
	store    repository.SessionStore
	autosave repository.AutoSaveStore
	docs     port.DocumentStore
	idGen    entity.IDGenerator
}

// NewRecoverSessionUseCase creates a new RecoverSessionUseCase.
func NewRecoverSessionUseCase(
	store repository.SessionStore,
	autosave repository.AutoSaveStore,
	docs port.DocumentStore,
	idGen entity.IDGenerator,
) *RecoverSessionUseCase {
	return &RecoverSessionUseCase{store: store, autosave: autosave, docs: docs, idGen: idGen}
}

// Execute runs the recovery chain and returns the workbench to present.
func (uc *RecoverSessionUseCase) Execute(ctx context.Context) *RecoverOutput {
	log := logging.FromContext(ctx)
	out := &RecoverOutput{Tier: TierDefault}

	snap := uc.loadSnapshot(ctx, out)

	// An empty store with no load trouble is only a first run if no
	// auto-saved work is waiting either; the auto-save tier decides below.
	firstRun := snap == nil && len(out.Errors) == 0 && len(out.Warnings) == 0

	if snap != nil {
		if wb, warnings, err := uc.guard(func() (*entity.Workbench, []string, error) {
			return uc.restoreFull(ctx, snap)
		}); err == nil {
			out.Workbench = wb
			out.Tier = TierFull
			out.Warnings = append(out.Warnings, warnings...)
			if len(warnings) > 0 {
				out.Recovered = true
			}
		} else {
			out.Errors = append(out.Errors, entity.NewCorruptionError("full restoration failed", err))
			if wb, warnings, err := uc.guard(func() (*entity.Workbench, []string, error) {
				return uc.salvageTabs(ctx, snap)
			}); err == nil {
				out.Workbench = wb
				out.Tier = TierPartial
				out.Recovered = true
				out.Warnings = append(out.Warnings, warnings...)
			} else {
				out.Errors = append(out.Errors, entity.NewCorruptionError("partial salvage failed", err))
			}
		}
	}

	if out.Workbench == nil {
		if wb, warnings, err := uc.guard(func() (*entity.Workbench, []string, error) {
			return uc.restoreFromAutoSaves(ctx)
		}); err == nil && wb != nil {
			out.Workbench = wb
			out.Tier = TierAutoSave
			out.Recovered = true
			out.Warnings = append(out.Warnings, warnings...)
		}
	}

	if out.Workbench == nil {
		out.Workbench = uc.defaultWorkbench(ctx)
		out.Tier = TierDefault
		if firstRun {
			log.Info().Msg("no stored session, starting with default workbench")
		} else {
			out.Recovered = true
			out.Warnings = append(out.Warnings, "session could not be restored, starting fresh")
		}
	}

	uc.applyAutoSaves(ctx, out, snap)

	log.Info().
		Str("tier", string(out.Tier)).
		Bool("recovered", out.Recovered).
		Int("error_count", len(out.Errors)).
		Int("warning_count", len(out.Warnings)).
		Msg("session recovery complete")
	return out
}

// loadSnapshot loads the stored snapshot, recording load-level errors and
// warnings on out. Returns nil when no snapshot is usable.
func (uc *RecoverSessionUseCase) loadSnapshot(ctx context.Context, out *RecoverOutput) *entity.SessionSnapshot {
	result, err := uc.store.Load(ctx)
	if err != nil {
		if stateErr, ok := err.(*entity.StateError); ok {
			out.Errors = append(out.Errors, stateErr)
		} else {
			out.Errors = append(out.Errors, entity.NewStorageError("load session snapshot", err))
		}
		return nil
	}
	if result == nil {
		return nil
	}
	if result.FromBackup {
		out.Recovered = true
		out.Warnings = append(out.Warnings, "primary snapshot was corrupt, restored from backup")
	}
	if result.Migrated {
		out.Warnings = append(out.Warnings, "snapshot migrated from an older schema version")
	}
	return result.Snapshot
}

// guard runs one recovery tier, converting a panic into an error so the
// chain can continue with the next tier.
func (uc *RecoverSessionUseCase) guard(
	fn func() (*entity.Workbench, []string, error),
) (wb *entity.Workbench, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, warnings = nil, nil
			err = fmt.Errorf("recovery tier panicked: %v", r)
		}
	}()
	return fn()
}

// restoreFull is the first tier: validate and repair the snapshot, then
// rebuild the full tree from it. Repair is idempotent; a valid snapshot
// passes through unchanged with no warnings.
func (uc *RecoverSessionUseCase) restoreFull(ctx context.Context, snap *entity.SessionSnapshot) (*entity.Workbench, []string, error) {
	repaired, warnings := uc.repairSnapshot(snap)

	tree := entity.TreeFromSnapshot(repaired)
	if tree == nil {
		return nil, nil, fmt.Errorf("repaired snapshot produced no tree")
	}
	if problems := entity.Validate(tree); len(problems) > 0 {
		return nil, nil, fmt.Errorf("restored tree invalid: %s", strings.Join(problems, "; "))
	}

	wb := entity.NewWorkbenchFromTree(tree, uc.idGen)
	if repaired.ActivePaneID != "" {
		if node := entity.FindNodeByID(wb.Root, repaired.ActivePaneID); node != nil && node.IsLeaf() {
			wb.ActivePanelID = repaired.ActivePaneID
		}
	}
	uc.rebuildDocuments(ctx, wb, repaired)
	uc.seedHistories(wb)
	return wb, warnings, nil
}

// repairSnapshot enforces referential integrity on a copy of the snapshot,
// dropping invalid items with a warning each. Pane tab references must point
// at stored tabs, layout leaves must point at stored panes, and the active
// pane must exist. A snapshot left with no panes gets a default pane.
func (uc *RecoverSessionUseCase) repairSnapshot(snap *entity.SessionSnapshot) (*entity.SessionSnapshot, []string) {
	var warnings []string

	repaired := *snap
	repaired.Tabs = make(map[string]entity.TabSnapshot, len(snap.Tabs))
	for id, tab := range snap.Tabs {
		if id == "" || tab.ID != id {
			warnings = append(warnings, fmt.Sprintf("dropped tab with inconsistent id %q", id))
			continue
		}
		repaired.Tabs[id] = tab
	}

	repaired.Panes = make(map[string]entity.PaneSnapshot, len(snap.Panes))
	for _, pane := range sortedPanes(snap.Panes) {
		if pane.ID == "" {
			warnings = append(warnings, "dropped pane with empty id")
			continue
		}
		kept := pane
		kept.TabIDs = make([]string, 0, len(pane.TabIDs))
		for _, tabID := range pane.TabIDs {
			if _, ok := repaired.Tabs[tabID]; !ok {
				warnings = append(warnings, fmt.Sprintf("dropped dangling tab reference %q in pane %q", tabID, pane.ID))
				continue
			}
			kept.TabIDs = append(kept.TabIDs, tabID)
		}
		if len(kept.TabIDs) == 0 {
			warnings = append(warnings, fmt.Sprintf("dropped pane %q with no surviving tabs", pane.ID))
			continue
		}
		if !containsString(kept.TabIDs, kept.ActiveTabID) {
			if kept.ActiveTabID != "" {
				warnings = append(warnings, fmt.Sprintf("reset active tab of pane %q", pane.ID))
			}
			kept.ActiveTabID = kept.TabIDs[0]
		}
		repaired.Panes[pane.ID] = kept
	}

	if len(repaired.Panes) == 0 {
		warnings = append(warnings, "no usable panes, synthesized a default pane")
		uc.synthesizeDefaultPane(&repaired)
	}

	var dropped int
	repaired.Layout, dropped = pruneLayout(snap.Layout, repaired.Panes)
	if dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("dropped %d layout nodes referencing missing panes", dropped))
	}
	if repaired.Layout == nil {
		if snap.Layout != nil {
			warnings = append(warnings, "layout unusable, rebuilt from pane map")
		}
		repaired.Layout = entity.LayoutFromPanes(repaired.Panes, uc.idGen)
	}

	// Panes the pruned layout no longer reaches are orphans.
	referenced := make(map[string]bool)
	collectPaneRefs(repaired.Layout, referenced)
	for id := range repaired.Panes {
		if !referenced[id] {
			warnings = append(warnings, fmt.Sprintf("dropped pane %q not referenced by layout", id))
			delete(repaired.Panes, id)
		}
	}

	if _, ok := repaired.Panes[repaired.ActivePaneID]; !ok {
		if repaired.ActivePaneID != "" {
			warnings = append(warnings, "reset active pane")
		}
		repaired.ActivePaneID = firstPaneID(repaired.Layout)
	}

	return &repaired, warnings
}

func (uc *RecoverSessionUseCase) synthesizeDefaultPane(snap *entity.SessionSnapshot) {
	tabID := uc.idGen()
	now := entity.UnixMillis(entity.Now())
	snap.Tabs[tabID] = entity.TabSnapshot{
		ID:         tabID,
		Title:      entity.PlaceholderTitle,
		IsActive:   true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	paneID := uc.idGen()
	snap.Panes[paneID] = entity.PaneSnapshot{
		ID:          paneID,
		TabIDs:      []string{tabID},
		ActiveTabID: tabID,
	}
	snap.Layout = nil
	snap.ActivePaneID = paneID
}

// salvageTabs is the second tier: ignore the layout entirely and collect
// every tab that still has a title into a single pane.
func (uc *RecoverSessionUseCase) salvageTabs(ctx context.Context, snap *entity.SessionSnapshot) (*entity.Workbench, []string, error) {
	ids := make([]string, 0, len(snap.Tabs))
	for id, tab := range snap.Tabs {
		if id == "" || tab.Title == "" {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no salvageable tabs")
	}
	sort.Strings(ids)

	tabs := make([]entity.Tab, 0, len(ids))
	for _, id := range ids {
		ts := snap.Tabs[id]
		tabs = append(tabs, entity.Tab{
			ID:         ts.ID,
			Title:      ts.Title,
			DocumentID: ts.DocumentID,
			IsLocked:   ts.IsLocked,
			FilePath:   ts.FilePath,
			CreatedAt:  ts.CreatedAt.Time(),
			ModifiedAt: ts.ModifiedAt.Time(),
		})
	}
	tabs[0].IsActive = true

	leaf := entity.NewLeaf(uc.idGen(), tabs...)
	wb := entity.NewWorkbenchFromTree(leaf, uc.idGen)
	uc.rebuildDocuments(ctx, wb, snap)
	uc.seedHistories(wb)

	warning := fmt.Sprintf("layout lost, salvaged %d tabs into a single pane", len(tabs))
	return wb, []string{warning}, nil
}

// restoreFromAutoSaves is the third tier: no snapshot survived, but valid
// auto-save records may still hold unsaved work. Each record becomes a tab.
func (uc *RecoverSessionUseCase) restoreFromAutoSaves(ctx context.Context) (*entity.Workbench, []string, error) {
	records, err := uc.autosave.Valid(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read auto-save records: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tabs := make([]entity.Tab, 0, len(ids))
	for _, tabID := range ids {
		record := records[tabID]
		tab := entity.NewTab(tabID, "Recovered "+shortID(tabID), "")
		tab.ModifiedAt = record.Timestamp.Time()
		if uc.docs != nil {
			if docID, err := uc.docs.CreateDocument(ctx, tab.Title, record.Content, ""); err == nil {
				uc.markDirty(ctx, docID, record.Content)
				tab.DocumentID = docID
			}
		}
		tabs = append(tabs, tab)
	}
	tabs[0].IsActive = true

	leaf := entity.NewLeaf(uc.idGen(), tabs...)
	wb := entity.NewWorkbenchFromTree(leaf, uc.idGen)
	uc.seedHistories(wb)

	warning := fmt.Sprintf("rebuilt %d tabs from auto-saved content", len(tabs))
	return wb, []string{warning}, nil
}

// defaultWorkbench is the last tier and cannot fail: one pane, one Welcome
// tab.
func (uc *RecoverSessionUseCase) defaultWorkbench(ctx context.Context) *entity.Workbench {
	wb := entity.NewWorkbench(uc.idGen)
	leaf := entity.FindFirstLeaf(wb.Root)
	tabs := append([]entity.Tab(nil), leaf.Tabs...)
	tabs[0].Title = WelcomeTitle
	if uc.docs != nil {
		if docID, err := uc.docs.CreateDocument(ctx, WelcomeTitle, "", ""); err == nil {
			tabs[0].DocumentID = docID
		}
	}
	wb.Root = entity.UpdateTabsForPanel(wb.Root, leaf.ID, tabs)
	return wb
}

// rebuildDocuments recreates a document for every restored tab from the
// content inlined in the snapshot. A creation failure leaves the tab without
// a document rather than failing the tier.
func (uc *RecoverSessionUseCase) rebuildDocuments(ctx context.Context, wb *entity.Workbench, snap *entity.SessionSnapshot) {
	if uc.docs == nil {
		return
	}
	log := logging.FromContext(ctx)
	for _, leaf := range entity.Leaves(wb.Root) {
		tabs := append([]entity.Tab(nil), leaf.Tabs...)
		changed := false
		for i, tab := range tabs {
			ts, ok := snap.Tabs[tab.ID]
			if !ok {
				continue
			}
			docID, err := uc.docs.CreateDocument(ctx, tab.Title, ts.Content, ts.Language)
			if err != nil {
				log.Warn().Err(err).Str("tab_id", tab.ID).Msg("failed to recreate document for tab")
				continue
			}
			tabs[i].DocumentID = docID
			changed = true
		}
		if changed {
			wb.Root = entity.UpdateTabsForPanel(wb.Root, leaf.ID, tabs)
		}
	}
}

// seedHistories pushes each leaf's active tab onto its history stack so Back
// has a floor right after recovery.
func (uc *RecoverSessionUseCase) seedHistories(wb *entity.Workbench) {
	for _, leaf := range entity.Leaves(wb.Root) {
		if leaf.ActiveTabID != "" {
			wb.History(leaf.ID).Push(leaf.ActiveTabID)
		}
	}
}

// applyAutoSaves is the final cross-check: a valid auto-save record that is
// newer than a restored tab's content and differs from it wins, since it
// captured edits the snapshot never saw. Overridden tabs are annotated.
func (uc *RecoverSessionUseCase) applyAutoSaves(ctx context.Context, out *RecoverOutput, snap *entity.SessionSnapshot) {
	if uc.autosave == nil || out.Tier == TierAutoSave {
		return
	}
	log := logging.FromContext(ctx)
	records, err := uc.autosave.Valid(ctx)
	if err != nil {
		out.Warnings = append(out.Warnings, "auto-save records unreadable, skipping cross-check")
		return
	}
	if len(records) == 0 {
		return
	}

	wb := out.Workbench
	overridden := 0
	for _, leaf := range entity.Leaves(wb.Root) {
		tabs := append([]entity.Tab(nil), leaf.Tabs...)
		changed := false
		for i, tab := range tabs {
			record, ok := records[tab.ID]
			if !ok {
				continue
			}
			baseContent := ""
			baseTime := tab.ModifiedAt
			if snap != nil {
				if ts, ok := snap.Tabs[tab.ID]; ok {
					baseContent = ts.Content
					baseTime = ts.ModifiedAt.Time()
				}
			}
			if record.Content == baseContent || !record.Timestamp.Time().After(baseTime) {
				continue
			}
			if tab.DocumentID != "" && uc.docs != nil {
				if err := uc.docs.UpdateDocumentContent(ctx, tab.DocumentID, record.Content); err != nil {
					log.Warn().Err(err).Str("tab_id", tab.ID).Msg("failed to apply auto-saved content")
					continue
				}
			}
			if !strings.HasSuffix(tabs[i].Title, AutoRecoveredSuffix) {
				tabs[i].Title += AutoRecoveredSuffix
			}
			tabs[i].ModifiedAt = record.Timestamp.Time()
			changed = true
			overridden++
		}
		if changed {
			wb.Root = entity.UpdateTabsForPanel(wb.Root, leaf.ID, tabs)
		}
	}
	if overridden > 0 {
		out.Recovered = true
		out.Warnings = append(out.Warnings, fmt.Sprintf("restored newer auto-saved content for %d tabs", overridden))
	}
}

func (uc *RecoverSessionUseCase) markDirty(ctx context.Context, docID, content string) {
	// CreateDocument stores content clean; rewriting it marks the document
	// dirty, which recovered-from-auto-save documents are.
	_ = uc.docs.UpdateDocumentContent(ctx, docID, content)
}

// pruneLayout removes leaf nodes referencing missing panes and splits left
// without children, returning the pruned tree and how many nodes were
// dropped.
func pruneLayout(layout *entity.LayoutSnapshot, panes map[string]entity.PaneSnapshot) (*entity.LayoutSnapshot, int) {
	if layout == nil {
		return nil, 0
	}
	if layout.Kind == "leaf" {
		if _, ok := panes[layout.PaneID]; !ok {
			return nil, 1
		}
		return layout, 0
	}
	pruned := *layout
	pruned.Children = nil
	dropped := 0
	for _, child := range layout.Children {
		kept, d := pruneLayout(child, panes)
		dropped += d
		if kept != nil {
			pruned.Children = append(pruned.Children, kept)
		}
	}
	switch len(pruned.Children) {
	case 0:
		return nil, dropped + 1
	case 1:
		return pruned.Children[0], dropped
	default:
		return &pruned, dropped
	}
}

func collectPaneRefs(layout *entity.LayoutSnapshot, refs map[string]bool) {
	if layout == nil {
		return
	}
	if layout.Kind == "leaf" {
		refs[layout.PaneID] = true
		return
	}
	for _, child := range layout.Children {
		collectPaneRefs(child, refs)
	}
}

func firstPaneID(layout *entity.LayoutSnapshot) string {
	if layout == nil {
		return ""
	}
	if layout.Kind == "leaf" {
		return layout.PaneID
	}
	for _, child := range layout.Children {
		if id := firstPaneID(child); id != "" {
			return id
		}
	}
	return ""
}

func sortedPanes(panes map[string]entity.PaneSnapshot) []entity.PaneSnapshot {
	ids := make([]string, 0, len(panes))
	for id := range panes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]entity.PaneSnapshot, 0, len(ids))
	for _, id := range ids {
		pane := panes[id]
		if pane.ID == "" {
			pane.ID = id
		}
		out = append(out, pane)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
