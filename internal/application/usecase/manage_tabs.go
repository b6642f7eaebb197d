package usecase

import (
	"context"
	"fmt"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/logging"
)

// ManageTabsUseCase is the tab/history controller: activation bookkeeping,
// back/forward navigation, close policy, and document opening. Each keyboard
// shortcut on the workbench surface maps to exactly one method here.
type ManageTabsUseCase struct {
	panels *ManagePanelsUseCase
	docs   port.DocumentStore
	idGen  entity.IDGenerator
}

// NewManageTabsUseCase creates a new tab management use case.
func NewManageTabsUseCase(panels *ManagePanelsUseCase, docs port.DocumentStore, idGen entity.IDGenerator) *ManageTabsUseCase {
	return &ManageTabsUseCase{panels: panels, docs: docs, idGen: idGen}
}

// Activate makes the named tab the single active tab of its panel, pushes it
// onto the panel's history stack and records the panel as most recently
// active.
func (uc *ManageTabsUseCase) Activate(ctx context.Context, wb *entity.Workbench, panelID, tabID string) error {
	leaf := entity.FindNodeByID(wb.Root, panelID)
	if leaf == nil || !leaf.IsLeaf() {
		return fmt.Errorf("panel %s not found", panelID)
	}
	tabs, ok := entity.ActivateTab(leaf.Tabs, tabID)
	if !ok {
		return fmt.Errorf("tab %s not found in panel %s", tabID, panelID)
	}

	wb.Root = entity.UpdateTabsForPanel(wb.Root, panelID, tabs)
	wb.ActivePanelID = panelID
	wb.History(panelID).Push(tabID)

	logging.FromContext(ctx).Debug().
		Str("panel_id", panelID).
		Str("tab_id", tabID).
		Msg("tab activated")
	return nil
}

// GoBack moves the panel's history cursor one entry back and reactivates the
// tab there. An entry for a tab that no longer exists is dropped from the
// stack and the activation stays put. A cursor at the start of the stack is a
// no-op, not an error.
func (uc *ManageTabsUseCase) GoBack(ctx context.Context, wb *entity.Workbench, panelID string) error {
	return uc.navigateHistory(ctx, wb, panelID, func(h *entity.TabHistory) (string, bool) { return h.Back() })
}

// GoForward is the inverse of GoBack; a cursor at the end is a no-op.
func (uc *ManageTabsUseCase) GoForward(ctx context.Context, wb *entity.Workbench, panelID string) error {
	return uc.navigateHistory(ctx, wb, panelID, func(h *entity.TabHistory) (string, bool) { return h.Forward() })
}

func (uc *ManageTabsUseCase) navigateHistory(ctx context.Context, wb *entity.Workbench, panelID string, step func(*entity.TabHistory) (string, bool)) error {
	leaf := entity.FindNodeByID(wb.Root, panelID)
	if leaf == nil || !leaf.IsLeaf() {
		return fmt.Errorf("panel %s not found", panelID)
	}
	tabID, moved := step(wb.History(panelID))
	if !moved {
		return nil
	}
	tabs, ok := entity.ActivateTab(leaf.Tabs, tabID)
	if !ok {
		// Stale history entry; drop it and stay put.
		wb.History(panelID).Remove(tabID)
		return nil
	}
	wb.Root = entity.UpdateTabsForPanel(wb.Root, panelID, tabs)
	wb.ActivePanelID = panelID

	logging.FromContext(ctx).Debug().
		Str("panel_id", panelID).
		Str("tab_id", tabID).
		Msg("history navigation")
	return nil
}

// Close removes the tab from its panel. When the closed tab was active, the
// tab now at the same index (or the new last tab) becomes active. A leaf
// emptied by the close is repopulated with a placeholder when it is the only
// leaf, and removed from the tree otherwise. The tab's document is not
// destroyed.
func (uc *ManageTabsUseCase) Close(ctx context.Context, wb *entity.Workbench, panelID, tabID string) error {
	log := logging.FromContext(logging.WithTabID(logging.WithPanelID(ctx, panelID), tabID))
	leaf := entity.FindNodeByID(wb.Root, panelID)
	if leaf == nil || !leaf.IsLeaf() {
		return fmt.Errorf("panel %s not found", panelID)
	}
	remaining, removedIdx, wasActive := entity.RemoveTab(leaf.Tabs, tabID)
	if removedIdx < 0 {
		return fmt.Errorf("tab %s not found in panel %s", tabID, panelID)
	}
	wb.History(panelID).Remove(tabID)

	if len(remaining) == 0 {
		if entity.CountLeaves(wb.Root) <= 1 {
			// The root/only leaf is repopulated rather than deleted.
			placeholder := wb.PlaceholderTab()
			wb.Root = entity.UpdateTabsForPanel(wb.Root, panelID, []entity.Tab{placeholder})
			wb.History(panelID).Push(placeholder.ID)
			log.Debug().Msg("last tab closed, placeholder created")
			return nil
		}
		return uc.panels.Close(ctx, wb, panelID)
	}

	if wasActive {
		idx := removedIdx
		if idx >= len(remaining) {
			idx = len(remaining) - 1
		}
		remaining, _ = entity.ActivateTab(remaining, remaining[idx].ID)
		wb.History(panelID).Push(remaining[idx].ID)
	}
	wb.Root = entity.UpdateTabsForPanel(wb.Root, panelID, remaining)

	log.Debug().
		Int("remaining_tabs", len(remaining)).
		Msg("tab closed")
	return nil
}

// OpenDocument creates a document in the external store and opens it as a
// new active tab in the most-recently-active panel, falling back to the
// first leaf in pre-order when none is recorded.
func (uc *ManageTabsUseCase) OpenDocument(ctx context.Context, wb *entity.Workbench, name, content, language string) (entity.Tab, error) {
	docID, err := uc.docs.CreateDocument(ctx, name, content, language)
	if err != nil {
		return entity.Tab{}, fmt.Errorf("create document: %w", err)
	}
	return uc.OpenExisting(ctx, wb, name, docID)
}

// OpenExisting opens a tab for a document already in the store.
func (uc *ManageTabsUseCase) OpenExisting(ctx context.Context, wb *entity.Workbench, title, documentID string) (entity.Tab, error) {
	leaf := wb.TargetLeaf()
	if leaf == nil {
		return entity.Tab{}, fmt.Errorf("workbench has no leaf panel")
	}

	tab := entity.NewTab(uc.idGen(), title, documentID)
	tab.IsActive = true
	tabs := append(append([]entity.Tab(nil), leaf.Tabs...), tab)
	tabs, _ = entity.ActivateTab(tabs, tab.ID)

	wb.Root = entity.UpdateTabsForPanel(wb.Root, leaf.ID, tabs)
	wb.ActivePanelID = leaf.ID
	wb.History(leaf.ID).Push(tab.ID)

	logging.FromContext(ctx).Debug().
		Str("panel_id", leaf.ID).
		Str("tab_id", tab.ID).
		Str("document_id", documentID).
		Msg("document opened")
	return tab, nil
}

// MoveTabToPanel detaches a tab from its source panel and inserts it into
// the destination panel at index (negative appends). This is the reorder and
// merge translation of a drop; moving within one panel reorders in place.
func (uc *ManageTabsUseCase) MoveTabToPanel(ctx context.Context, wb *entity.Workbench, srcPanelID, tabID, dstPanelID string, index int) error {
	log := logging.FromContext(ctx)
	src := entity.FindNodeByID(wb.Root, srcPanelID)
	if src == nil || !src.IsLeaf() {
		return fmt.Errorf("panel %s not found", srcPanelID)
	}

	if srcPanelID == dstPanelID {
		tabs, ok := entity.MoveTab(src.Tabs, tabID, index)
		if !ok {
			return fmt.Errorf("tab %s not found in panel %s", tabID, srcPanelID)
		}
		wb.Root = entity.UpdateTabsForPanel(wb.Root, srcPanelID, tabs)
		log.Debug().Str("tab_id", tabID).Int("index", index).Msg("tab reordered")
		return nil
	}

	dst := entity.FindNodeByID(wb.Root, dstPanelID)
	if dst == nil || !dst.IsLeaf() {
		return fmt.Errorf("panel %s not found", dstPanelID)
	}
	moved, ok := findTab(src.Tabs, tabID)
	if !ok {
		return fmt.Errorf("tab %s not found in panel %s", tabID, srcPanelID)
	}

	remaining, _, _ := entity.RemoveTab(src.Tabs, tabID)
	wb.History(srcPanelID).Remove(tabID)

	moved.IsActive = true
	dstTabs := append([]entity.Tab(nil), dst.Tabs...)
	if index < 0 || index > len(dstTabs) {
		index = len(dstTabs)
	}
	dstTabs = append(dstTabs[:index], append([]entity.Tab{moved}, dstTabs[index:]...)...)
	dstTabs, _ = entity.ActivateTab(dstTabs, tabID)

	// Insert on the destination first so the transient empty source leaf
	// never becomes observable.
	wb.Root = entity.UpdateTabsForPanel(wb.Root, dstPanelID, dstTabs)
	wb.ActivePanelID = dstPanelID
	wb.History(dstPanelID).Push(tabID)

	if len(remaining) == 0 {
		if entity.CountLeaves(wb.Root) > 1 {
			if err := uc.panels.Close(ctx, wb, srcPanelID); err != nil {
				return err
			}
			wb.ActivePanelID = dstPanelID
		} else {
			placeholder := wb.PlaceholderTab()
			wb.Root = entity.UpdateTabsForPanel(wb.Root, srcPanelID, []entity.Tab{placeholder})
		}
	} else {
		wb.Root = entity.UpdateTabsForPanel(wb.Root, srcPanelID, entity.NormalizeActive(remaining))
	}

	log.Debug().
		Str("tab_id", tabID).
		Str("src_panel", srcPanelID).
		Str("dst_panel", dstPanelID).
		Int("index", index).
		Msg("tab moved between panels")
	return nil
}

// NextTab activates the tab after the current one in the panel, wrapping.
func (uc *ManageTabsUseCase) NextTab(ctx context.Context, wb *entity.Workbench, panelID string) error {
	return uc.stepTab(ctx, wb, panelID, 1)
}

// PrevTab activates the tab before the current one in the panel, wrapping.
func (uc *ManageTabsUseCase) PrevTab(ctx context.Context, wb *entity.Workbench, panelID string) error {
	return uc.stepTab(ctx, wb, panelID, -1)
}

// SelectTabByNumber activates the 1-based nth tab of the panel. Out-of-range
// numbers are a no-op.
func (uc *ManageTabsUseCase) SelectTabByNumber(ctx context.Context, wb *entity.Workbench, panelID string, number int) error {
	leaf := entity.FindNodeByID(wb.Root, panelID)
	if leaf == nil || !leaf.IsLeaf() {
		return fmt.Errorf("panel %s not found", panelID)
	}
	if number < 1 || number > len(leaf.Tabs) {
		return nil
	}
	return uc.Activate(ctx, wb, panelID, leaf.Tabs[number-1].ID)
}

func (uc *ManageTabsUseCase) stepTab(ctx context.Context, wb *entity.Workbench, panelID string, delta int) error {
	leaf := entity.FindNodeByID(wb.Root, panelID)
	if leaf == nil || !leaf.IsLeaf() {
		return fmt.Errorf("panel %s not found", panelID)
	}
	if len(leaf.Tabs) < 2 {
		return nil
	}
	current := 0
	for i, tab := range leaf.Tabs {
		if tab.IsActive {
			current = i
			break
		}
	}
	next := (current + delta + len(leaf.Tabs)) % len(leaf.Tabs)
	return uc.Activate(ctx, wb, panelID, leaf.Tabs[next].ID)
}

func findTab(tabs []entity.Tab, tabID string) (entity.Tab, bool) {
	for _, tab := range tabs {
		if tab.ID == tabID {
			return tab, true
		}
	}
	return entity.Tab{}, false
}
