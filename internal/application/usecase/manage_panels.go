// Package usecase contains the workbench operations composed from domain
// entities and ports.
package usecase

import (
	"context"
	"fmt"

	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/logging"
)

// ManagePanelsUseCase handles panel tree operations. All tree mutations go
// through the pure transforms and replace the workbench root atomically.
type ManagePanelsUseCase struct {
	idGen entity.IDGenerator
}

// NewManagePanelsUseCase creates a new panel management use case.
func NewManagePanelsUseCase(idGen entity.IDGenerator) *ManagePanelsUseCase {
	return &ManagePanelsUseCase{idGen: idGen}
}

// SplitOutput contains the result of a split operation.
type SplitOutput struct {
	NewPanel *entity.PanelNode
	NewTab   entity.Tab
}

// Split replaces the named leaf with a split of the given direction holding
// the original leaf and a fresh leaf with one new tab. Ratio starts at 0.5.
func (uc *ManagePanelsUseCase) Split(ctx context.Context, wb *entity.Workbench, panelID string, dir entity.Direction) (*SplitOutput, error) {
	log := logging.FromContext(logging.WithPanelID(ctx, panelID))
	if wb == nil {
		return nil, fmt.Errorf("workbench is required")
	}

	var newTab entity.Tab
	root, newLeaf := entity.SplitPanel(wb.Root, panelID, dir, uc.idGen, func() entity.Tab {
		newTab = entity.NewTab(uc.idGen(), entity.PlaceholderTitle, "")
		newTab.IsActive = true
		return newTab
	})
	if newLeaf == nil {
		return nil, fmt.Errorf("panel %s not found or not a leaf", panelID)
	}

	wb.Root = root
	wb.ActivePanelID = newLeaf.ID
	wb.History(newLeaf.ID).Push(newTab.ID)

	log.Debug().
		Str("new_panel_id", newLeaf.ID).
		Str("direction", string(dir)).
		Msg("panel split")
	return &SplitOutput{NewPanel: newLeaf, NewTab: newTab}, nil
}

// SplitWithTab splits the named leaf and seeds the new leaf with an existing
// tab (the drag-and-drop split intent). The tab must already be detached
// from its source panel by the caller.
func (uc *ManagePanelsUseCase) SplitWithTab(ctx context.Context, wb *entity.Workbench, panelID string, dir entity.Direction, tab entity.Tab) (*SplitOutput, error) {
	if wb == nil {
		return nil, fmt.Errorf("workbench is required")
	}
	tab.IsActive = true
	root, newLeaf := entity.SplitPanel(wb.Root, panelID, dir, uc.idGen, func() entity.Tab {
		return tab
	})
	if newLeaf == nil {
		return nil, fmt.Errorf("panel %s not found or not a leaf", panelID)
	}
	wb.Root = root
	wb.ActivePanelID = newLeaf.ID
	wb.History(newLeaf.ID).Push(tab.ID)

	logging.FromContext(ctx).Debug().
		Str("panel_id", panelID).
		Str("tab_id", tab.ID).
		Str("direction", string(dir)).
		Msg("panel split with moved tab")
	return &SplitOutput{NewPanel: newLeaf, NewTab: tab}, nil
}

// Close removes the named panel from the tree. A parent split left with one
// child collapses; closing the last panel degenerates to a fresh placeholder
// leaf rather than an empty tree.
func (uc *ManagePanelsUseCase) Close(ctx context.Context, wb *entity.Workbench, panelID string) error {
	log := logging.FromContext(logging.WithPanelID(ctx, panelID))
	if wb == nil {
		return fmt.Errorf("workbench is required")
	}
	if entity.FindNodeByID(wb.Root, panelID) == nil {
		return fmt.Errorf("panel %s not found", panelID)
	}

	wb.Root = entity.RemovePanelNode(wb.Root, panelID, uc.idGen, func() entity.Tab {
		tab := entity.NewTab(uc.idGen(), entity.PlaceholderTitle, "")
		tab.IsActive = true
		return tab
	})
	delete(wb.Histories, panelID)

	if wb.ActivePanelID == panelID || entity.FindNodeByID(wb.Root, wb.ActivePanelID) == nil {
		if leaf := entity.FindFirstLeaf(wb.Root); leaf != nil {
			wb.ActivePanelID = leaf.ID
		}
	}

	log.Debug().
		Int("remaining_panels", entity.CountLeaves(wb.Root)).
		Msg("panel closed")
	return nil
}
