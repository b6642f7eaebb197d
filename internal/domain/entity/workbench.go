package entity

// IDGenerator is a function that generates unique IDs.
type IDGenerator func() string

// PlaceholderTitle is the title of the tab synthesized when a leaf would
// otherwise be left empty.
const PlaceholderTitle = "Untitled"

// Workbench is the live workbench aggregate: the panel tree plus per-panel
// activation history and the most-recently-active panel. Tree transformations
// replace Root atomically; a reader never observes a half-updated tree.
type Workbench struct {
	Root          *PanelNode
	Histories     map[string]*TabHistory
	ActivePanelID string

	idGen IDGenerator
}

// NewWorkbench creates a workbench with a single leaf holding one
// placeholder tab.
func NewWorkbench(idGen IDGenerator) *Workbench {
	leaf := NewLeaf(idGen(), NewTab(idGen(), PlaceholderTitle, ""))
	wb := &Workbench{
		Root:      leaf,
		Histories: make(map[string]*TabHistory),
		idGen:     idGen,
	}
	wb.ActivePanelID = leaf.ID
	wb.History(leaf.ID).Push(leaf.ActiveTabID)
	return wb
}

// NewWorkbenchFromTree wraps an existing tree (for example one produced by
// recovery) in a workbench. The tree is normalized first.
func NewWorkbenchFromTree(root *PanelNode, idGen IDGenerator) *Workbench {
	root = Normalize(root)
	wb := &Workbench{
		Root:      root,
		Histories: make(map[string]*TabHistory),
		idGen:     idGen,
	}
	if leaf := FindFirstLeaf(root); leaf != nil {
		wb.ActivePanelID = leaf.ID
		if leaf.ActiveTabID != "" {
			wb.History(leaf.ID).Push(leaf.ActiveTabID)
		}
	}
	return wb
}

// NewID generates a fresh unique id.
func (wb *Workbench) NewID() string { return wb.idGen() }

// History returns the history stack for a panel, creating it on first use.
func (wb *Workbench) History(panelID string) *TabHistory {
	h, ok := wb.Histories[panelID]
	if !ok {
		h = NewTabHistory()
		wb.Histories[panelID] = h
	}
	return h
}

// TargetLeaf returns the leaf newly opened documents should land in: the
// most-recently-active panel when it still exists, otherwise the first leaf
// in pre-order.
func (wb *Workbench) TargetLeaf() *PanelNode {
	if wb.ActivePanelID != "" {
		if node := FindNodeByID(wb.Root, wb.ActivePanelID); node != nil && node.IsLeaf() {
			return node
		}
	}
	return FindFirstLeaf(wb.Root)
}

// PlaceholderTab creates the tab used to repopulate an otherwise empty leaf.
func (wb *Workbench) PlaceholderTab() Tab {
	tab := NewTab(wb.idGen(), PlaceholderTitle, "")
	tab.IsActive = true
	return tab
}
