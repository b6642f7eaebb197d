// Package entity contains domain entities representing core workbench concepts.
// These entities are pure Go types with no infrastructure dependencies.
package entity

// PanelID uniquely identifies a node in the panel tree.
type PanelID = string

// NodeKind discriminates the panel tree tagged union.
type NodeKind int

const (
	KindLeaf  NodeKind = iota // Holds an ordered tab collection
	KindSplit                 // Holds >=2 children along one axis
)

// Direction indicates how a split arranges its children.
type Direction string

const (
	Horizontal Direction = "horizontal" // Children stacked top/bottom
	Vertical   Direction = "vertical"   // Children side by side
)

// DefaultSplitRatio is the divider position for freshly created splits.
const DefaultSplitRatio = 0.5

// PanelNode is a node in the panel tree. The tree is immutable: every
// transformation returns a new root, path-copying the nodes it touches and
// sharing untouched subtrees. Callers must never mutate a node reachable
// from a tree they have handed out.
type PanelNode struct {
	ID      string
	Kind    NodeKind
	Size    float64
	MinSize float64

	// Leaf fields
	Tabs        []Tab
	ActiveTabID string

	// Split fields
	Direction Direction
	Children  []*PanelNode
	Ratio     float64
}

// IsLeaf returns true for tab-holding terminal nodes.
func (n *PanelNode) IsLeaf() bool { return n.Kind == KindLeaf }

// IsSplit returns true for container nodes.
func (n *PanelNode) IsSplit() bool { return n.Kind == KindSplit }

// NewLeaf creates a leaf panel holding the given tabs. The active tab is
// normalized so that exactly one tab is active when tabs is non-empty.
func NewLeaf(id string, tabs ...Tab) *PanelNode {
	tabs = NormalizeActive(tabs)
	return &PanelNode{
		ID:          id,
		Kind:        KindLeaf,
		Tabs:        tabs,
		ActiveTabID: activeTabID(tabs),
	}
}

// NewSplit creates a split panel with the given children.
func NewSplit(id string, dir Direction, children ...*PanelNode) *PanelNode {
	return &PanelNode{
		ID:        id,
		Kind:      KindSplit,
		Direction: dir,
		Children:  children,
		Ratio:     DefaultSplitRatio,
	}
}

// clone returns a shallow copy of the node with its own tab and child slices.
// Shared subtrees are not copied.
func (n *PanelNode) clone() *PanelNode {
	c := *n
	if n.Tabs != nil {
		c.Tabs = append([]Tab(nil), n.Tabs...)
	}
	if n.Children != nil {
		c.Children = append([]*PanelNode(nil), n.Children...)
	}
	return &c
}

// Walk traverses the tree pre-order, calling fn for each node.
// Traversal stops early if fn returns false.
func (n *PanelNode) Walk(fn func(*PanelNode) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// FindNodeByID searches the tree pre-order for a node with the given ID.
// Returns nil if absent.
func FindNodeByID(root *PanelNode, id string) *PanelNode {
	var found *PanelNode
	root.Walk(func(node *PanelNode) bool {
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// FindFirstLeaf returns the first leaf in pre-order traversal. Pre-order is
// the canonical tie-break when several leaves are equally "first" for
// targeting newly opened documents.
func FindFirstLeaf(root *PanelNode) *PanelNode {
	var found *PanelNode
	root.Walk(func(node *PanelNode) bool {
		if node.IsLeaf() {
			found = node
			return false
		}
		return true
	})
	return found
}

// Leaves returns all leaf nodes in pre-order.
func Leaves(root *PanelNode) []*PanelNode {
	var leaves []*PanelNode
	root.Walk(func(node *PanelNode) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// CountLeaves returns the number of leaf panels in the tree.
func CountLeaves(root *PanelNode) int {
	count := 0
	root.Walk(func(node *PanelNode) bool {
		if node.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

// UpdateTabsForPanel replaces the tab collection of the named leaf, returning
// a new root. The original root is returned unchanged if the leaf is absent.
// The active tab is normalized: if newTabs contains no active tab the first
// tab becomes active; extra active flags beyond the first are cleared.
func UpdateTabsForPanel(root *PanelNode, leafID string, newTabs []Tab) *PanelNode {
	updated, _ := replaceNode(root, leafID, func(node *PanelNode) *PanelNode {
		if !node.IsLeaf() {
			return nil
		}
		c := node.clone()
		c.Tabs = NormalizeActive(append([]Tab(nil), newTabs...))
		c.ActiveTabID = activeTabID(c.Tabs)
		return c
	})
	return updated
}

// SplitPanel replaces the named leaf with a split of the given direction
// holding the original leaf and a fresh leaf containing one tab from newTab.
// The split ratio starts at DefaultSplitRatio. Returns the new root and the
// freshly created leaf; the original root and nil if the leaf is absent.
func SplitPanel(root *PanelNode, leafID string, dir Direction, idGen IDGenerator, newTab func() Tab) (*PanelNode, *PanelNode) {
	var newLeaf *PanelNode
	updated, _ := replaceNode(root, leafID, func(node *PanelNode) *PanelNode {
		if !node.IsLeaf() {
			return nil
		}
		newLeaf = NewLeaf(idGen(), newTab())
		split := NewSplit(idGen(), dir, node, newLeaf)
		split.Size = node.Size
		split.MinSize = node.MinSize
		return split
	})
	if newLeaf == nil {
		return root, nil
	}
	return updated, newLeaf
}

// RemovePanelNode removes the named node from the tree, returning a new root.
// A split left with a single child collapses into that child. Removing the
// root itself degenerates the tree to a single leaf holding one placeholder
// tab rather than returning nil. The original root is returned unchanged if
// the node is absent.
func RemovePanelNode(root *PanelNode, nodeID string, idGen IDGenerator, placeholderTab func() Tab) *PanelNode {
	if root == nil {
		return NewLeaf(idGen(), placeholderTab())
	}
	if root.ID == nodeID {
		return NewLeaf(idGen(), placeholderTab())
	}
	updated, removed := removeChild(root, nodeID)
	if !removed {
		return root
	}
	return updated
}

// removeChild removes nodeID from the subtree rooted at node, path-copying
// ancestors and collapsing single-child splits. Returns the (possibly
// replaced) subtree and whether a removal happened.
func removeChild(node *PanelNode, nodeID string) (*PanelNode, bool) {
	if node.IsLeaf() {
		return node, false
	}
	for i, child := range node.Children {
		if child.ID == nodeID {
			c := node.clone()
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			if len(c.Children) == 1 {
				// Degenerate split: collapse into the remaining child,
				// preserving the container's size so layout stays stable.
				remaining := c.Children[0].clone()
				remaining.Size = node.Size
				return remaining, true
			}
			return c, true
		}
		if replaced, ok := removeChild(child, nodeID); ok {
			c := node.clone()
			c.Children[i] = replaced
			return c, true
		}
	}
	return node, false
}

// replaceNode path-copies the tree, substituting the node with the given ID
// by the result of replace. A nil result from replace aborts the edit.
// Returns the new root and whether a replacement happened.
func replaceNode(root *PanelNode, id string, replace func(*PanelNode) *PanelNode) (*PanelNode, bool) {
	if root == nil {
		return root, false
	}
	if root.ID == id {
		if r := replace(root); r != nil {
			return r, true
		}
		return root, false
	}
	if root.IsLeaf() {
		return root, false
	}
	for i, child := range root.Children {
		if replaced, ok := replaceNode(child, id, replace); ok {
			c := root.clone()
			c.Children[i] = replaced
			return c, true
		}
	}
	return root, false
}

// Normalize collapses every single-child split in the tree, returning a new
// root when anything changed. The no-single-child-split invariant is enforced
// on every tree-producing operation, not just removal.
func Normalize(root *PanelNode) *PanelNode {
	if root == nil || root.IsLeaf() {
		return root
	}
	changed := false
	children := make([]*PanelNode, 0, len(root.Children))
	for _, child := range root.Children {
		normalized := Normalize(child)
		if normalized != child {
			changed = true
		}
		children = append(children, normalized)
	}
	if len(children) == 1 {
		collapsed := children[0].clone()
		collapsed.Size = root.Size
		return collapsed
	}
	if !changed {
		return root
	}
	c := root.clone()
	c.Children = children
	return c
}

// Validate reports structural problems with the tree: single-child splits,
// splits without children, leaves whose active tab is missing or whose tab
// collection holds other than exactly one active tab. An empty slice means
// the tree satisfies all invariants.
func Validate(root *PanelNode) []string {
	var problems []string
	if root == nil {
		return []string{"tree has no root"}
	}
	seen := make(map[string]bool)
	root.Walk(func(node *PanelNode) bool {
		if seen[node.ID] {
			problems = append(problems, "duplicate node id "+node.ID)
		}
		seen[node.ID] = true
		switch node.Kind {
		case KindSplit:
			if len(node.Children) == 0 {
				problems = append(problems, "split "+node.ID+" has no children")
			} else if len(node.Children) == 1 {
				problems = append(problems, "split "+node.ID+" has a single child")
			}
			if len(node.Tabs) > 0 {
				problems = append(problems, "split "+node.ID+" carries tabs")
			}
		case KindLeaf:
			if len(node.Children) > 0 {
				problems = append(problems, "leaf "+node.ID+" has children")
			}
			if len(node.Tabs) == 0 {
				problems = append(problems, "leaf "+node.ID+" has no tabs")
				break
			}
			active := 0
			activeFound := false
			for _, tab := range node.Tabs {
				if tab.IsActive {
					active++
				}
				if tab.ID == node.ActiveTabID {
					activeFound = true
				}
			}
			if active != 1 {
				problems = append(problems, "leaf "+node.ID+" does not have exactly one active tab")
			}
			if !activeFound {
				problems = append(problems, "leaf "+node.ID+" active tab id is not in its tab set")
			}
		}
		return true
	})
	return problems
}

// StructurallyEqual reports whether two trees have the same shape, the same
// leaf tab ids in the same order, and the same split directions. Node ids and
// sizes are ignored; used to compare trees across transform round trips.
func StructurallyEqual(a, b *PanelNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.IsLeaf() {
		if len(a.Tabs) != len(b.Tabs) {
			return false
		}
		for i := range a.Tabs {
			if a.Tabs[i].ID != b.Tabs[i].ID {
				return false
			}
		}
		return true
	}
	if a.Direction != b.Direction || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !StructurallyEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
