package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SnapshotVersion is the current schema version for session snapshots.
// Only the major component participates in compatibility checks; minor and
// patch differences never require migration.
const SnapshotVersion = "2.0.0"

// UnixMillis serializes a time.Time as integer milliseconds since the epoch,
// the wire-safe form timestamps take in stored snapshots. Times produced by
// Now() are millisecond-precision UTC, so the conversion round-trips exactly.
type UnixMillis time.Time

// MarshalJSON implements json.Marshaler.
func (m UnixMillis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Time(m).UnixMilli(), 10), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *UnixMillis) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse unix millis: %w", err)
	}
	*m = UnixMillis(time.UnixMilli(ms).UTC())
	return nil
}

// Time returns the underlying time value.
func (m UnixMillis) Time() time.Time { return time.Time(m) }

// SessionSnapshot is a serialized capture of the entire panel tree, tab and
// document-reference state at one instant. Persisted as a single record plus
// a rolling ring of prior snapshots for corruption recovery.
type SessionSnapshot struct {
	Version      string                  `json:"version"`
	Timestamp    UnixMillis              `json:"timestamp"`
	Tabs         map[string]TabSnapshot  `json:"tabs"`
	Panes        map[string]PaneSnapshot `json:"panes"`
	TabGroups    map[string][]string     `json:"tab_groups,omitempty"`
	Layout       *LayoutSnapshot         `json:"layout"`
	ActivePaneID string                  `json:"active_pane_id"`
}

// TabSnapshot captures one tab, including the content of its document at
// save time. The live tree only carries the document reference; the snapshot
// inlines content so recovery can rebuild documents without the store.
type TabSnapshot struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	DocumentID string     `json:"document_id"`
	Content    string     `json:"content"`
	Language   string     `json:"language,omitempty"`
	IsActive   bool       `json:"is_active"`
	IsLocked   bool       `json:"is_locked,omitempty"`
	FilePath   string     `json:"file_path,omitempty"`
	CreatedAt  UnixMillis `json:"created_at"`
	ModifiedAt UnixMillis `json:"modified_at"`
}

// PaneSnapshot captures one leaf panel: its ordered tab references and the
// active tab.
type PaneSnapshot struct {
	ID          string   `json:"id"`
	TabIDs      []string `json:"tab_ids"`
	ActiveTabID string   `json:"active_tab_id"`
	Size        float64  `json:"size,omitempty"`
	MinSize     float64  `json:"min_size,omitempty"`
}

// LayoutSnapshot captures the split tree. Leaf nodes reference the pane map
// by id; split nodes carry direction, ratio and children.
type LayoutSnapshot struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"` // "leaf" or "split"
	PaneID    string            `json:"pane_id,omitempty"`
	Direction Direction         `json:"direction,omitempty"`
	Ratio     float64           `json:"ratio,omitempty"`
	Children  []*LayoutSnapshot `json:"children,omitempty"`
}

// MajorVersion extracts the major component of a dotted version string.
// Returns -1 when the string is not a version.
func MajorVersion(version string) int {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return major
}

// CompatibleVersion reports whether a stored version is usable without
// migration. Only the major component is compared.
func CompatibleVersion(stored string) bool {
	return MajorVersion(stored) == MajorVersion(SnapshotVersion)
}

// ContentResolver looks up document content for snapshotting. ok is false
// when the document no longer exists in the store.
type ContentResolver func(documentID string) (content, language string, ok bool)

// SnapshotFromWorkbench captures the workbench into a snapshot, resolving
// document content through resolve (which may be nil when content inlining
// is not wanted, for example in tests).
func SnapshotFromWorkbench(wb *Workbench, resolve ContentResolver) *SessionSnapshot {
	snap := &SessionSnapshot{
		Version:      SnapshotVersion,
		Timestamp:    UnixMillis(Now()),
		Tabs:         make(map[string]TabSnapshot),
		Panes:        make(map[string]PaneSnapshot),
		ActivePaneID: wb.ActivePanelID,
	}
	if wb.Root == nil {
		return snap
	}
	snap.Layout = layoutFromNode(wb.Root, snap, resolve)
	if snap.ActivePaneID == "" {
		if leaf := FindFirstLeaf(wb.Root); leaf != nil {
			snap.ActivePaneID = leaf.ID
		}
	}
	return snap
}

func layoutFromNode(node *PanelNode, snap *SessionSnapshot, resolve ContentResolver) *LayoutSnapshot {
	if node == nil {
		return nil
	}
	if node.IsLeaf() {
		pane := PaneSnapshot{
			ID:          node.ID,
			TabIDs:      make([]string, 0, len(node.Tabs)),
			ActiveTabID: node.ActiveTabID,
			Size:        node.Size,
			MinSize:     node.MinSize,
		}
		for _, tab := range node.Tabs {
			pane.TabIDs = append(pane.TabIDs, tab.ID)
			ts := TabSnapshot{
				ID:         tab.ID,
				Title:      tab.Title,
				DocumentID: tab.DocumentID,
				IsActive:   tab.IsActive,
				IsLocked:   tab.IsLocked,
				FilePath:   tab.FilePath,
				CreatedAt:  UnixMillis(tab.CreatedAt),
				ModifiedAt: UnixMillis(tab.ModifiedAt),
			}
			if resolve != nil && tab.DocumentID != "" {
				if content, language, ok := resolve(tab.DocumentID); ok {
					ts.Content = content
					ts.Language = language
				}
			}
			snap.Tabs[tab.ID] = ts
		}
		snap.Panes[node.ID] = pane
		return &LayoutSnapshot{ID: node.ID, Kind: "leaf", PaneID: node.ID}
	}
	layout := &LayoutSnapshot{
		ID:        node.ID,
		Kind:      "split",
		Direction: node.Direction,
		Ratio:     node.Ratio,
	}
	for _, child := range node.Children {
		layout.Children = append(layout.Children, layoutFromNode(child, snap, resolve))
	}
	return layout
}

// TreeFromSnapshot rebuilds a panel tree from a snapshot, preserving ids so
// auto-save records keyed by tab id still match after a reload. The snapshot
// is expected to be referentially valid; dangling references produce smaller
// leaves rather than errors (recovery validates and repairs beforehand).
func TreeFromSnapshot(snap *SessionSnapshot) *PanelNode {
	if snap == nil || snap.Layout == nil {
		return nil
	}
	return Normalize(nodeFromLayout(snap.Layout, snap))
}

func nodeFromLayout(layout *LayoutSnapshot, snap *SessionSnapshot) *PanelNode {
	if layout == nil {
		return nil
	}
	if layout.Kind == "leaf" {
		pane, ok := snap.Panes[layout.PaneID]
		if !ok {
			return nil
		}
		return leafFromPane(pane, snap)
	}
	node := &PanelNode{
		ID:        layout.ID,
		Kind:      KindSplit,
		Direction: layout.Direction,
		Ratio:     layout.Ratio,
	}
	if node.Ratio == 0 {
		node.Ratio = DefaultSplitRatio
	}
	for _, child := range layout.Children {
		if restored := nodeFromLayout(child, snap); restored != nil {
			node.Children = append(node.Children, restored)
		}
	}
	if len(node.Children) == 0 {
		return nil
	}
	return node
}

func leafFromPane(pane PaneSnapshot, snap *SessionSnapshot) *PanelNode {
	tabs := make([]Tab, 0, len(pane.TabIDs))
	for _, tabID := range pane.TabIDs {
		ts, ok := snap.Tabs[tabID]
		if !ok {
			continue
		}
		tabs = append(tabs, Tab{
			ID:         ts.ID,
			Title:      ts.Title,
			DocumentID: ts.DocumentID,
			IsActive:   ts.IsActive || ts.ID == pane.ActiveTabID,
			IsLocked:   ts.IsLocked,
			FilePath:   ts.FilePath,
			CreatedAt:  ts.CreatedAt.Time(),
			ModifiedAt: ts.ModifiedAt.Time(),
		})
	}
	if len(tabs) == 0 {
		return nil
	}
	leaf := NewLeaf(pane.ID, tabs...)
	leaf.Size = pane.Size
	leaf.MinSize = pane.MinSize
	return leaf
}

// MigrateSnapshot upgrades a snapshot with an older major version to the
// current schema. Major version 1 stored panes as a flat map without a
// layout tree; migration rebuilds a horizontal split of the panes in sorted
// key order. Returns the (possibly new) snapshot and whether migration ran.
func MigrateSnapshot(snap *SessionSnapshot, idGen IDGenerator) (*SessionSnapshot, bool, error) {
	if snap == nil {
		return nil, false, fmt.Errorf("nil snapshot")
	}
	major := MajorVersion(snap.Version)
	switch {
	case major == MajorVersion(SnapshotVersion):
		return snap, false, nil
	case major == 1:
		migrated := *snap
		migrated.Version = SnapshotVersion
		migrated.Layout = LayoutFromPanes(snap.Panes, idGen)
		return &migrated, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}
}

// LayoutFromPanes synthesizes a layout tree for a bare pane map: a single
// leaf for one pane, a horizontal split in sorted key order otherwise. Used
// by major-version migration and by repair when the layout is missing.
func LayoutFromPanes(panes map[string]PaneSnapshot, idGen IDGenerator) *LayoutSnapshot {
	ids := make([]string, 0, len(panes))
	for id := range panes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	leaves := make([]*LayoutSnapshot, 0, len(ids))
	for _, id := range ids {
		leaves = append(leaves, &LayoutSnapshot{ID: id, Kind: "leaf", PaneID: id})
	}
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	default:
		return &LayoutSnapshot{
			ID:        idGen(),
			Kind:      "split",
			Direction: Horizontal,
			Ratio:     DefaultSplitRatio,
			Children:  leaves,
		}
	}
}

// CountPanes returns the number of panes referenced by the layout tree.
func (s *SessionSnapshot) CountPanes() int {
	return len(s.Panes)
}
