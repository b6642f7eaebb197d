package usecase

import (
	"context"
	"math"

	"github.com/tessera-ide/tessera/internal/logging"
)

// EdgeThreshold is the default margin, in pixels, inside a container boundary
// that classifies a drag as a split intent instead of a reorder or merge.
const EdgeThreshold = 50.0

// Point is a pointer position in workspace coordinates.
type Point struct {
	X, Y float64
}

// Rect is a screen-space rectangle. Used for drop-zone and tab geometry.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// DropKind classifies what a drop would do.
type DropKind string

const (
	DropReorder         DropKind = "reorder"          // Insert the tab at TargetIndex in the hovered panel
	DropMerge           DropKind = "merge"            // Append the tab to the hovered panel
	DropSplitVertical   DropKind = "split-vertical"   // Split left/right of the hovered panel
	DropSplitHorizontal DropKind = "split-horizontal" // Split above/below the hovered panel
)

// DragPosition is the classified intent for the current pointer position.
// For split kinds, TargetIndex 0 means the leading edge (insert-before) and
// -1 the trailing edge (insert-after).
type DragPosition struct {
	Zone        DropKind
	TargetIndex int
}

// TabRect pairs a tab with its on-screen bounds for reorder classification.
type TabRect struct {
	TabID  string
	Bounds Rect
}

// DropZone is a rectangular region registered for the current drag,
// associated with a classified outcome on a panel.
type DropZone struct {
	ID       string
	PanelID  string
	Bounds   Rect
	Position DragPosition
}

// dragState is the coordinator's state machine: idle or dragging.
type dragState int

const (
	dragIdle dragState = iota
	dragging
)

// DragDropCoordinator computes drop intents from pointer geometry. It never
// mutates the panel tree itself; the caller translates a resolved drop into
// a tree operation. The coordinator runs on the single UI event loop and
// needs no locking.
type DragDropCoordinator struct {
	state         dragState
	edgeThreshold float64
	draggedTabID  string
	sourcePanelID string
	zones         []DropZone
	releaseGhost  func()
}

// NewDragDropCoordinator creates an idle coordinator with the default edge
// threshold.
func NewDragDropCoordinator() *DragDropCoordinator {
	return NewDragDropCoordinatorWithThreshold(EdgeThreshold)
}

// NewDragDropCoordinatorWithThreshold creates an idle coordinator with a
// configured edge threshold. Values at or below zero select the default.
func NewDragDropCoordinatorWithThreshold(threshold float64) *DragDropCoordinator {
	if threshold <= 0 {
		threshold = EdgeThreshold
	}
	return &DragDropCoordinator{edgeThreshold: threshold}
}

// Dragging reports whether a drag is in progress.
func (c *DragDropCoordinator) Dragging() bool { return c.state == dragging }

// DraggedTab returns the tab and source panel of the active drag.
func (c *DragDropCoordinator) DraggedTab() (tabID, sourcePanelID string) {
	return c.draggedTabID, c.sourcePanelID
}

// Begin starts a drag. releaseGhost tears down the visual preview element;
// it is invoked exactly once on every exit path, success or cancel. Starting
// a new drag while one is active cancels the previous one first.
func (c *DragDropCoordinator) Begin(ctx context.Context, tabID, sourcePanelID string, releaseGhost func()) {
	if c.state == dragging {
		c.Cancel(ctx)
	}
	c.state = dragging
	c.draggedTabID = tabID
	c.sourcePanelID = sourcePanelID
	c.releaseGhost = releaseGhost

	logging.FromContext(ctx).Debug().
		Str("tab_id", tabID).
		Str("source_panel", sourcePanelID).
		Msg("drag started")
}

// RegisterZone adds a drop zone for the current drag. Zones are discarded
// when the drag ends.
func (c *DragDropCoordinator) RegisterZone(zone DropZone) {
	if c.state != dragging {
		return
	}
	c.zones = append(c.zones, zone)
}

// Classify computes the drop intent for a pointer position over a panel
// container. Within the edge threshold of the left/right boundary the intent
// is a vertical split (TargetIndex 0 for left, -1 for right); within the
// top/bottom boundary a horizontal split. Otherwise the pointer is compared
// against tab centers for a reorder index: the tab is inserted before the
// first tab whose center exceeds the pointer x, appended when none does.
// With no tabs and no edge match the intent is a whole-panel merge.
func (c *DragDropCoordinator) Classify(p Point, container Rect, tabs []TabRect) DragPosition {
	switch {
	case p.X-container.X <= c.edgeThreshold:
		return DragPosition{Zone: DropSplitVertical, TargetIndex: 0}
	case container.X+container.W-p.X <= c.edgeThreshold:
		return DragPosition{Zone: DropSplitVertical, TargetIndex: -1}
	case p.Y-container.Y <= c.edgeThreshold:
		return DragPosition{Zone: DropSplitHorizontal, TargetIndex: 0}
	case container.Y+container.H-p.Y <= c.edgeThreshold:
		return DragPosition{Zone: DropSplitHorizontal, TargetIndex: -1}
	}

	if len(tabs) > 0 {
		for i, tab := range tabs {
			if tab.Bounds.Center().X > p.X {
				return DragPosition{Zone: DropReorder, TargetIndex: i}
			}
		}
		return DragPosition{Zone: DropReorder, TargetIndex: len(tabs)}
	}

	return DragPosition{Zone: DropMerge, TargetIndex: -1}
}

// Drop resolves the drag against the registered zones: among the zones
// containing the pointer, the one with the nearest center wins. A pointer
// outside every zone resolves to nothing, which is equivalent to a cancel.
// All transient drag state is released unconditionally.
func (c *DragDropCoordinator) Drop(ctx context.Context, p Point) (DropZone, bool) {
	if c.state != dragging {
		return DropZone{}, false
	}
	defer c.release(ctx)

	best := -1
	bestDist := math.MaxFloat64
	for i, zone := range c.zones {
		if !zone.Bounds.Contains(p) {
			continue
		}
		center := zone.Bounds.Center()
		dist := math.Hypot(center.X-p.X, center.Y-p.Y)
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		logging.FromContext(ctx).Debug().Msg("drop outside all zones, treated as cancel")
		return DropZone{}, false
	}

	zone := c.zones[best]
	logging.FromContext(ctx).Debug().
		Str("zone_id", zone.ID).
		Str("panel_id", zone.PanelID).
		Str("kind", string(zone.Position.Zone)).
		Int("target_index", zone.Position.TargetIndex).
		Msg("drop resolved")
	return zone, true
}

// Cancel aborts the drag, releasing all transient state.
func (c *DragDropCoordinator) Cancel(ctx context.Context) {
	if c.state != dragging {
		return
	}
	c.release(ctx)
	logging.FromContext(ctx).Debug().Msg("drag canceled")
}

// release returns the coordinator to idle. Runs on every exit path so the
// ghost element and zone registrations can never leak.
func (c *DragDropCoordinator) release(_ context.Context) {
	if c.releaseGhost != nil {
		ghost := c.releaseGhost
		c.releaseGhost = nil
		defer ghost()
	}
	c.state = dragIdle
	c.draggedTabID = ""
	c.sourcePanelID = ""
	c.zones = nil
}
