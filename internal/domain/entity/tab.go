package entity

import "time"

// TabID uniquely identifies a tab.
type TabID = string

// Tab represents a tab within a leaf panel. It references its document by id;
// the panel tree never owns document content.
type Tab struct {
	ID         string
	Title      string
	DocumentID string
	IsActive   bool
	IsLocked   bool
	FilePath   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Now returns the current time normalized to millisecond precision UTC.
// All entity timestamps use this so the wire round trip is exact.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewTab creates a tab for the given document.
func NewTab(id, title, documentID string) Tab {
	now := Now()
	return Tab{
		ID:         id,
		Title:      title,
		DocumentID: documentID,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// NormalizeActive ensures exactly one tab is active in a non-empty set:
// the first active tab wins, extra flags are cleared, and if none is active
// the first tab is promoted. Returns the input slice, edited in place.
func NormalizeActive(tabs []Tab) []Tab {
	if len(tabs) == 0 {
		return tabs
	}
	seen := false
	for i := range tabs {
		if tabs[i].IsActive {
			if seen {
				tabs[i].IsActive = false
			}
			seen = true
		}
	}
	if !seen {
		tabs[0].IsActive = true
	}
	return tabs
}

// ActivateTab returns a copy of tabs with exactly the named tab active.
// Returns the input unchanged (and false) if the tab is absent.
func ActivateTab(tabs []Tab, tabID string) ([]Tab, bool) {
	idx := indexOfTab(tabs, tabID)
	if idx < 0 {
		return tabs, false
	}
	out := append([]Tab(nil), tabs...)
	for i := range out {
		out[i].IsActive = i == idx
	}
	return out, true
}

// RemoveTab returns a copy of tabs without the named tab, along with the
// removed index and whether the removed tab was active. Returns the input
// unchanged when the tab is absent.
func RemoveTab(tabs []Tab, tabID string) (out []Tab, removedIdx int, wasActive bool) {
	idx := indexOfTab(tabs, tabID)
	if idx < 0 {
		return tabs, -1, false
	}
	wasActive = tabs[idx].IsActive
	out = make([]Tab, 0, len(tabs)-1)
	out = append(out, tabs[:idx]...)
	out = append(out, tabs[idx+1:]...)
	return out, idx, wasActive
}

// MoveTab returns a copy of tabs with the named tab moved to index. A
// negative index appends. Out-of-range indexes clamp to the end.
func MoveTab(tabs []Tab, tabID string, index int) ([]Tab, bool) {
	idx := indexOfTab(tabs, tabID)
	if idx < 0 {
		return tabs, false
	}
	moved := tabs[idx]
	out := make([]Tab, 0, len(tabs))
	out = append(out, tabs[:idx]...)
	out = append(out, tabs[idx+1:]...)
	if index < 0 || index > len(out) {
		index = len(out)
	}
	out = append(out[:index], append([]Tab{moved}, out[index:]...)...)
	return out, true
}

func activeTabID(tabs []Tab) string {
	for _, tab := range tabs {
		if tab.IsActive {
			return tab.ID
		}
	}
	return ""
}

func indexOfTab(tabs []Tab, tabID string) int {
	for i, tab := range tabs {
		if tab.ID == tabID {
			return i
		}
	}
	return -1
}
