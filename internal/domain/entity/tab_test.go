package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeActive(t *testing.T) {
	tests := []struct {
		name       string
		tabs       []Tab
		wantActive []bool
	}{
		{
			name:       "none active promotes first",
			tabs:       []Tab{{ID: "a"}, {ID: "b"}},
			wantActive: []bool{true, false},
		},
		{
			name:       "first active wins",
			tabs:       []Tab{{ID: "a"}, {ID: "b", IsActive: true}, {ID: "c", IsActive: true}},
			wantActive: []bool{false, true, false},
		},
		{
			name:       "already normalized",
			tabs:       []Tab{{ID: "a", IsActive: true}, {ID: "b"}},
			wantActive: []bool{true, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeActive(tt.tabs)
			for i, want := range tt.wantActive {
				assert.Equal(t, want, got[i].IsActive, "tab %d", i)
			}
		})
	}
}

func TestNormalizeActiveEmpty(t *testing.T) {
	assert.Empty(t, NormalizeActive(nil))
}

func TestActivateTab(t *testing.T) {
	tabs := []Tab{{ID: "a", IsActive: true}, {ID: "b"}, {ID: "c"}}

	out, ok := ActivateTab(tabs, "c")

	require.True(t, ok)
	assert.False(t, out[0].IsActive)
	assert.True(t, out[2].IsActive)
	// Input untouched.
	assert.True(t, tabs[0].IsActive)
}

func TestActivateTabAbsent(t *testing.T) {
	tabs := []Tab{{ID: "a", IsActive: true}}

	out, ok := ActivateTab(tabs, "nope")

	assert.False(t, ok)
	assert.Equal(t, tabs, out)
}

func TestRemoveTab(t *testing.T) {
	tabs := []Tab{{ID: "a"}, {ID: "b", IsActive: true}, {ID: "c"}}

	out, idx, wasActive := RemoveTab(tabs, "b")

	assert.Equal(t, 1, idx)
	assert.True(t, wasActive)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	// Input untouched.
	assert.Len(t, tabs, 3)
}

func TestRemoveTabAbsent(t *testing.T) {
	tabs := []Tab{{ID: "a"}}

	out, idx, wasActive := RemoveTab(tabs, "nope")

	assert.Equal(t, -1, idx)
	assert.False(t, wasActive)
	assert.Equal(t, tabs, out)
}

func TestMoveTab(t *testing.T) {
	tabs := []Tab{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		name  string
		tabID string
		index int
		want  []string
	}{
		{"to front", "c", 0, []string{"c", "a", "b"}},
		{"to middle", "a", 1, []string{"b", "a", "c"}},
		{"negative appends", "a", -1, []string{"b", "c", "a"}},
		{"out of range clamps", "a", 99, []string{"b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := MoveTab(tabs, tt.tabID, tt.index)
			require.True(t, ok)
			ids := make([]string, len(out))
			for i, tab := range out {
				ids[i] = tab.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
