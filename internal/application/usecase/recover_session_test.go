package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ide/tessera/internal/application/port"
	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/infrastructure/documents"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence/memory"
)

type recoveryFixture struct {
	kv       *memory.KV
	sessions *persistence.SessionStore
	autosave *persistence.AutoSaveStore
	docs     *documents.Store
	uc       *RecoverSessionUseCase
}

func newRecoveryFixture(t *testing.T) *recoveryFixture {
	t.Helper()
	idGen := testIDGen()
	kv := memory.New(0)
	sessions := persistence.NewSessionStore(kv, 0, idGen)
	autosaves := persistence.NewAutoSaveStore(kv)
	docs := documents.NewStore()
	return &recoveryFixture{
		kv:       kv,
		sessions: sessions,
		autosave: autosaves,
		docs:     docs,
		uc:       NewRecoverSessionUseCase(sessions, autosaves, docs, idGen),
	}
}

func twoPaneSnapshot(modified time.Time) *entity.SessionSnapshot {
	ts := entity.UnixMillis(modified)
	return &entity.SessionSnapshot{
		Version:   entity.SnapshotVersion,
		Timestamp: entity.UnixMillis(entity.Now()),
		Tabs: map[string]entity.TabSnapshot{
			"t1": {ID: "t1", Title: "main.go", Content: "package main", Language: "go", IsActive: true, CreatedAt: ts, ModifiedAt: ts},
			"t2": {ID: "t2", Title: "notes.md", Content: "# notes", Language: "markdown", IsActive: true, CreatedAt: ts, ModifiedAt: ts},
		},
		Panes: map[string]entity.PaneSnapshot{
			"p1": {ID: "p1", TabIDs: []string{"t1"}, ActiveTabID: "t1"},
			"p2": {ID: "p2", TabIDs: []string{"t2"}, ActiveTabID: "t2"},
		},
		Layout: &entity.LayoutSnapshot{
			ID: "s1", Kind: "split", Direction: entity.Vertical, Ratio: 0.5,
			Children: []*entity.LayoutSnapshot{
				{ID: "p1", Kind: "leaf", PaneID: "p1"},
				{ID: "p2", Kind: "leaf", PaneID: "p2"},
			},
		},
		ActivePaneID: "p2",
	}
}

func findWorkbenchTab(t *testing.T, wb *entity.Workbench, tabID string) entity.Tab {
	t.Helper()
	for _, leaf := range entity.Leaves(wb.Root) {
		for _, tab := range leaf.Tabs {
			if tab.ID == tabID {
				return tab
			}
		}
	}
	t.Fatalf("tab %s not found in workbench", tabID)
	return entity.Tab{}
}

func hasWarningContaining(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestRecoverFirstRun(t *testing.T) {
	f := newRecoveryFixture(t)

	out := f.uc.Execute(context.Background())

	assert.Equal(t, TierDefault, out.Tier)
	assert.False(t, out.Recovered)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)

	require.NotNil(t, out.Workbench)
	require.True(t, out.Workbench.Root.IsLeaf())
	require.Len(t, out.Workbench.Root.Tabs, 1)
	assert.Equal(t, WelcomeTitle, out.Workbench.Root.Tabs[0].Title)
	assert.NotEmpty(t, out.Workbench.Root.Tabs[0].DocumentID)
	assert.Empty(t, entity.Validate(out.Workbench.Root))
}

func TestRecoverFullRestore(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)
	snap := twoPaneSnapshot(entity.Now())
	require.NoError(t, f.sessions.Save(ctx, snap))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.False(t, out.Recovered)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)

	wb := out.Workbench
	assert.Equal(t, 2, entity.CountLeaves(wb.Root))
	assert.Equal(t, "p2", wb.ActivePanelID)
	assert.Empty(t, entity.Validate(wb.Root))

	// Tab ids survive so auto-save records keyed by tab id still match,
	// and documents are rebuilt from the inlined content.
	tab := findWorkbenchTab(t, wb, "t1")
	require.NotEmpty(t, tab.DocumentID)
	doc, err := f.docs.GetDocument(ctx, tab.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "package main", doc.Content)
	assert.Equal(t, "go", doc.Language)
}

func TestRecoverCorruptPrimaryUsesBackup(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	good := twoPaneSnapshot(entity.Now())
	require.NoError(t, f.sessions.Save(ctx, good))
	require.NoError(t, f.sessions.Save(ctx, twoPaneSnapshot(entity.Now())))
	require.NoError(t, f.kv.Set(ctx, port.KeySessionPrimary, []byte("{torn write")))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.True(t, out.Recovered)
	assert.True(t, hasWarningContaining(out.Warnings, "backup"))
	assert.Equal(t, 2, entity.CountLeaves(out.Workbench.Root))
	assert.Empty(t, entity.Validate(out.Workbench.Root))
}

func TestRecoverRepairsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	snap := twoPaneSnapshot(entity.Now())
	snap.Panes["p1"] = entity.PaneSnapshot{ID: "p1", TabIDs: []string{"t1", "ghost-tab"}, ActiveTabID: "ghost-tab"}
	snap.Layout.Children = append(snap.Layout.Children, &entity.LayoutSnapshot{ID: "p3", Kind: "leaf", PaneID: "ghost-pane"})
	snap.ActivePaneID = "ghost-pane"
	require.NoError(t, f.sessions.Save(ctx, snap))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.True(t, out.Recovered)
	assert.NotEmpty(t, out.Warnings)
	assert.Equal(t, 2, entity.CountLeaves(out.Workbench.Root))
	assert.Empty(t, entity.Validate(out.Workbench.Root))
	// The active pane was repaired to a real one.
	assert.NotEmpty(t, out.Workbench.ActivePanelID)
	assert.NotEqual(t, "ghost-pane", out.Workbench.ActivePanelID)
}

func TestRecoverSynthesizesPaneWhenNoneSurvive(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	snap := &entity.SessionSnapshot{
		Version:   entity.SnapshotVersion,
		Timestamp: entity.UnixMillis(entity.Now()),
		Tabs:      map[string]entity.TabSnapshot{},
		Panes:     map[string]entity.PaneSnapshot{},
	}
	require.NoError(t, f.sessions.Save(ctx, snap))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.True(t, out.Recovered)
	require.True(t, out.Workbench.Root.IsLeaf())
	require.Len(t, out.Workbench.Root.Tabs, 1)
	assert.Equal(t, entity.PlaceholderTitle, out.Workbench.Root.Tabs[0].Title)
	assert.Empty(t, entity.Validate(out.Workbench.Root))
}

func TestRecoverSalvagesTabsWhenTreeIsBroken(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	// Two layout leaves reference the same pane, producing duplicate node
	// ids that full restoration rejects.
	snap := twoPaneSnapshot(entity.Now())
	snap.Layout.Children[1] = &entity.LayoutSnapshot{ID: "p1", Kind: "leaf", PaneID: "p1"}
	delete(snap.Panes, "p2")
	snap.Panes["p1"] = entity.PaneSnapshot{ID: "p1", TabIDs: []string{"t1", "t2"}, ActiveTabID: "t1"}
	snap.ActivePaneID = "p1"
	require.NoError(t, f.sessions.Save(ctx, snap))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierPartial, out.Tier)
	assert.True(t, out.Recovered)
	require.NotEmpty(t, out.Errors)
	assert.True(t, hasWarningContaining(out.Warnings, "salvaged"))

	require.True(t, out.Workbench.Root.IsLeaf())
	require.Len(t, out.Workbench.Root.Tabs, 2)
	assert.Empty(t, entity.Validate(out.Workbench.Root))
}

func TestRecoverFromAutoSavesOnly(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	require.NoError(t, f.kv.Set(ctx, port.KeySessionPrimary, []byte("{unreadable")))
	require.NoError(t, f.autosave.Save(ctx, "tab-1", "draft content"))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierAutoSave, out.Tier)
	assert.True(t, out.Recovered)
	assert.NotEmpty(t, out.Errors)

	require.True(t, out.Workbench.Root.IsLeaf())
	require.Len(t, out.Workbench.Root.Tabs, 1)
	tab := out.Workbench.Root.Tabs[0]
	assert.Equal(t, "tab-1", tab.ID)
	assert.Equal(t, "Recovered tab-1", tab.Title)

	doc, err := f.docs.GetDocument(ctx, tab.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "draft content", doc.Content)
	assert.True(t, doc.IsDirty)
}

func TestRecoverFromAutoSavesWithoutAnySnapshot(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	// A crash after an auto-save fired but before the first full-session
	// save: the store holds no snapshot at all, only the draft.
	require.NoError(t, f.autosave.Save(ctx, "tab-1", "draft content"))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierAutoSave, out.Tier)
	assert.True(t, out.Recovered)
	assert.Empty(t, out.Errors)
	assert.True(t, hasWarningContaining(out.Warnings, "auto-saved"))

	require.True(t, out.Workbench.Root.IsLeaf())
	require.Len(t, out.Workbench.Root.Tabs, 1)
	tab := out.Workbench.Root.Tabs[0]
	assert.Equal(t, "tab-1", tab.ID)
	assert.Equal(t, "Recovered tab-1", tab.Title)

	doc, err := f.docs.GetDocument(ctx, tab.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "draft content", doc.Content)
	assert.True(t, doc.IsDirty)
}

func TestRecoverNeverReturnsEmptyWorkbench(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	require.NoError(t, f.kv.Set(ctx, port.KeySessionPrimary, []byte("{unreadable")))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierDefault, out.Tier)
	assert.True(t, out.Recovered)
	assert.NotEmpty(t, out.Errors)
	require.NotNil(t, out.Workbench)
	assert.NotNil(t, entity.FindFirstLeaf(out.Workbench.Root))
	assert.Empty(t, entity.Validate(out.Workbench.Root))
}

func TestRecoverNewerAutoSaveWins(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	snap := twoPaneSnapshot(entity.Now().Add(-time.Hour))
	require.NoError(t, f.sessions.Save(ctx, snap))
	require.NoError(t, f.autosave.Save(ctx, "t1", "package main // newer"))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.True(t, out.Recovered)
	assert.True(t, hasWarningContaining(out.Warnings, "auto-saved"))

	tab := findWorkbenchTab(t, out.Workbench, "t1")
	assert.True(t, strings.HasSuffix(tab.Title, AutoRecoveredSuffix))

	doc, err := f.docs.GetDocument(ctx, tab.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "package main // newer", doc.Content)
	assert.True(t, doc.IsDirty)

	// The untouched tab keeps its snapshot content.
	other := findWorkbenchTab(t, out.Workbench, "t2")
	assert.False(t, strings.HasSuffix(other.Title, AutoRecoveredSuffix))
}

func TestRecoverStaleAutoSaveIgnored(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	// Tab modified now; auto-save record two hours older.
	snap := twoPaneSnapshot(entity.Now())
	require.NoError(t, f.sessions.Save(ctx, snap))

	records := map[string]entity.AutoSaveRecord{
		"t1": {Content: "outdated draft", Timestamp: entity.UnixMillis(entity.Now().Add(-2 * time.Hour))},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, f.kv.Set(ctx, port.KeyAutoSave, data))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.False(t, out.Recovered)

	tab := findWorkbenchTab(t, out.Workbench, "t1")
	assert.False(t, strings.HasSuffix(tab.Title, AutoRecoveredSuffix))
	doc, err := f.docs.GetDocument(ctx, tab.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "package main", doc.Content)
}

func TestRecoverIdenticalAutoSaveIgnored(t *testing.T) {
	ctx := context.Background()
	f := newRecoveryFixture(t)

	snap := twoPaneSnapshot(entity.Now().Add(-time.Hour))
	require.NoError(t, f.sessions.Save(ctx, snap))
	// Newer record with identical content: nothing was lost, no override.
	require.NoError(t, f.autosave.Save(ctx, "t1", "package main"))

	out := f.uc.Execute(ctx)

	assert.Equal(t, TierFull, out.Tier)
	assert.False(t, out.Recovered)
	tab := findWorkbenchTab(t, out.Workbench, "t1")
	assert.False(t, strings.HasSuffix(tab.Title, AutoRecoveredSuffix))
}

func TestRepairSnapshotIsIdempotent(t *testing.T) {
	f := newRecoveryFixture(t)

	valid := twoPaneSnapshot(entity.Now())
	once, warnings1 := f.uc.repairSnapshot(valid)
	assert.Empty(t, warnings1)

	twice, warnings2 := f.uc.repairSnapshot(once)
	assert.Empty(t, warnings2)
	assert.Equal(t, once.Panes, twice.Panes)
	assert.Equal(t, once.Tabs, twice.Tabs)
	assert.Equal(t, once.ActivePaneID, twice.ActivePaneID)
	assert.Equal(t, once.Layout, twice.Layout)
}
