package autosave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ide/tessera/internal/infrastructure/persistence"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence/memory"
)

func newSchedulerFixture(delayMs int) (*Scheduler, *persistence.AutoSaveStore, map[string]string) {
	store := persistence.NewAutoSaveStore(memory.New(0))
	contents := map[string]string{}
	sched := NewScheduler(store, func(tabID string) (string, bool) {
		content, ok := contents[tabID]
		return content, ok
	}, delayMs, nil)
	return sched, store, contents
}

func TestSchedulerDelayClamping(t *testing.T) {
	tests := []struct {
		name    string
		delayMs int
		want    time.Duration
	}{
		{"zero selects default", 0, DefaultDelay},
		{"negative selects default", -5, DefaultDelay},
		{"below floor clamps up", 200, MinDelay},
		{"above floor kept", 3000, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, _, _ := newSchedulerFixture(tt.delayMs)
			assert.Equal(t, tt.want, sched.delay)
		})
	}
}

func TestSchedulerFlushWritesPending(t *testing.T) {
	ctx := context.Background()
	sched, store, contents := newSchedulerFixture(0)
	sched.Start(ctx)
	defer sched.Stop(ctx)

	contents["t1"] = "draft one"
	contents["t2"] = "draft two"
	sched.Schedule("t1")
	sched.Schedule("t2")
	sched.Schedule("t1") // re-arm, still one pending write
	assert.Equal(t, 2, sched.Pending())

	sched.Flush(ctx)

	assert.Zero(t, sched.Pending())
	records, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "draft one", records["t1"].Content)
	assert.Equal(t, "draft two", records["t2"].Content)
}

func TestSchedulerSkipsVanishedTabs(t *testing.T) {
	ctx := context.Background()
	sched, store, _ := newSchedulerFixture(0)
	sched.Start(ctx)
	defer sched.Stop(ctx)

	sched.Schedule("gone")
	sched.Flush(ctx)

	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSchedulerDiscardDropsPendingAndStored(t *testing.T) {
	ctx := context.Background()
	sched, store, contents := newSchedulerFixture(0)
	sched.Start(ctx)
	defer sched.Stop(ctx)

	contents["t1"] = "draft"
	require.NoError(t, store.Save(ctx, "t1", "stored earlier"))
	sched.Schedule("t1")

	require.NoError(t, sched.Discard(ctx, "t1"))

	assert.Zero(t, sched.Pending())
	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSchedulerScheduleBeforeStartIsNoop(t *testing.T) {
	sched, _, contents := newSchedulerFixture(0)
	contents["t1"] = "draft"

	sched.Schedule("t1")

	assert.Zero(t, sched.Pending())
}

func TestSchedulerStatusCallback(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewAutoSaveStore(memory.New(0))
	var gotTab string
	var gotErr error
	sched := NewScheduler(store, func(string) (string, bool) { return "content", true }, 0, func(tabID string, err error) {
		gotTab = tabID
		gotErr = err
	})
	sched.Start(ctx)
	defer sched.Stop(ctx)

	sched.Schedule("t1")
	sched.Flush(ctx)

	assert.Equal(t, "t1", gotTab)
	assert.NoError(t, gotErr)
}

func TestSchedulerDebouncedWrite(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewAutoSaveStore(memory.New(0))
	sched := NewScheduler(store, func(string) (string, bool) { return "typed text", true }, 1000, nil)
	sched.Start(ctx)
	defer sched.Stop(ctx)

	sched.Schedule("t1")

	require.Eventually(t, func() bool {
		records, err := store.All(ctx)
		return err == nil && len(records) == 1
	}, 3*time.Second, 50*time.Millisecond)

	records, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "typed text", records["t1"].Content)
}
