package snapshot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ide/tessera/internal/domain/entity"
)

func countingSaver(calls *atomic.Int64) Saver {
	return func(context.Context, *entity.Workbench) error {
		calls.Add(1)
		return nil
	}
}

func testWorkbench() *entity.Workbench {
	n := 0
	return entity.NewWorkbench(func() string {
		n++
		return string(rune('a' + n))
	})
}

func TestServiceDebounceClamping(t *testing.T) {
	var calls atomic.Int64
	assert.Equal(t, DefaultDebounce, NewService(countingSaver(&calls), 0).delay)
	assert.Equal(t, DefaultDebounce, NewService(countingSaver(&calls), -100).delay)
	assert.Equal(t, 8*time.Second, NewService(countingSaver(&calls), 8000).delay)
}

func TestServiceStopFlushesPendingWrite(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc := NewService(countingSaver(&calls), 60000)
	svc.Start(ctx)

	wb := testWorkbench()
	svc.MarkDirty(wb)
	svc.MarkDirty(wb) // coalesced into the same pending write
	assert.True(t, svc.Pending())

	svc.Stop(ctx)

	assert.False(t, svc.Pending())
	assert.Equal(t, int64(1), calls.Load())
}

func TestServiceSaveNowDiscardsPending(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc := NewService(countingSaver(&calls), 60000)
	svc.Start(ctx)
	defer svc.Stop(ctx)

	wb := testWorkbench()
	svc.MarkDirty(wb)

	require.NoError(t, svc.SaveNow(ctx, wb))

	assert.False(t, svc.Pending())
	assert.Equal(t, int64(1), calls.Load())
}

func TestServiceMarkDirtyBeforeStartIsNoop(t *testing.T) {
	var calls atomic.Int64
	svc := NewService(countingSaver(&calls), 60000)

	svc.MarkDirty(testWorkbench())

	assert.False(t, svc.Pending())
	assert.Zero(t, calls.Load())
}

func TestServiceDebouncedWriteFires(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	svc := NewService(countingSaver(&calls), 50)
	svc.Start(ctx)
	defer svc.Stop(ctx)

	svc.MarkDirty(testWorkbench())

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.False(t, svc.Pending())
}
