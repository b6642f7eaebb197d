// Package snapshot coalesces workbench changes into debounced session
// snapshot writes.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/tessera-ide/tessera/internal/domain/entity"
	"github.com/tessera-ide/tessera/internal/logging"
)

// DefaultDebounce is the quiet period between a state change and the write.
const DefaultDebounce = 5 * time.Second

// Saver persists one workbench snapshot.
type Saver func(ctx context.Context, wb *entity.Workbench) error

// Service debounces session snapshot writes. Each MarkDirty re-arms a single
// timer; the write fires once after the configured quiet period, so bursts of
// tree operations cost one storage write.
type Service struct {
	save  Saver
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	dirty  *entity.Workbench
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a snapshot service. debounceMs at or below zero selects
// the default quiet period.
func NewService(save Saver, debounceMs int) *Service {
	delay := time.Duration(debounceMs) * time.Millisecond
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Service{save: save, delay: delay}
}

// Start makes the service accept MarkDirty calls.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
}

// MarkDirty records the workbench as changed and re-arms the debounce timer.
// Calls before Start are ignored.
func (s *Service) MarkDirty(wb *entity.Workbench) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	s.dirty = wb
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// SaveNow writes a snapshot immediately, discarding any pending debounced
// write it would duplicate.
func (s *Service) SaveNow(ctx context.Context, wb *entity.Workbench) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.dirty = nil
	s.mu.Unlock()
	return s.save(ctx, wb)
}

// Pending reports whether a debounced write is armed.
func (s *Service) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop flushes a pending write and stops accepting new ones.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	var wb *entity.Workbench
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		wb = s.dirty
	}
	s.dirty = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if wb != nil {
		if err := s.save(ctx, wb); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("final snapshot write failed")
		}
	}
}

func (s *Service) fire() {
	s.mu.Lock()
	wb := s.dirty
	ctx := s.ctx
	s.timer = nil
	s.dirty = nil
	s.mu.Unlock()

	if wb == nil || ctx == nil || ctx.Err() != nil {
		return
	}
	if err := s.save(ctx, wb); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("debounced snapshot write failed")
	}
}
