// Package autosave schedules debounced per-tab content writes to the
// auto-save store.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/tessera-ide/tessera/internal/domain/repository"
	"github.com/tessera-ide/tessera/internal/logging"
)

const (
	// DefaultDelay is the debounce window between the last edit and the
	// write.
	DefaultDelay = 2 * time.Second
	// MinDelay is the floor for configured delays; anything tighter just
	// burns storage writes.
	MinDelay = time.Second
	// PruneInterval is how often expired records are swept.
	PruneInterval = time.Hour
)

// ContentProvider returns the current content for a tab at flush time. ok is
// false when the tab no longer exists, in which case nothing is written.
type ContentProvider func(tabID string) (content string, ok bool)

// StatusFunc receives the outcome of each write attempt so the shell can
// surface persistent failures.
type StatusFunc func(tabID string, err error)

// Scheduler debounces auto-save writes per tab. Each edited tab gets its own
// timer; further edits within the window reset it, so a burst of typing
// produces one write.
type Scheduler struct {
	store    repository.AutoSaveStore
	content  ContentProvider
	onStatus StatusFunc
	delay    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. delayMs below the floor is clamped; zero
// or negative selects the default.
func NewScheduler(store repository.AutoSaveStore, content ContentProvider, delayMs int, onStatus StatusFunc) *Scheduler {
	delay := time.Duration(delayMs) * time.Millisecond
	if delayMs <= 0 {
		delay = DefaultDelay
	} else if delay < MinDelay {
		delay = MinDelay
	}
	return &Scheduler{
		store:    store,
		content:  content,
		onStatus: onStatus,
		delay:    delay,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins accepting schedule requests and launches the periodic prune
// sweep.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	sctx := s.ctx
	s.mu.Unlock()

	logging.FromContext(ctx).Debug().Dur("delay", s.delay).Msg("auto-save scheduler started")

	go s.pruneLoop(sctx)
}

// Stop cancels the sweep, flushes every pending write, and stops all timers.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.Flush(ctx)
}

// Schedule arms (or re-arms) the debounce timer for a tab.
func (s *Scheduler) Schedule(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}
	if timer, ok := s.timers[tabID]; ok {
		timer.Stop()
	}
	s.timers[tabID] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		ctx := s.ctx
		delete(s.timers, tabID)
		s.mu.Unlock()

		if ctx == nil || ctx.Err() != nil {
			return
		}
		s.flushTab(ctx, tabID)
	})
}

// Discard stops any pending write for a tab and deletes its stored record.
// Called when a tab closes cleanly, so stale content cannot resurface at the
// next recovery.
func (s *Scheduler) Discard(ctx context.Context, tabID string) error {
	s.mu.Lock()
	if timer, ok := s.timers[tabID]; ok {
		timer.Stop()
		delete(s.timers, tabID)
	}
	s.mu.Unlock()

	return s.store.Delete(ctx, tabID)
}

// Flush writes every pending tab immediately (for shutdown).
func (s *Scheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	pending := make([]string, 0, len(s.timers))
	for tabID, timer := range s.timers {
		timer.Stop()
		pending = append(pending, tabID)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	for _, tabID := range pending {
		s.flushTab(ctx, tabID)
	}
}

// Pending returns how many tabs have an armed timer.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) flushTab(ctx context.Context, tabID string) {
	content, ok := s.content(tabID)
	if !ok {
		return
	}
	err := s.store.Save(ctx, tabID, content)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("tab_id", tabID).Msg("auto-save write failed")
	}
	if s.onStatus != nil {
		s.onStatus(tabID, err)
	}
}

func (s *Scheduler) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := s.store.Prune(ctx); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("auto-save prune failed")
			} else if removed > 0 {
				logging.FromContext(ctx).Debug().Int("removed", removed).Msg("pruned expired auto-save records")
			}
		}
	}
}
