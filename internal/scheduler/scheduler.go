// Package scheduler periodically resyncs every registered domain's vector
// collection with its source-of-record. Domains register an explicit
// Refreshable capability at construction; there is no runtime discovery.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/metrics"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// Refreshable is implemented by every unit that can resync itself from its
// source-of-record.
type Refreshable interface {
	Name() string
	Refresh(ctx context.Context) error
}

type Scheduler struct {
	interval time.Duration

	mu      sync.Mutex
	entries []Refreshable
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	// cycleRunning prevents overlapping cycles: a tick that fires while the
	// previous cycle is still in flight is dropped.
	cycleRunning atomic.Bool
}

func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{interval: interval}
}

// Register adds a refreshable unit. Registration after Start takes effect
// from the next cycle.
func (s *Scheduler) Register(r Refreshable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, r)
	logger.Info("Refresh unit registered", zap.String("unit", r.Name()))
}

// Start launches the background timer and runs one cycle immediately.
// Starting an already running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true
	s.mu.Unlock()

	logger.Info("Refresh scheduler started", zap.Duration("interval", s.interval))

	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle invokes every registered unit sequentially. A failing or
// panicking unit is logged and never aborts the rest of the cycle; there
// are no retries within a cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.cycleRunning.CompareAndSwap(false, true) {
		logger.Warn("Previous refresh cycle still running, skipping")
		return
	}
	defer s.cycleRunning.Store(false)

	s.mu.Lock()
	entries := make([]Refreshable, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	started := time.Now()
	logger.Info("Refresh cycle started", zap.Int("units", len(entries)))

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		s.refreshOne(ctx, entry)
	}

	metrics.RefreshCyclesTotal.Inc()
	logger.Info("Refresh cycle completed", zap.Duration("elapsed", time.Since(started)))
}

func (s *Scheduler) refreshOne(ctx context.Context, entry Refreshable) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RefreshFailuresTotal.WithLabelValues(entry.Name()).Inc()
			logger.Error("Refresh unit panicked",
				zap.String("unit", entry.Name()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := entry.Refresh(ctx); err != nil {
		metrics.RefreshFailuresTotal.WithLabelValues(entry.Name()).Inc()
		logger.Error("Refresh unit failed",
			zap.String("unit", entry.Name()),
			zap.Error(err),
		)
		return
	}

	logger.Info("Refresh unit completed", zap.String("unit", entry.Name()))
}

// Stop halts the timer. An in-flight cycle is cancelled through its
// context; no partial-refresh state is persisted. Stop blocks until the
// background goroutine exits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	logger.Info("Refresh scheduler stopped")
}
