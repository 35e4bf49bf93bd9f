// Package scheduler runs the periodic background switch.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Tick is invoked on every period
type Tick func(ctx context.Context) error

// Scheduler owns at most one periodic timer
type Scheduler struct {
	tick Tick
	// unit is the length of one interval step, a minute outside tests
	unit time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// New creates a stopped scheduler
func New(tick Tick) *Scheduler {
	return &Scheduler{tick: tick, unit: time.Minute}
}

// Apply replaces the current timer. The old timer is fully stopped before a
// new one is armed, so at most one is ever active.
func (s *Scheduler) Apply(enabled bool, intervalMinutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !enabled || intervalMinutes <= 0 {
		slog.Debug("Auto-switch disabled")
		return
	}

	interval := time.Duration(intervalMinutes) * s.unit
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done, s.interval = cancel, done, interval

	go s.run(ctx, interval, done)
	slog.Info("Auto-switch armed", "interval", interval)
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Debug("Auto-switch tick")
			if err := s.tick(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Auto-switch failed", "error", err)
			}
		}
	}
}

// Stop cancels the timer, if any, and waits for its goroutine to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done, s.interval = nil, nil, 0
}

// Active returns the number of armed timers, zero or one
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return 0
	}
	return 1
}

// Interval returns the armed period, or zero when stopped
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}
