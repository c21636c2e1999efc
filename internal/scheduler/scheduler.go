package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every interval with the tick's wall time.
type TickFunc func(now time.Time)

// Scheduler drives the periodic re-evaluation pass. Start while running
// restarts cleanly; Stop is safe when idle and waits for an in-flight
// tick to complete before returning.
type Scheduler struct {
	interval time.Duration
	tick     TickFunc
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Scheduler instance.
func New(interval time.Duration, tick TickFunc, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		interval: interval,
		tick:     tick,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins ticking. A running scheduler is stopped first.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	go s.loop(ctx, done)
}

// Stop halts ticking. No-op when not running. Must not be called from
// within the tick function.
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
	s.cancel = nil
	s.done = nil
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}
