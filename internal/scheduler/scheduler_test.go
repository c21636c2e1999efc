package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSchedulerTicks(t *testing.T) {
	var ticks atomic.Int64
	s := New(10*time.Millisecond, func(time.Time) {
		ticks.Add(1)
	}, zerolog.Nop())

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if got := ticks.Load(); got < 3 {
		t.Fatalf("expected at least 3 ticks in 100ms, got %d", got)
	}
}

func TestSchedulerStopHaltsTicking(t *testing.T) {
	var ticks atomic.Int64
	s := New(10*time.Millisecond, func(time.Time) {
		ticks.Add(1)
	}, zerolog.Nop())

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if got := ticks.Load(); got != after {
		t.Fatalf("ticks continued after Stop: %d -> %d", after, got)
	}
}

func TestSchedulerStopWhenIdle(t *testing.T) {
	s := New(time.Second, func(time.Time) {}, zerolog.Nop())
	s.Stop()
	s.Stop()
}

func TestSchedulerStartRestartsCleanly(t *testing.T) {
	var ticks atomic.Int64
	s := New(10*time.Millisecond, func(time.Time) {
		ticks.Add(1)
	}, zerolog.Nop())

	s.Start()
	s.Start()
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if got := ticks.Load(); got < 2 {
		t.Fatalf("restarted scheduler should keep ticking, got %d", got)
	}
}
