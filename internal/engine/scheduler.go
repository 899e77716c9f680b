package engine

import (
	"sync"
	"time"
)

// RevealDelay is how long both faces of a selected pair stay visible before
// the pair is resolved.
const RevealDelay = 1000 * time.Millisecond

// Timer is a handle on a scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs deferred state transitions.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RuntimeScheduler schedules callbacks on the Go runtime timers.
type RuntimeScheduler struct{}

// AfterFunc implements Scheduler.
func (RuntimeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualScheduler queues callbacks until Fire is called. Tests use it to step
// through resolutions without sleeping.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer

	// IgnoreStop makes Stop report success without cancelling the callback.
	// It reproduces a timer that fired just before it was stopped.
	IgnoreStop bool
}

type manualTimer struct {
	s       *ManualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	if !t.s.IgnoreStop {
		t.stopped = true
	}
	return true
}

// Pending returns how many callbacks are waiting to run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// Delays returns the delay of every callback scheduled so far.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.delay
	}
	return out
}

// Fire runs every pending callback in scheduling order and returns how many
// ran. Callbacks scheduled while firing are left for the next call.
func (s *ManualScheduler) Fire() int {
	s.mu.Lock()
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}
