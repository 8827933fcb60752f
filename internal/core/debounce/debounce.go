// Package debounce provides a single-shot timer that coalesces refresh requests
// and fires its callback at most once per arm, after a mutable delay
package debounce

import (
	"sync"
	"time"
)

// Timer is the stoppable handle returned by a Clock
type Timer interface {
	Stop() bool
}

// Clock schedules f to run after d. time.AfterFunc satisfies it through realClock
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option mutates a Scheduler during New
type Option func(*Scheduler)

// WithClock swaps the timer source (tests use a manual clock)
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDelay sets the initial delay
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.delay = clamp(d) }
}

// Scheduler coalesces Request calls into one callback invocation
// arm, cancel and the fire check are serialized on mu; gen identifies the live arm
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	fn      func()
	delay   time.Duration
	timer   Timer
	gen     uint64
	pending bool
	closed  bool
}

// New returns a Scheduler that runs fn when an armed timer fires
func New(fn func(), opts ...Option) *Scheduler {
	if fn == nil {
		panic("debounce: nil callback")
	}
	s := &Scheduler{clock: realClock{}, fn: fn}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Request arms the timer with the current delay, replacing any pending arm
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Cancel drops a pending arm; safe when nothing is pending
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.stopLocked()
	s.gen++
	s.mu.Unlock()
}

// SetDelay updates the delay used by the next Request; an armed timer keeps its delay
func (s *Scheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = clamp(d)
	s.mu.Unlock()
}

// Delay returns the delay the next Request will use
func (s *Scheduler) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// Pending reports whether an arm is waiting to fire
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close cancels any pending arm and turns later Requests into no-ops
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.gen++
	s.closed = true
	s.mu.Unlock()
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.fn()
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
