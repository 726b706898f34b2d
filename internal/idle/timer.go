// Package idle implements the idle-commit policy: a page visit becomes
// durable only after the presenter has stayed on the page for a short idle
// window, so rapid page flips collapse into a single recorded visit.
package idle

import (
	"sync"
	"time"
)

// DefaultTimeout is the idle window used when none is configured.
const DefaultTimeout = 2000 * time.Millisecond

// Timer holds at most one armed callback. Arming a new callback discards the
// previous one without running it.
type Timer struct {
	mu      sync.Mutex
	clock   Clock
	timeout time.Duration

	gen     uint64
	pending Stopper
	fn      func(elapsed time.Duration)
	armedAt time.Time
}

// New returns a Timer with the given idle window. A non-positive timeout
// selects DefaultTimeout; a nil clock selects the system clock.
func New(timeout time.Duration, clock Clock) *Timer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock, timeout: timeout}
}

// Timeout returns the idle window.
func (t *Timer) Timeout() time.Duration {
	return t.timeout
}

// Start arms fn to run once the idle window elapses. fn receives the wall
// time actually elapsed since arming. It reports whether a previously armed
// callback was discarded.
func (t *Timer) Start(fn func(elapsed time.Duration)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	discarded := t.fn != nil
	t.stopLocked()
	t.gen++
	gen := t.gen
	t.fn = fn
	t.armedAt = t.clock.Now()
	t.pending = t.clock.AfterFunc(t.timeout, func() { t.fire(gen) })
	return discarded
}

// Cancel disarms the timer without running the callback. It reports whether
// a callback was armed.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	armed := t.fn != nil
	t.stopLocked()
	return armed
}

// Flush stops the timer early and runs the armed callback synchronously
// with the partial elapsed time. It reports false when nothing was armed.
func (t *Timer) Flush() (time.Duration, bool) {
	t.mu.Lock()
	fn := t.fn
	if fn == nil {
		t.mu.Unlock()
		return 0, false
	}
	elapsed := t.clock.Now().Sub(t.armedAt)
	t.stopLocked()
	t.mu.Unlock()

	fn(elapsed)
	return elapsed, true
}

// Elapsed returns the time since the current callback was armed, or zero.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fn == nil {
		return 0
	}
	return t.clock.Now().Sub(t.armedAt)
}

// Armed reports whether a callback is waiting.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn != nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.fn == nil {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	elapsed := t.clock.Now().Sub(t.armedAt)
	t.fn = nil
	t.pending = nil
	t.mu.Unlock()

	fn(elapsed)
}

// stopLocked disarms the timer. Bumping the generation makes a callback that
// already left the clock's queue return without effect.
func (t *Timer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.fn = nil
	t.gen++
}
