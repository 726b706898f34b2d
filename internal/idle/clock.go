package idle

import "time"

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// Clock abstracts time so timers can be driven manually in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc schedules f with time.AfterFunc.
func (SystemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
