// Package clock abstracts timer scheduling so timing-dependent code
// (heartbeats, reconnect delays) can be driven deterministically in tests.
package clock

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	Now() time.Time

	// AfterFunc runs f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// System returns a Clock backed by the time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

type systemTimer struct {
	t *time.Timer
}

func (t systemTimer) Stop() bool {
	return t.t.Stop()
}
