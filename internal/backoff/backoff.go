// Package backoff computes reconnection delays: exponential growth capped
// at a maximum, plus bounded additive jitter so many clients recovering
// from the same outage do not retry in lockstep.
package backoff

import (
	"math/rand"
	"time"
)

// Default policy values, matching the service's reconnect settings.
const (
	DefaultBase   = 1 * time.Second
	DefaultMax    = 30 * time.Second
	DefaultJitter = 500 * time.Millisecond
)

// Policy describes a backoff schedule.
type Policy struct {
	Base   time.Duration // delay before the first retry
	Max    time.Duration // cap on the deterministic part of the delay
	Jitter time.Duration // upper bound (exclusive) on the random addition
}

// DefaultPolicy returns the standard reconnect schedule.
func DefaultPolicy() Policy {
	return Policy{
		Base:   DefaultBase,
		Max:    DefaultMax,
		Jitter: DefaultJitter,
	}
}

// Delay returns the wait before retry number attempt (1-indexed). The
// deterministic part is min(Base * 2^(attempt-1), Max); jitter is only ever
// added, so the result never falls below the deterministic curve and is
// always strictly less than Max + Jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		// Doubling past Max (or overflowing) can only land on Max.
		if d >= p.Max || d < 0 {
			d = p.Max
			break
		}
	}
	if d > p.Max {
		d = p.Max
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}
