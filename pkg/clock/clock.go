// Package clock abstracts wall time so TTL-driven code can be tested
// without sleeping.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// New returns a new RealClock.
func New() Clock {
	return RealClock{}
}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
