package types

import "time"

// Clock abstracts time for testability. Services that make time-dependent
// decisions (credential expiry, sync windows, trigger math) take a Clock so
// tests can pin "now".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock pinned to a single instant, for tests.
type FixedClock struct {
	T time.Time
}

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time { return c.T }
