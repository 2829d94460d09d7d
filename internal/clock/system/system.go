// Package system provides clocks for run and job timestamps.
package system

import "time"

// Clock implements crawler.Clock using the wall clock in UTC, truncated to
// microseconds so values survive a round trip through Postgres unchanged.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Stopped is a clock frozen at one instant.
type Stopped struct {
	At time.Time
}

// Now returns the frozen instant.
func (s Stopped) Now() time.Time {
	return s.At
}
