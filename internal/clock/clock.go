// Package clock supplies wall-clock time to the scheduler.
package clock

import "time"

// Clock returns the current local time.
type Clock interface {
	Now() time.Time
}

// System reads the host clock in the local time zone.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Set T to move it.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Advance moves a Fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
