package clock

import "time"

// Clock abstracts the current time so conflict windows, sweep grace
// periods and expiry checks are deterministic under test.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// New returns a Clock backed by the wall clock.
func New() Clock { return realClock{} }

// Fixed is a Clock pinned to a settable instant. Not safe for
// concurrent mutation; intended for tests.
type Fixed struct {
	Time time.Time
}

func NewFixed(t time.Time) *Fixed { return &Fixed{Time: t} }

func (f *Fixed) Now() time.Time { return f.Time }

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.Time = f.Time.Add(d) }
