package timectrl

import (
	"sync"
	"time"
)

// Clock is an interface for reading time. The broadcast loop and the
// simulation engine depend on this abstraction rather than on time.Now
// directly, enabling testability and uniform skew compensation.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// OffsetClock shifts every reading of the wrapped clock by a fixed signed
// offset, compensating for upstream clock skew.
type OffsetClock struct {
	Base   Clock
	Offset time.Duration
}

// Now implements Clock.
func (c OffsetClock) Now() time.Time { return c.Base.Now().Add(c.Offset) }

// WithOffset wraps base so that every reading is shifted by offset. A zero
// offset returns base unchanged.
func WithOffset(base Clock, offset time.Duration) Clock {
	if offset == 0 {
		return base
	}
	return OffsetClock{Base: base, Offset: offset}
}

// ManualClock is a Clock whose time only moves when told to. Intended for
// tests.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock constructs a manual clock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to the given time.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
