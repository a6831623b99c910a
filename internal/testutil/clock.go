package testutil

import (
	"sync"
	"time"
)

// FixedClock is a deterministic wall clock for tests and golden traces.
//
// Each call to Now returns the previous value plus step, starting at start.
// This gives every record a distinct, reproducible timestamp.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// DefaultStart is the first instant returned by NewDefaultClock.
var DefaultStart = time.Date(2023, 10, 25, 9, 0, 0, 0, time.UTC)

// NewFixedClock creates a clock whose first Now() returns start.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{start: start.UTC(), step: step}
}

// NewDefaultClock starts at DefaultStart and steps one minute.
func NewDefaultClock() *FixedClock {
	return NewFixedClock(DefaultStart, time.Minute)
}

// Now returns the next instant. Monotonic: never decreases.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now has been called.
func (c *FixedClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock. After Reset(), the next Now() returns start.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
