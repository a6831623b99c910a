package reconcile

import "sync/atomic"

// Clock stamps refetches with strictly increasing sequence numbers.
//
// A refetch takes its number before the remote call is issued, so a larger
// number always describes remote state at least as new as a smaller one. The
// ledger store uses the numbers to drop results that arrive out of order.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() uint64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() uint64 {
	return c.seq.Load()
}
