package testutil

import (
	"github.com/roach88/khata/internal/gateway"
)

// NewRemote creates an in-memory remote with deterministic identities:
// customers are c-1, c-2, ..., transactions t-1, t-2, ..., and timestamps
// come from a NewDefaultClock.
//
// The same sequence of calls against two NewRemote instances produces
// byte-identical results, which golden traces rely on.
func NewRemote(opts ...gateway.MemoryOption) *gateway.Memory {
	clock := NewDefaultClock()
	base := []gateway.MemoryOption{
		gateway.WithIDs(gateway.NewSequenceGenerator("c"), gateway.NewSequenceGenerator("t")),
		gateway.WithClock(clock.Now),
	}
	return gateway.NewMemory(append(base, opts...)...)
}
