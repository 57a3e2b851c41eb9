// Package gate implements the start-block gate (spec §4.6/§9, component
// C9): a latch that opens the first time an accepted block's height reaches
// a configured threshold, gating trace/block processing but never account
// projection (spec invariant 6).
package gate

import "sync/atomic"

// Gate is a one-way latch, safe for concurrent use per spec §5's
// "start_block_reached ... must be atomic booleans".
type Gate struct {
	startBlockNum uint64
	reached       atomic.Bool
}

// New creates a Gate for the given start block number. A threshold of 0
// means the gate starts open, matching spec §6's default.
func New(startBlockNum uint64) *Gate {
	g := &Gate{startBlockNum: startBlockNum}
	if startBlockNum == 0 {
		g.reached.Store(true)
	}
	return g
}

// Observe advances the gate if height reaches the configured threshold and
// returns whether the gate is open after the observation.
func (g *Gate) Observe(height uint64) bool {
	if !g.reached.Load() && height >= g.startBlockNum {
		g.reached.Store(true)
	}
	return g.reached.Load()
}

// Open reports the gate's current state without observing a new height.
func (g *Gate) Open() bool {
	return g.reached.Load()
}
