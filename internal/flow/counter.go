// Package flow provides the pulse counter and flow-rate derivation for the
// tank filler's flow sensor. The counter is the only state shared between the
// GPIO edge-event goroutine and the control loop; everything else in this
// package is pure.
package flow

import "sync/atomic"

// Counter accumulates flow-sensor pulses. Pulse is safe to call from the GPIO
// event goroutine while Drain runs on the control loop.
type Counter struct {
	pulses atomic.Int64
}

// NewCounter creates an empty pulse counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Pulse records one sensor edge. Called from the GPIO event handler; does
// nothing but the increment.
func (c *Counter) Pulse() {
	c.pulses.Add(1)
}

// Drain atomically reads and resets the accumulated pulse count.
// The swap guarantees no pulse is lost between the read and the reset.
func (c *Counter) Drain() int {
	return int(c.pulses.Swap(0))
}
