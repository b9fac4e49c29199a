//go:build !linux

package gpio

import "errors"

// RealIO is not available on non-Linux platforms.
type RealIO struct{}

// NewRealIO returns an error on non-Linux platforms.
func NewRealIO(flowPin, valvePin, motorPin int, onPulse func()) (*RealIO, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Valve is not implemented on non-Linux platforms.
func (r *RealIO) Valve() Actuator { return nil }

// Motor is not implemented on non-Linux platforms.
func (r *RealIO) Motor() Actuator { return nil }

// Close is not implemented on non-Linux platforms.
func (r *RealIO) Close() error { return nil }
