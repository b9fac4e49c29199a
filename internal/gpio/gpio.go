// Package gpio provides the tank filler's hardware abstraction.
// The real implementation uses the Linux GPIO character device; fakes allow
// testing without hardware.
package gpio

// Actuator drives a single output line (valve relay or motor relay).
type Actuator interface {
	// Set drives the line to the requested logical state.
	// The relay board is active-low; the inversion happens here, not in the
	// control logic.
	Set(on bool) error
}

// Default pin assignments (BCM numbering, matching the installed wiring).
const (
	DefaultPinFlow  = 18 // flow sensor pulse input
	DefaultPinValve = 23 // fill valve relay
	DefaultPinMotor = 22 // pump motor relay
)
