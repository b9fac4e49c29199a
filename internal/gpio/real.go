//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIO owns the flow-sensor input and the two relay outputs on actual
// hardware.
type RealIO struct {
	chip      *gpiocdev.Chip
	flowLine  *gpiocdev.Line
	valveLine *gpiocdev.Line
	motorLine *gpiocdev.Line
}

// NewRealIO opens the GPIO chip and requests all three lines. onPulse is
// invoked from the gpiocdev event goroutine on every rising edge of the flow
// sensor; it must be short and non-blocking (the pulse counter's atomic
// increment qualifies).
func NewRealIO(flowPin, valvePin, motorPin int, onPulse func()) (*RealIO, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Flow sensor: input with pull-down, rising-edge events.
	flowLine, err := chip.RequestLine(flowPin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onPulse() }))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request flow pin %d: %w", flowPin, err)
	}

	// Relay outputs are active-low: drive them inactive (high) at startup so
	// valve and motor come up off.
	valveLine, err := chip.RequestLine(valvePin, gpiocdev.AsOutput(1))
	if err != nil {
		flowLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request valve pin %d: %w", valvePin, err)
	}

	motorLine, err := chip.RequestLine(motorPin, gpiocdev.AsOutput(1))
	if err != nil {
		valveLine.Close()
		flowLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request motor pin %d: %w", motorPin, err)
	}

	return &RealIO{
		chip:      chip,
		flowLine:  flowLine,
		valveLine: valveLine,
		motorLine: motorLine,
	}, nil
}

// Valve returns the actuator for the fill valve relay.
func (r *RealIO) Valve() Actuator {
	return &realActuator{line: r.valveLine, name: "valve"}
}

// Motor returns the actuator for the pump motor relay.
func (r *RealIO) Motor() Actuator {
	return &realActuator{line: r.motorLine, name: "motor"}
}

// Close drives both relays inactive, reconfigures the flow pin to a plain
// input, and releases the chip. Deactivating the outputs first means a
// daemon restart never leaves the valve energized.
func (r *RealIO) Close() error {
	var errs []error

	if r.valveLine != nil {
		if err := r.valveLine.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("deactivate valve: %w", err))
		}
		if err := r.valveLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close valve line: %w", err))
		}
	}
	if r.motorLine != nil {
		if err := r.motorLine.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("deactivate motor: %w", err))
		}
		if err := r.motorLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close motor line: %w", err))
		}
	}
	if r.flowLine != nil {
		if err := r.flowLine.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure flow pin: %w", err))
		}
		if err := r.flowLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close flow line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// realActuator drives one active-low relay line.
type realActuator struct {
	line *gpiocdev.Line
	name string
}

func (a *realActuator) Set(on bool) error {
	// Active-low relay: logical on = line low.
	v := 1
	if on {
		v = 0
	}
	if err := a.line.SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", a.name, err)
	}
	return nil
}
