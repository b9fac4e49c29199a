package control

import (
	"errors"
	"fmt"
	"time"
)

// ErrInterlocked is returned when a request would violate the valve/motor
// mutual exclusion. Callers can distinguish it from generic failures so a
// remote transport or log can surface "interlock blocked".
var ErrInterlocked = errors.New("interlock: motor may not start while valve is open")

// Output drives a physical actuator line.
type Output interface {
	Set(on bool) error
}

// Actuators owns the valve and motor state and enforces the mutual-exclusion
// safety rule on every transition. It is NOT safe for concurrent use on its
// own; the Controller serializes all access behind one mutex.
//
// The two directions are not symmetric: opening the valve shuts the motor
// off first and proceeds, but starting the motor while the valve is open is
// rejected outright. A motor request never implicitly closes the valve.
type Actuators struct {
	valve Output
	motor Output

	valveOpen     bool
	motorOn       bool
	scheduledRun  bool
	valveOpenedAt time.Time
}

// NewActuators wraps the given output lines. Both start logically off; the
// composition root drives the physical lines to a known state before wiring.
func NewActuators(valve, motor Output) *Actuators {
	return &Actuators{valve: valve, motor: motor}
}

// OpenValve opens the fill valve. If the motor is running it is switched off
// first, synchronously, so both are never active together. scheduled marks
// the session as scheduler-initiated (eligible for stall auto-close).
// Opening an already-open valve is a no-op that preserves the original
// opened-at timestamp and session kind.
func (a *Actuators) OpenValve(now time.Time, scheduled bool) ([]Event, error) {
	if a.valveOpen {
		return nil, nil
	}

	var events []Event

	if a.motorOn {
		if err := a.motor.Set(false); err != nil {
			return nil, fmt.Errorf("stop motor before valve open: %w", err)
		}
		a.motorOn = false
		events = append(events, a.event(now, EventMotorOff, CauseInterlock))
	}

	if err := a.valve.Set(true); err != nil {
		return events, fmt.Errorf("open valve: %w", err)
	}
	a.valveOpen = true
	a.scheduledRun = scheduled
	a.valveOpenedAt = now

	cause := CauseManual
	if scheduled {
		cause = CauseScheduled
	}
	events = append(events, a.event(now, EventValveOpen, cause))
	return events, nil
}

// CloseValve closes the valve unconditionally and ends any scheduled run.
// Closing an already-closed valve is a no-op.
func (a *Actuators) CloseValve(now time.Time, cause Cause) ([]Event, error) {
	if !a.valveOpen {
		return nil, nil
	}

	if err := a.valve.Set(false); err != nil {
		return nil, fmt.Errorf("close valve: %w", err)
	}
	a.valveOpen = false
	a.scheduledRun = false
	a.valveOpenedAt = time.Time{}

	return []Event{a.event(now, EventValveClose, cause)}, nil
}

// StartMotor turns the pump motor on. Rejected with ErrInterlocked while the
// valve is open; the caller must close the valve and observe it closed first.
func (a *Actuators) StartMotor(now time.Time) ([]Event, error) {
	if a.valveOpen {
		return nil, ErrInterlocked
	}
	if a.motorOn {
		return nil, nil
	}

	if err := a.motor.Set(true); err != nil {
		return nil, fmt.Errorf("start motor: %w", err)
	}
	a.motorOn = true

	return []Event{a.event(now, EventMotorOn, CauseManual)}, nil
}

// StopMotor turns the pump motor off unconditionally.
func (a *Actuators) StopMotor(now time.Time) ([]Event, error) {
	if !a.motorOn {
		return nil, nil
	}

	if err := a.motor.Set(false); err != nil {
		return nil, fmt.Errorf("stop motor: %w", err)
	}
	a.motorOn = false

	return []Event{a.event(now, EventMotorOff, CauseManual)}, nil
}

// ValveOpen reports the commanded valve state.
func (a *Actuators) ValveOpen() bool { return a.valveOpen }

// MotorOn reports the commanded motor state.
func (a *Actuators) MotorOn() bool { return a.motorOn }

// ScheduledRun reports whether the current valve-open session was started by
// the scheduler.
func (a *Actuators) ScheduledRun() bool { return a.scheduledRun }

// ValveOpenedAt returns when the valve was opened, or the zero time if it is
// closed.
func (a *Actuators) ValveOpenedAt() time.Time { return a.valveOpenedAt }

func (a *Actuators) event(now time.Time, typ EventType, cause Cause) Event {
	return Event{
		Timestamp: now,
		Type:      typ,
		Cause:     cause,
		ValveOpen: a.valveOpen,
		MotorOn:   a.motorOn,
	}
}
