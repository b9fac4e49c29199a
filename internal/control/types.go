// Package control contains the tank filler's control logic: the valve/motor
// safety interlock, the fill schedule, the stall guard, and the per-second
// controller tick that ties them together. This package has NO hardware or
// network dependencies; actuator outputs are injected and time is always a
// parameter.
package control

import "time"

// Weekday numbering used throughout the controller: 0=Monday .. 6=Sunday.
// Go's time.Weekday is Sunday-based, so conversions go through TimeOfDayFrom.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// TimeOfDay is the wall-clock view the scheduler operates on.
type TimeOfDay struct {
	Hour    int
	Minute  int
	Second  int
	Weekday int // 0=Monday .. 6=Sunday
}

// TimeOfDayFrom converts a local time into the controller's clock fields.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	// time.Weekday has Sunday=0; shift so Monday=0.
	wd := (int(t.Weekday()) + 6) % 7
	return TimeOfDay{
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: wd,
	}
}

// Weekend reports whether the day falls in the weekend schedule table.
func (d TimeOfDay) Weekend() bool {
	return d.Weekday >= Saturday
}

// EventType identifies an actuator transition.
type EventType string

const (
	EventValveOpen  EventType = "VALVE_OPEN"
	EventValveClose EventType = "VALVE_CLOSE"
	EventMotorOn    EventType = "MOTOR_ON"
	EventMotorOff   EventType = "MOTOR_OFF"
)

// Cause records why a transition happened.
type Cause string

const (
	CauseManual    Cause = "manual"
	CauseScheduled Cause = "scheduled"
	CauseStall     Cause = "stall"
	CauseMaxFill   Cause = "max_fill"
	CauseInterlock Cause = "interlock"
)

// Event is an actuator transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Cause     Cause
	ValveOpen bool
	MotorOn   bool
}

// Snapshot is a point-in-time copy of the controller state, safe to use after
// the controller lock is released.
type Snapshot struct {
	Now           time.Time
	ValveOpen     bool
	MotorOn       bool
	ScheduledRun  bool
	LitersTotal   float64
	RateLPM       float64
	ValveOpenedAt time.Time // zero when valve closed
}
