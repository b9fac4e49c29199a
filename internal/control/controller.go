package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/mrocca/tank-filler/internal/flow"
)

// PulseSource yields the pulses accumulated since the previous drain.
type PulseSource interface {
	Drain() int
}

// Calibration holds the controller's tunables, loaded from configuration.
type Calibration struct {
	KFactor      float64       // flow sensor pulses per liter
	StallTimeout time.Duration // zero-flow duration before auto-close (0 disables)
	MaxFill      time.Duration // overall scheduled-fill cutoff (0 disables)
}

// Controller coordinates the pulse counter, interlock, schedule and stall
// guard. All entry points, the per-second Tick and the remote commands
// arriving from HTTP handlers, share one mutex, so actuator state, schedule
// tables and totals are mutated through a single synchronization boundary.
type Controller struct {
	mu sync.Mutex

	pulses   PulseSource
	acts     *Actuators
	schedule *Schedule
	guard    StallGuard
	cal      Calibration

	litersTotal float64
	rateLPM     float64
}

// NewController wires the controller. initialTotal is the persisted liters
// total loaded at startup.
func NewController(pulses PulseSource, acts *Actuators, schedule *Schedule, cal Calibration, initialTotal float64) *Controller {
	return &Controller{
		pulses:      pulses,
		acts:        acts,
		schedule:    schedule,
		cal:         cal,
		litersTotal: initialTotal,
	}
}

// Tick advances the controller by one second: drain pulses, accumulate
// volume, evaluate the schedule, then the stall guard, then the overall fill
// cutoff. now must be in local time. Returns the actuator transitions that
// happened during this tick.
func (c *Controller) Tick(now time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The loop ticks once per wall-clock second, so elapsed is fixed at 1.
	pulses := c.pulses.Drain()
	litersAdded, rate := flow.Calculate(pulses, c.cal.KFactor, 1)
	c.litersTotal += litersAdded
	c.rateLPM = rate

	var events []Event

	if c.schedule.Due(TimeOfDayFrom(now), c.acts.ValveOpen()) {
		opened, err := c.acts.OpenValve(now, true)
		events = append(events, opened...)
		if err != nil {
			return events, fmt.Errorf("scheduled open: %w", err)
		}
		c.guard.Reset()
	}

	if c.guard.Evaluate(rate, c.acts.ValveOpen(), c.acts.ScheduledRun(), now, c.cal.StallTimeout) {
		closed, err := c.acts.CloseValve(now, CauseStall)
		events = append(events, closed...)
		c.guard.Reset()
		if err != nil {
			return events, fmt.Errorf("stall close: %w", err)
		}
	}

	if c.cal.MaxFill > 0 && c.acts.ValveOpen() && c.acts.ScheduledRun() &&
		now.Sub(c.acts.ValveOpenedAt()) >= c.cal.MaxFill {
		closed, err := c.acts.CloseValve(now, CauseMaxFill)
		events = append(events, closed...)
		c.guard.Reset()
		if err != nil {
			return events, fmt.Errorf("max-fill close: %w", err)
		}
	}

	return events, nil
}

// SetValve opens or closes the valve on external (manual/remote) command.
// Manual sessions are not subject to the stall guard.
func (c *Controller) SetValve(open bool, now time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.guard.Reset()
	if open {
		return c.acts.OpenValve(now, false)
	}
	return c.acts.CloseValve(now, CauseManual)
}

// SetMotor starts or stops the pump motor on external command. Starting
// while the valve is open returns ErrInterlocked.
func (c *Controller) SetMotor(on bool, now time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if on {
		return c.acts.StartMotor(now)
	}
	return c.acts.StopMotor(now)
}

// ResetTotal zeroes the accumulated liters total.
func (c *Controller) ResetTotal() {
	c.mu.Lock()
	c.litersTotal = 0
	c.mu.Unlock()
}

// ReplaceSchedule swaps one schedule table wholesale. The swap is atomic
// with respect to the tick; invalid entries reject the whole table.
func (c *Controller) ReplaceSchedule(weekend bool, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.Replace(weekend, entries)
}

// ScheduleEntries returns copies of both tables.
func (c *Controller) ScheduleEntries() (weekday, weekend []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.Entries(false), c.schedule.Entries(true)
}

// Snapshot returns a consistent copy of the controller state.
func (c *Controller) Snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Now:           now,
		ValveOpen:     c.acts.ValveOpen(),
		MotorOn:       c.acts.MotorOn(),
		ScheduledRun:  c.acts.ScheduledRun(),
		LitersTotal:   c.litersTotal,
		RateLPM:       c.rateLPM,
		ValveOpenedAt: c.acts.ValveOpenedAt(),
	}
}
