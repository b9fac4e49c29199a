// Package status provides a thread-safe status tracker for the tank-filler
// daemon. It is read by the HTTP handlers and serialized into MQTT system
// events.
package status

import (
	"sync"
	"time"

	"github.com/mrocca/tank-filler/internal/control"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs           int64
	StatusIntervalMs int64
	SaveIntervalMs   int64
	Broker           string
	HTTPAddr         string
	KFactor          float64
	StallTimeoutSec  int
	MaxFillSec       int
	Timezone         string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	ValveOpen    bool
	MotorOn      bool
	ScheduledRun bool
	LitersTotal  float64
	RateLPM      float64

	WeekdayTimes []string
	WeekendTimes []string

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the controller state into the tracker.
// Called from the run loop on every tick.
func (t *Tracker) Update(cs control.Snapshot) {
	t.mu.Lock()
	t.snap.ValveOpen = cs.ValveOpen
	t.snap.MotorOn = cs.MotorOn
	t.snap.ScheduledRun = cs.ScheduledRun
	t.snap.LitersTotal = cs.LitersTotal
	t.snap.RateLPM = cs.RateLPM
	t.mu.Unlock()
}

// SetSchedule records the current schedule tables for display.
func (t *Tracker) SetSchedule(weekday, weekend []string) {
	t.mu.Lock()
	t.snap.WeekdayTimes = weekday
	t.snap.WeekendTimes = weekend
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
