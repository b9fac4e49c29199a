package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Valve         string       `json:"valve"`
	Motor         string       `json:"motor"`
	ScheduledRun  bool         `json:"scheduled_run_active"`
	LitersTotal   float64      `json:"liters_total"`
	FlowLPM       float64      `json:"flow_lpm"`
	Schedule      ScheduleJSON `json:"schedule"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Config        ConfigJSON   `json:"config"`
}

// ScheduleJSON lists the configured fill times.
type ScheduleJSON struct {
	Weekday []string `json:"weekday"`
	Weekend []string `json:"weekend"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64   `json:"poll_ms"`
	StatusIntervalMs int64   `json:"status_interval_ms"`
	SaveIntervalMs   int64   `json:"save_interval_ms"`
	Broker           string  `json:"broker"`
	HTTPAddr         string  `json:"http_addr"`
	KFactor          float64 `json:"k_factor"`
	StallTimeoutSec  int     `json:"stall_timeout_seconds"`
	MaxFillSec       int     `json:"max_fill_seconds"`
	Timezone         string  `json:"timezone"`
}

func buildInner(snap Snapshot) StatusInner {
	valve := "CLOSED"
	if snap.ValveOpen {
		valve = "OPEN"
	}
	motor := "OFF"
	if snap.MotorOn {
		motor = "ON"
	}

	weekday := snap.WeekdayTimes
	if weekday == nil {
		weekday = []string{}
	}
	weekend := snap.WeekendTimes
	if weekend == nil {
		weekend = []string{}
	}

	return StatusInner{
		Valve:        valve,
		Motor:        motor,
		ScheduledRun: snap.ScheduledRun,
		LitersTotal:  snap.LitersTotal,
		FlowLPM:      snap.RateLPM,
		Schedule: ScheduleJSON{
			Weekday: weekday,
			Weekend: weekend,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			StatusIntervalMs: snap.Config.StatusIntervalMs,
			SaveIntervalMs:   snap.Config.SaveIntervalMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			KFactor:          snap.Config.KFactor,
			StallTimeoutSec:  snap.Config.StallTimeoutSec,
			MaxFillSec:       snap.Config.MaxFillSec,
			Timezone:         snap.Config.Timezone,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
