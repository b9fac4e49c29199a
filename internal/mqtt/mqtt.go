// Package mqtt publishes tank-filler telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/mrocca/tank-filler/internal/control"
)

// Topic is the MQTT topic for actuator transition events.
const Topic = "water/tank/filler/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "water/tank/filler/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an actuator transition to the broker.
	// Returns error if publishing fails (must not crash the process).
	Publish(event control.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // whether the broker should retain the message
}

// Payload is the MQTT message structure for actuator events.
type Payload struct {
	Tank TankPayload `json:"tank"`
}

// TankPayload contains the transition details.
type TankPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Cause     string `json:"cause"`
	Valve     string `json:"valve"`
	Motor     string `json:"motor"`
}

// FormatPayload creates the JSON payload for an actuator event.
func FormatPayload(event control.Event) ([]byte, error) {
	valve := "CLOSED"
	if event.ValveOpen {
		valve = "OPEN"
	}
	motor := "OFF"
	if event.MotorOn {
		motor = "ON"
	}

	payload := Payload{
		Tank: TankPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Cause:     string(event.Cause),
			Valve:     valve,
			Motor:     motor,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message structure for simple system events that
// don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
