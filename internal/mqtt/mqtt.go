// Package mqtt publishes inputd telemetry: the logical input events and the
// daemon's lifecycle (startup, shutdown, heartbeat). Publishing is entirely
// best-effort and optional; playback commands never travel this path.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/inputd/internal/event"
)

// TopicEvents carries the logical input events.
const TopicEvents = "media/inputd/events"

// TopicSystem carries daemon lifecycle events.
const TopicSystem = "media/inputd/system"

// Publisher publishes telemetry to the broker.
type Publisher interface {
	// PublishEvent sends one input event. Failure must never affect the
	// sampling loop; errors are for logging only.
	PublishEvent(ev event.Event) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(ev SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // shutdown signal name, if any
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// EventPayload is the JSON envelope for an input event.
type EventPayload struct {
	Input InputPayload `json:"input"`
}

// InputPayload contains the input event details.
type InputPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Button    string `json:"button,omitempty"`
	Level     *int   `json:"level,omitempty"`
}

// FormatEventPayload creates the JSON payload for an input event.
func FormatEventPayload(ev event.Event) ([]byte, error) {
	inner := InputPayload{
		Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
		Event:     string(ev.Kind),
	}
	switch ev.Kind {
	case event.ButtonPressed, event.ButtonReleased:
		inner.Button = ev.Button
	case event.VolumeChanged:
		level := ev.Level
		inner.Level = &level
	}
	return json.Marshal(EventPayload{Input: inner})
}

// SystemPayload is the JSON envelope for a simple lifecycle event without a
// full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event. If
// ev.RawPayload is set it is returned directly (used for full status
// snapshots built by the status package).
func FormatSystemPayload(ev SystemEvent) ([]byte, error) {
	if ev.RawPayload != nil {
		return ev.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
			Event:     ev.Event,
			Reason:    ev.Reason,
		},
	})
}
