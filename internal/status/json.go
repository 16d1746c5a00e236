package status

import (
	"encoding/json"
	"sort"
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
	Buttons       []ButtonJSON `json:"buttons"`
	Ready         bool         `json:"ready"`
	Volume        *VolumeJSON  `json:"volume,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Dispatch      DispatchJSON `json:"dispatch"`
	Config        ConfigJSON   `json:"config"`
}

// ButtonJSON is one button's stable state.
type ButtonJSON struct {
	Name    string `json:"name"`
	Pressed bool   `json:"pressed"`
}

// VolumeJSON is the last settled volume level.
type VolumeJSON struct {
	Level int `json:"level"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Pressed       int `json:"pressed"`
	Released      int `json:"released"`
	VolumeChanges int `json:"volume_changes"`
}

// DispatchJSON is the JSON representation of delivery outcomes.
type DispatchJSON struct {
	Delivered   int `json:"delivered"`
	Retried     int `json:"retried"`
	Dropped     int `json:"dropped"`
	ButtonsLost int `json:"buttons_lost"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DigitalPollMs int64  `json:"digital_poll_ms"`
	AnalogPollMs  int64  `json:"analog_poll_ms"`
	DebounceMs    int64  `json:"debounce_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker,omitempty"`
	HTTPAddr      string `json:"http_addr,omitempty"`
	PlayerAddr    string `json:"player_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	buttons := make([]ButtonJSON, 0, len(snap.Buttons))
	for name, pressed := range snap.Buttons {
		buttons = append(buttons, ButtonJSON{Name: name, Pressed: pressed})
	}
	sort.Slice(buttons, func(i, j int) bool { return buttons[i].Name < buttons[j].Name })

	inner := StatusInner{
		Buttons:       buttons,
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Pressed:       snap.Counts.Pressed,
			Released:      snap.Counts.Released,
			VolumeChanges: snap.Counts.VolumeChanges,
		},
		Dispatch: DispatchJSON{
			Delivered:   snap.Dispatch.Delivered,
			Retried:     snap.Dispatch.Retried,
			Dropped:     snap.Dispatch.Dropped,
			ButtonsLost: snap.Dispatch.ButtonsLost,
		},
		Config: ConfigJSON{
			DigitalPollMs: snap.Config.DigitalPollMs,
			AnalogPollMs:  snap.Config.AnalogPollMs,
			DebounceMs:    snap.Config.DebounceMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			PlayerAddr:    snap.Config.PlayerAddr,
		},
	}

	if snap.VolumeKnown {
		inner.Volume = &VolumeJSON{Level: snap.VolumeLevel}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
