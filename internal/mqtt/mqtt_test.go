package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/inputd/internal/event"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestFormatEventPayloadButton(t *testing.T) {
	payload, err := FormatEventPayload(event.Event{
		Time:   testTime,
		Kind:   event.ButtonPressed,
		Button: "play",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got EventPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Input.Event != "BUTTON_PRESSED" {
		t.Errorf("event = %q", got.Input.Event)
	}
	if got.Input.Button != "play" {
		t.Errorf("button = %q", got.Input.Button)
	}
	if got.Input.Level != nil {
		t.Errorf("level should be omitted for buttons, got %v", *got.Input.Level)
	}
	if got.Input.Timestamp != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamp = %q", got.Input.Timestamp)
	}
}

func TestFormatEventPayloadVolume(t *testing.T) {
	payload, err := FormatEventPayload(event.Event{
		Time:  testTime,
		Kind:  event.VolumeChanged,
		Level: 12,
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got EventPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Input.Event != "VOLUME_CHANGED" {
		t.Errorf("event = %q", got.Input.Event)
	}
	if got.Input.Level == nil || *got.Input.Level != 12 {
		t.Errorf("level = %v", got.Input.Level)
	}
	if got.Input.Button != "" {
		t.Errorf("button should be omitted for volume, got %q", got.Input.Button)
	}
}

func TestFormatEventPayloadVolumeLevelZero(t *testing.T) {
	// Level 0 is a real value and must not be dropped by omitempty.
	payload, err := FormatEventPayload(event.Event{
		Time: testTime,
		Kind: event.VolumeChanged,
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	var got EventPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Input.Level == nil || *got.Input.Level != 0 {
		t.Errorf("level = %v, want 0", got.Input.Level)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: testTime,
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var got SystemPayload
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.System.Event != "SHUTDOWN" || got.System.Reason != "SIGTERM" {
		t.Errorf("system = %+v", got.System)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"ready":true}}`)
	payload, err := FormatSystemPayload(SystemEvent{RawPayload: raw})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("payload = %s, want raw passthrough", payload)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	ev := event.Event{Time: testTime, Kind: event.ButtonPressed, Button: "next"}
	if err := f.PublishEvent(ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP"}); err != nil {
		t.Fatalf("publish system: %v", err)
	}

	if len(f.Events) != 1 || f.Events[0].Button != "next" {
		t.Errorf("events = %v", f.Events)
	}
	if len(f.Payloads) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("payloads = %d, system = %d", len(f.Payloads), len(f.SystemPayloads))
	}

	f.PublishError = errors.New("down")
	if err := f.PublishEvent(ev); err == nil {
		t.Error("expected scripted error")
	}

	f.Reset()
	if len(f.Events) != 0 || f.PublishError != nil {
		t.Error("Reset did not clear state")
	}
}
