// Package status provides a thread-safe status tracker for the inputd
// daemon. It is read by the HTTP handlers and serialized into the MQTT
// lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/inputd/internal/dispatch"
	"github.com/sweeney/inputd/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	DigitalPollMs int64
	AnalogPollMs  int64
	DebounceMs    int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	PlayerAddr    string
}

// Snapshot is a point-in-time view of daemon state. It is a value type with
// its own copy of the button map — safe to use after the lock is released.
type Snapshot struct {
	Buttons       map[string]bool // name -> pressed
	Ready         bool
	VolumeLevel   int
	VolumeKnown   bool
	Counts        logic.Counts
	Dispatch      dispatch.Stats
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
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
			Buttons:   map[string]bool{},
		},
	}
}

// Update sets the input state and counters. Called from the sampling loop.
func (t *Tracker) Update(buttons map[string]bool, ready bool, volumeLevel int, volumeKnown bool, counts logic.Counts, stats dispatch.Stats) {
	t.mu.Lock()
	t.snap.Buttons = buttons
	t.snap.Ready = ready
	t.snap.VolumeLevel = volumeLevel
	t.snap.VolumeKnown = volumeKnown
	t.snap.Counts = counts
	t.snap.Dispatch = stats
	t.mu.Unlock()
}

// SetMQTTConnected sets the broker connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The Now field
// is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	buttons := make(map[string]bool, len(s.Buttons))
	for k, v := range s.Buttons {
		buttons[k] = v
	}
	t.mu.RUnlock()
	s.Buttons = buttons
	s.Now = time.Now()
	return s
}
