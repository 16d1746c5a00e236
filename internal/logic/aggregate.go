package logic

import (
	"fmt"
	"time"

	"github.com/sweeney/inputd/internal/event"
)

// Counts tracks the number of events of each kind since startup.
type Counts struct {
	Pressed       int
	Released      int
	VolumeChanges int
}

// Aggregator owns all per-input filter state and merges their transitions
// into a single ordered event stream. Buttons are processed in the order
// they were added, so the events of one poll cycle come out in a fixed,
// deterministic order. All methods must be called from the single sampling
// goroutine.
type Aggregator struct {
	names  []string
	debs   []*Debouncer
	volume *VolumeFilter
	counts Counts
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddButton registers a button. Order of registration is the order inputs
// are polled and events are emitted within a cycle.
func (a *Aggregator) AddButton(name string, window time.Duration, activeLow bool) {
	a.names = append(a.names, name)
	a.debs = append(a.debs, NewDebouncer(window, activeLow))
}

// SetVolume attaches the volume filter.
func (a *Aggregator) SetVolume(f *VolumeFilter) {
	a.volume = f
}

// CycleDigital feeds one raw reading per button, in registration order, and
// returns the cycle's events in that same order.
func (a *Aggregator) CycleDigital(raw []bool, now time.Time) ([]event.Event, error) {
	if len(raw) != len(a.debs) {
		return nil, fmt.Errorf("got %d line readings for %d buttons", len(raw), len(a.debs))
	}

	var events []event.Event
	for i, d := range a.debs {
		tr := d.Observe(raw[i], now)
		if tr == nil {
			continue
		}
		kind := event.ButtonReleased
		if tr.Pressed {
			kind = event.ButtonPressed
			a.counts.Pressed++
		} else {
			a.counts.Released++
		}
		events = append(events, event.Event{
			Time:   now,
			Kind:   kind,
			Button: a.names[i],
		})
	}
	return events, nil
}

// CycleAnalog feeds one raw ADC reading and returns a VolumeChanged event if
// the quantized level moved, nil otherwise.
func (a *Aggregator) CycleAnalog(raw int, now time.Time) *event.Event {
	if a.volume == nil {
		return nil
	}
	level := a.volume.Observe(raw, now)
	if level == nil {
		return nil
	}
	a.counts.VolumeChanges++
	return &event.Event{
		Time:  now,
		Kind:  event.VolumeChanged,
		Level: *level,
	}
}

// Ready reports whether every button has established its baseline.
func (a *Aggregator) Ready() bool {
	for _, d := range a.debs {
		if !d.Baselined() {
			return false
		}
	}
	return true
}

// ButtonStates returns the current stable state of each button.
func (a *Aggregator) ButtonStates() map[string]bool {
	out := make(map[string]bool, len(a.debs))
	for i, d := range a.debs {
		out[a.names[i]] = d.Pressed()
	}
	return out
}

// VolumeLevel returns the last emitted volume level. ok is false when no
// volume input is configured or no level has settled yet.
func (a *Aggregator) VolumeLevel() (level int, ok bool) {
	if a.volume == nil {
		return 0, false
	}
	return a.volume.Level()
}

// Counts returns the event counters.
func (a *Aggregator) Counts() Counts {
	return a.counts
}
