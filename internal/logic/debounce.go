// Package logic contains the pure input-filtering logic: button debouncing,
// volume smoothing/quantization, and the per-cycle aggregation of all inputs
// into one ordered event stream. The package has no hardware, network, or
// clock dependencies; time is always injected via time.Time parameters.
package logic

import "time"

// Transition is a stable change of a button's logical state.
type Transition struct {
	Pressed bool
}

// Debouncer converts a bouncing mechanical contact's raw level sequence into
// exactly one stable transition per physical action. All state is owned by
// the sampling step that calls Observe; nothing here is safe for concurrent
// use.
type Debouncer struct {
	window    time.Duration
	activeLow bool

	// Current stable (debounced) logical state
	stable bool
	// Whether a baseline has been established
	baselined bool
	// Pending candidate state during the stabilization window
	hasPending   bool
	pending      bool
	pendingSince time.Time
}

// NewDebouncer creates a debouncer with the given stabilization window.
// If activeLow is set, a low raw level means pressed.
func NewDebouncer(window time.Duration, activeLow bool) *Debouncer {
	return &Debouncer{window: window, activeLow: activeLow}
}

// Observe feeds one raw poll reading. It returns a Transition when a new
// level has been held for the full stabilization window, nil otherwise.
// The first stable read establishes the initial state without emitting a
// transition: a button already at rest at startup produces no event.
func (d *Debouncer) Observe(raw bool, now time.Time) *Transition {
	pressed := raw != d.activeLow // active-low inverts the raw level

	if !d.baselined {
		if !d.hasPending || d.pending != pressed {
			d.hasPending = true
			d.pending = pressed
			d.pendingSince = now
			return nil
		}
		if now.Sub(d.pendingSince) >= d.window {
			d.stable = pressed
			d.baselined = true
			d.hasPending = false
		}
		return nil
	}

	if pressed == d.stable {
		// Reversion to the stable level cancels any candidate. This is what
		// absorbs multi-bounce noise that oscillates instead of settling.
		d.hasPending = false
		return nil
	}

	if !d.hasPending || d.pending != pressed {
		d.hasPending = true
		d.pending = pressed
		d.pendingSince = now
		return nil
	}

	if now.Sub(d.pendingSince) >= d.window {
		d.stable = pressed
		d.hasPending = false
		return &Transition{Pressed: pressed}
	}

	return nil
}

// Baselined reports whether the initial state has been established.
func (d *Debouncer) Baselined() bool {
	return d.baselined
}

// Pressed returns the current stable logical state.
func (d *Debouncer) Pressed() bool {
	return d.stable
}
