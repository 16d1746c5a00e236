// Package event defines the logical events produced by the input filters
// and consumed by the dispatcher.
package event

import (
	"fmt"
	"time"
)

// Kind identifies the variant of a logical event.
type Kind string

const (
	ButtonPressed  Kind = "BUTTON_PRESSED"
	ButtonReleased Kind = "BUTTON_RELEASED"
	VolumeChanged  Kind = "VOLUME_CHANGED"
)

// Coalesces reports whether queued events of this kind supersede each other.
// A coalescing kind keeps a single slot in the dispatch queue: only the most
// recent value is ever delivered. Non-coalescing kinds are delivered strictly
// in FIFO order. The queuing discipline belongs to the kind so that a new
// kind declares its own policy instead of growing conditionals in the
// dispatcher.
func (k Kind) Coalesces() bool {
	return k == VolumeChanged
}

// Event is a single logical input event. Button is set for the button kinds,
// Level for VolumeChanged. Events are immutable once produced; ownership
// passes from the sampling loop to the dispatch queue.
type Event struct {
	Time   time.Time
	Kind   Kind
	Button string
	Level  int
}

func (e Event) String() string {
	switch e.Kind {
	case ButtonPressed:
		return fmt.Sprintf("pressed %s", e.Button)
	case ButtonReleased:
		return fmt.Sprintf("released %s", e.Button)
	case VolumeChanged:
		return fmt.Sprintf("volume level %d", e.Level)
	}
	return string(e.Kind)
}
