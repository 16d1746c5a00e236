// Package player delivers playback commands to the media player. The real
// implementation speaks the MPD protocol; the fake records calls for tests.
package player

import "errors"

// ErrUnreachable wraps failures to reach the player at all, as opposed to a
// command being rejected on a live connection. The dispatcher uses this to
// classify a failed attempt.
var ErrUnreachable = errors.New("player unreachable")

// Controller is the closed set of commands the daemon can issue.
type Controller interface {
	// PlayPause toggles between playing and paused.
	PlayPause() error

	// Next skips to the next track.
	Next() error

	// Previous goes back to the previous track.
	Previous() error

	// Stop stops playback.
	Stop() error

	// SetVolume sets the output volume, 0-100 percent.
	SetVolume(percent int) error

	// Close releases the connection.
	Close() error
}
