package player

import (
	"fmt"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
)

// MPDController sends playback commands to an MPD server. The connection is
// established lazily and re-established once per command on failure, so a
// player restart costs one retried command rather than a daemon restart.
type MPDController struct {
	network string // "tcp" or "unix"
	address string

	mu   sync.Mutex
	conn *mpd.Client
}

// NewMPDController creates a controller for the given MPD address. No
// connection is made until the first command; an unreachable player is a
// dispatch failure, not a startup failure.
func NewMPDController(network, address string) *MPDController {
	return &MPDController{network: network, address: address}
}

// PlayPause toggles between playing and paused. A stopped player starts
// playing from the current queue position.
func (c *MPDController) PlayPause() error {
	return c.do(func(conn *mpd.Client) error {
		status, err := conn.Status()
		if err != nil {
			return err
		}
		switch status["state"] {
		case "play":
			return conn.Pause(true)
		case "pause":
			return conn.Pause(false)
		default:
			return conn.Play(-1)
		}
	})
}

// Next skips to the next track.
func (c *MPDController) Next() error {
	return c.do(func(conn *mpd.Client) error { return conn.Next() })
}

// Previous goes back to the previous track.
func (c *MPDController) Previous() error {
	return c.do(func(conn *mpd.Client) error { return conn.Previous() })
}

// Stop stops playback.
func (c *MPDController) Stop() error {
	return c.do(func(conn *mpd.Client) error { return conn.Stop() })
}

// SetVolume sets the output volume, clamped to 0-100.
func (c *MPDController) SetVolume(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return c.do(func(conn *mpd.Client) error { return conn.SetVolume(percent) })
}

// Close disconnects from the server.
func (c *MPDController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// do runs f against a live connection, reconnecting and retrying once if the
// command fails. A failed dial comes back wrapped in ErrUnreachable.
func (c *MPDController) do(f func(*mpd.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.client()
	if err != nil {
		return err
	}

	if err := f(conn); err == nil {
		return nil
	}

	// The connection may simply have gone stale (MPD closes idle clients).
	// Drop it and retry once on a fresh one.
	c.conn.Close()
	c.conn = nil

	conn, err = c.client()
	if err != nil {
		return err
	}
	if err := f(conn); err != nil {
		return fmt.Errorf("mpd command: %w", err)
	}
	return nil
}

// client returns the current connection, dialing if needed. Caller holds mu.
func (c *MPDController) client() (*mpd.Client, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := mpd.Dial(c.network, c.address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %v: %w", c.network, c.address, err, ErrUnreachable)
	}
	c.conn = conn
	return conn, nil
}
