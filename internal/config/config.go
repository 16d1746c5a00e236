// Package config loads the static control mapping and tunables for inputd.
// The file is read once at startup; a missing or invalid file is a fatal
// startup error and the mapping is immutable afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the daemon looks for its configuration unless
// overridden with -config.
const DefaultPath = "/etc/inputd/config.toml"

// Playback commands accepted in Button.Command.
const (
	CmdPlayPause = "play_pause"
	CmdNext      = "next"
	CmdPrevious  = "previous"
	CmdStop      = "stop"
)

// Button maps one logical button to a GPIO line and a playback command.
type Button struct {
	Name      string `toml:"name"`
	Line      int    `toml:"line"`
	ActiveLow bool   `toml:"active_low"`
	Command   string `toml:"command"`
}

// Volume maps the potentiometer to an ADC channel and describes how its raw
// readings become discrete levels.
type Volume struct {
	Enabled    bool    `toml:"enabled"`
	Channel    int     `toml:"channel"`
	RawMin     int     `toml:"raw_min"`
	RawMax     int     `toml:"raw_max"`
	Levels     int     `toml:"levels"`
	Alpha      float64 `toml:"alpha"`
	Hysteresis int     `toml:"hysteresis"` // position units; 0 = quarter of a step

	// Curve is an optional calibration table of [raw, position] pairs for
	// non-linear potentiometers, interpolated linearly between entries.
	// Both columns must be strictly increasing. Empty means raw readings
	// map linearly onto [raw_min, raw_max].
	Curve [][2]int `toml:"curve"`
}

// Sampling holds the polling cadences and the debounce window.
type Sampling struct {
	DigitalPollMs int64 `toml:"digital_poll_ms"`
	AnalogPollMs  int64 `toml:"analog_poll_ms"`
	DebounceMs    int64 `toml:"debounce_ms"`
}

// Dispatch holds the hand-off queue and retry tunables.
type Dispatch struct {
	QueueSize       int   `toml:"queue_size"`
	Retries         int   `toml:"retries"` // total attempts per event
	BackoffMs       int64 `toml:"backoff_ms"`
	ShutdownGraceMs int64 `toml:"shutdown_grace_ms"`
}

// Player describes how to reach the MPD control interface.
type Player struct {
	Network string `toml:"network"` // "tcp" or "unix"
	Address string `toml:"address"`
}

// MQTT describes the optional telemetry broker. An empty broker disables
// telemetry entirely.
type MQTT struct {
	Broker      string `toml:"broker"`
	HeartbeatMs int64  `toml:"heartbeat_ms"`
}

// HTTP describes the optional status page. An empty address disables it.
type HTTP struct {
	Addr string `toml:"addr"`
}

// Hardware names the underlying devices.
type Hardware struct {
	GPIOChip string `toml:"gpio_chip"`
	I2CBus   string `toml:"i2c_bus"`
	ADCAddr  int    `toml:"adc_addr"`
}

// Config is the complete daemon configuration.
type Config struct {
	Buttons  []Button `toml:"buttons"`
	Volume   Volume   `toml:"volume"`
	Sampling Sampling `toml:"sampling"`
	Dispatch Dispatch `toml:"dispatch"`
	Player   Player   `toml:"player"`
	MQTT     MQTT     `toml:"mqtt"`
	HTTP     HTTP     `toml:"http"`
	Hardware Hardware `toml:"hardware"`
}

// Default returns a Config with every tunable at its default. The control
// mapping itself (buttons, volume channel) has no default; it must come from
// the file.
func Default() Config {
	return Config{
		Volume: Volume{
			Channel: 0,
			RawMin:  0,
			RawMax:  26400, // pot wiper at 3.3V through the ADS1115 at ±4.096V
			Levels:  21,
			Alpha:   0.30,
		},
		Sampling: Sampling{
			DigitalPollMs: 2,
			AnalogPollMs:  25,
			DebounceMs:    20,
		},
		Dispatch: Dispatch{
			QueueSize:       32,
			Retries:         3,
			BackoffMs:       50,
			ShutdownGraceMs: 500,
		},
		Player: Player{
			Network: "tcp",
			Address: "localhost:6600",
		},
		MQTT: MQTT{
			HeartbeatMs: int64(15 * time.Minute / time.Millisecond),
		},
		Hardware: Hardware{
			GPIOChip: "gpiochip0",
			I2CBus:   "/dev/i2c-1",
			ADCAddr:  0x48,
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate enforces the mapping invariants. Every logical control maps to
// exactly one hardware source and no two controls share one.
func (c *Config) Validate() error {
	if len(c.Buttons) == 0 && !c.Volume.Enabled {
		return fmt.Errorf("no buttons and no volume channel configured")
	}

	lines := make(map[int]string)
	names := make(map[string]bool)
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("button %d: missing name", i)
		}
		if names[b.Name] {
			return fmt.Errorf("button %q: duplicate name", b.Name)
		}
		names[b.Name] = true
		if b.Line < 0 {
			return fmt.Errorf("button %q: invalid line %d", b.Name, b.Line)
		}
		if prev, dup := lines[b.Line]; dup {
			return fmt.Errorf("button %q: line %d already used by %q", b.Name, b.Line, prev)
		}
		lines[b.Line] = b.Name
		switch b.Command {
		case CmdPlayPause, CmdNext, CmdPrevious, CmdStop:
		default:
			return fmt.Errorf("button %q: unknown command %q", b.Name, b.Command)
		}
	}

	if c.Volume.Enabled {
		v := c.Volume
		if v.Channel < 0 || v.Channel > 3 {
			return fmt.Errorf("volume: channel %d out of range 0-3", v.Channel)
		}
		if v.RawMin >= v.RawMax {
			return fmt.Errorf("volume: raw_min %d must be below raw_max %d", v.RawMin, v.RawMax)
		}
		if v.Levels < 2 {
			return fmt.Errorf("volume: levels %d must be at least 2", v.Levels)
		}
		if v.Alpha <= 0 || v.Alpha > 1 {
			return fmt.Errorf("volume: alpha %v must be in (0, 1]", v.Alpha)
		}
		if v.Hysteresis < 0 {
			return fmt.Errorf("volume: negative hysteresis %d", v.Hysteresis)
		}
		for i := 1; i < len(v.Curve); i++ {
			if v.Curve[i][0] <= v.Curve[i-1][0] || v.Curve[i][1] <= v.Curve[i-1][1] {
				return fmt.Errorf("volume: curve entry %d not strictly increasing", i)
			}
		}
	}

	if c.Sampling.DigitalPollMs <= 0 || c.Sampling.AnalogPollMs <= 0 || c.Sampling.DebounceMs <= 0 {
		return fmt.Errorf("sampling: poll and debounce durations must be positive")
	}
	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("dispatch: queue_size must be positive")
	}
	if c.Dispatch.Retries <= 0 {
		return fmt.Errorf("dispatch: retries must be positive")
	}
	if c.Dispatch.BackoffMs < 0 || c.Dispatch.ShutdownGraceMs < 0 {
		return fmt.Errorf("dispatch: negative duration")
	}
	switch c.Player.Network {
	case "tcp", "unix":
	default:
		return fmt.Errorf("player: network %q must be tcp or unix", c.Player.Network)
	}
	if c.Player.Address == "" {
		return fmt.Errorf("player: missing address")
	}

	return nil
}

// DigitalPoll returns the digital polling interval.
func (c *Config) DigitalPoll() time.Duration {
	return time.Duration(c.Sampling.DigitalPollMs) * time.Millisecond
}

// AnalogPoll returns the analog polling interval.
func (c *Config) AnalogPoll() time.Duration {
	return time.Duration(c.Sampling.AnalogPollMs) * time.Millisecond
}

// Debounce returns the stabilization window for button transitions.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Sampling.DebounceMs) * time.Millisecond
}

// Backoff returns the initial retry backoff for dispatch.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Dispatch.BackoffMs) * time.Millisecond
}

// ShutdownGrace returns how long the final queue drain may take.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Dispatch.ShutdownGraceMs) * time.Millisecond
}

// Heartbeat returns the telemetry heartbeat interval (0 disables).
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.MQTT.HeartbeatMs) * time.Millisecond
}

// Lines returns the GPIO line numbers of all buttons, in config order.
func (c *Config) Lines() []int {
	out := make([]int, len(c.Buttons))
	for i, b := range c.Buttons {
		out[i] = b.Line
	}
	return out
}

// Commands returns the button name to playback command mapping.
func (c *Config) Commands() map[string]string {
	out := make(map[string]string, len(c.Buttons))
	for _, b := range c.Buttons {
		out[b.Name] = b.Command
	}
	return out
}
