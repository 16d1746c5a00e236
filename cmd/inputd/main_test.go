package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/inputd/internal/config"
	"github.com/sweeney/inputd/internal/dispatch"
	"github.com/sweeney/inputd/internal/event"
	"github.com/sweeney/inputd/internal/hal"
	"github.com/sweeney/inputd/internal/logic"
	"github.com/sweeney/inputd/internal/mqtt"
	"github.com/sweeney/inputd/internal/player"
	"github.com/sweeney/inputd/internal/status"
)

// fakeClock hands out a scripted sequence of times, repeating the last one
// when exhausted. The loop reads it once at startup and once per tick, so a
// test's tick schedule maps one-to-one onto the script.
type fakeClock struct {
	mu    sync.Mutex
	times []time.Time
	idx   int
}

func newFakeClock(base time.Time, offsetsMs ...int64) *fakeClock {
	c := &fakeClock{}
	for _, off := range offsetsMs {
		c.times = append(c.times, base.Add(time.Duration(off)*time.Millisecond))
	}
	return c
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idx < len(c.times) {
		t := c.times[c.idx]
		c.idx++
		return t
	}
	return c.times[len(c.times)-1]
}

// fixture wires a loop to fakes and a live dispatcher worker.
type fixture struct {
	l     *loop
	queue *dispatch.Queue
	ctrl  *player.FakeController
	disp  *dispatch.Dispatcher

	digitalTick chan time.Time
	analogTick  chan time.Time
	sig         chan os.Signal
	done        chan string
	cancel      context.CancelFunc
}

func newFixture(clock *fakeClock, digital hal.DigitalReader, analog hal.AnalogSampler, pub *mqtt.FakePublisher, agg *logic.Aggregator, heartbeat time.Duration) *fixture {
	f := &fixture{
		queue:       dispatch.NewQueue(8),
		ctrl:        player.NewFakeController(),
		digitalTick: make(chan time.Time),
		analogTick:  make(chan time.Time),
		sig:         make(chan os.Signal, 1),
		done:        make(chan string, 1),
	}
	f.disp = dispatch.New(f.queue, f.ctrl, map[string]string{
		"play": config.CmdPlayPause,
		"next": config.CmdNext,
	}, 3, time.Millisecond, 21)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.disp.Run(ctx)

	f.l = &loop{
		digital:     digital,
		analog:      analog,
		agg:         agg,
		queue:       f.queue,
		disp:        f.disp,
		tracker:     status.NewTracker(clock.times[0], status.Config{}),
		heartbeat:   heartbeat,
		now:         clock.Now,
		digitalTick: f.digitalTick,
		analogTick:  f.analogTick,
		sig:         f.sig,
	}
	if pub != nil {
		f.l.publisher = pub
		f.l.connStatus = pub
	}
	return f
}

func (f *fixture) start() {
	go func() { f.done <- f.l.run() }()
}

// stop signals the loop, joins it, and shuts down the dispatcher worker.
func (f *fixture) stop(t *testing.T, sig os.Signal) string {
	t.Helper()
	f.sig <- sig
	var reason string
	select {
	case reason = <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not return after signal")
	}
	f.cancel()
	f.disp.Wait()
	return reason
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestLoopButtonPressReachesPlayer(t *testing.T) {
	// One active-low button with a 10ms debounce window, polled at 5ms
	// steps: three released samples to baseline, three pressed, three
	// released again.
	digital := hal.NewFakeDigital([][]bool{
		{true}, {true}, {true},
		{false}, {false}, {false},
		{true}, {true}, {true},
	})
	clock := newFakeClock(base, 0, 0, 5, 10, 15, 20, 25, 30, 35, 40)

	agg := logic.NewAggregator()
	agg.AddButton("play", 10*time.Millisecond, true)

	pub := mqtt.NewFakePublisher()
	f := newFixture(clock, digital, nil, pub, agg, 0)
	f.start()
	for i := 0; i < 9; i++ {
		f.digitalTick <- time.Time{}
	}

	waitFor(t, "play_pause delivery", func() bool {
		return len(f.ctrl.Calls()) == 1
	})
	if reason := f.stop(t, syscall.SIGTERM); reason != "SIGTERM" {
		t.Errorf("reason = %q", reason)
	}

	if calls := f.ctrl.Calls(); len(calls) != 1 || calls[0] != "play_pause" {
		t.Errorf("calls = %v", calls)
	}
	if c := agg.Counts(); c.Pressed != 1 || c.Released != 1 {
		t.Errorf("counts = %+v", c)
	}

	// Both transitions were mirrored onto telemetry in order.
	if len(pub.Events) != 2 {
		t.Fatalf("published events = %v", pub.Events)
	}
	if pub.Events[0].Kind != event.ButtonPressed || pub.Events[1].Kind != event.ButtonReleased {
		t.Errorf("published kinds = %v, %v", pub.Events[0].Kind, pub.Events[1].Kind)
	}

	snap := f.l.tracker.Snapshot()
	if !snap.Ready || snap.Buttons["play"] {
		t.Errorf("tracker snapshot = %+v", snap)
	}
}

func TestLoopVolumeReachesPlayer(t *testing.T) {
	analog := hal.NewFakeADC([]int{2050, 4000})
	clock := newFakeClock(base, 0, 0, 25)

	agg := logic.NewAggregator()
	agg.SetVolume(logic.NewVolumeFilter(0, 4095, 21, 1.0, 0, nil))

	f := newFixture(clock, nil, analog, nil, agg, 0)
	f.start()
	f.analogTick <- time.Time{}
	f.analogTick <- time.Time{}

	// The first sample settles at the midpoint, the second near the top.
	// Coalescing may fold the two into one delivery; the last volume the
	// player sees must be the latest.
	waitFor(t, "volume delivery", func() bool {
		v := f.ctrl.Volumes()
		return len(v) > 0 && v[len(v)-1] == 100
	})
	f.stop(t, syscall.SIGTERM)

	if c := agg.Counts(); c.VolumeChanges != 2 {
		t.Errorf("volume changes = %d", c.VolumeChanges)
	}
	if level, ok := agg.VolumeLevel(); !ok || level != 20 {
		t.Errorf("level = %d, %v", level, ok)
	}
}

func TestLoopSurvivesReadErrors(t *testing.T) {
	digital := hal.NewFakeDigital([][]bool{{true}})
	digital.ReadError = errors.New("bus fault")
	clock := newFakeClock(base, 0, 0, 5, 10)

	agg := logic.NewAggregator()
	agg.AddButton("play", 10*time.Millisecond, true)

	f := newFixture(clock, digital, nil, nil, agg, 0)
	f.start()
	for i := 0; i < 3; i++ {
		f.digitalTick <- time.Time{}
	}

	if reason := f.stop(t, syscall.SIGINT); reason != "SIGINT" {
		t.Errorf("reason = %q", reason)
	}
	if f.l.readErrors != 3 {
		t.Errorf("readErrors = %d", f.l.readErrors)
	}
	if len(f.ctrl.Calls()) != 0 {
		t.Errorf("calls = %v", f.ctrl.Calls())
	}
}

func TestLoopHeartbeat(t *testing.T) {
	digital := hal.NewFakeDigital([][]bool{{true}})
	// Baseline completes at 10ms; the 60ms tick crosses the 50ms interval.
	clock := newFakeClock(base, 0, 0, 5, 10, 60)

	agg := logic.NewAggregator()
	agg.AddButton("play", 10*time.Millisecond, true)

	pub := mqtt.NewFakePublisher()
	f := newFixture(clock, digital, nil, pub, agg, 50*time.Millisecond)
	f.start()
	for i := 0; i < 4; i++ {
		f.digitalTick <- time.Time{}
	}
	f.stop(t, syscall.SIGTERM)

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("system events = %v", pub.SystemEvents)
	}
	hb := pub.SystemEvents[0]
	if hb.Event != "HEARTBEAT" || !hb.Timestamp.Equal(base.Add(60*time.Millisecond)) {
		t.Errorf("heartbeat = %+v", hb)
	}
}

func TestBuildAggregator(t *testing.T) {
	cfg := config.Default()
	cfg.Buttons = []config.Button{
		{Name: "play", Line: 17, ActiveLow: true, Command: config.CmdPlayPause},
	}
	cfg.Volume.Enabled = true
	cfg.Volume.Curve = [][2]int{{0, 0}, {13200, 140}, {26400, 280}}

	agg, err := buildAggregator(cfg)
	if err != nil {
		t.Fatalf("buildAggregator: %v", err)
	}
	if agg.Ready() {
		t.Error("aggregator ready before any samples")
	}
	if _, ok := agg.VolumeLevel(); ok {
		t.Error("volume level known before any samples")
	}
}

func TestBuildAggregatorRejectsBadCurve(t *testing.T) {
	cfg := config.Default()
	cfg.Buttons = []config.Button{
		{Name: "play", Line: 17, Command: config.CmdPlayPause},
	}
	cfg.Volume.Enabled = true
	cfg.Volume.Curve = [][2]int{{10, 5}, {5, 8}}

	if _, err := buildAggregator(cfg); err == nil {
		t.Error("expected error for non-monotonic curve")
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SIGINT = %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("SIGTERM = %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("SIGHUP = %q", got)
	}
}
