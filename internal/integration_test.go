package internal

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/inputd/internal/config"
	"github.com/sweeney/inputd/internal/dispatch"
	"github.com/sweeney/inputd/internal/event"
	"github.com/sweeney/inputd/internal/hal"
	"github.com/sweeney/inputd/internal/logic"
	"github.com/sweeney/inputd/internal/mqtt"
	"github.com/sweeney/inputd/internal/player"
)

// The full path from raw samples to the player: scripted GPIO and ADC
// readings run through the aggregator, the queue, and a live dispatcher
// worker, with telemetry mirrored on a fake publisher.
func TestRawSamplesToPlayerCommands(t *testing.T) {
	// Two active-low buttons polled at 5ms with a 10ms debounce window.
	// Baseline, press play, release, press next, release.
	digital := hal.NewFakeDigital([][]bool{
		{true, true}, {true, true}, {true, true},
		{false, true}, {false, true}, {false, true},
		{true, true}, {true, true}, {true, true},
		{true, false}, {true, false}, {true, false},
		{true, true}, {true, true}, {true, true},
	})
	analog := hal.NewFakeADC([]int{2050})

	agg := logic.NewAggregator()
	agg.AddButton("play", 10*time.Millisecond, true)
	agg.AddButton("next", 10*time.Millisecond, true)
	agg.SetVolume(logic.NewVolumeFilter(0, 4095, 21, 1.0, 0, nil))

	queue := dispatch.NewQueue(16)
	ctrl := player.NewFakeController()
	disp := dispatch.New(queue, ctrl, map[string]string{
		"play": config.CmdPlayPause,
		"next": config.CmdNext,
	}, 3, time.Millisecond, 21)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	pub := mqtt.NewFakePublisher()

	// Drive the sampling cycles the way the daemon loop does: read, feed
	// the aggregator, push every resulting event, mirror it to telemetry.
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var published []event.Event
	emit := func(ev event.Event) {
		queue.Push(ev)
		if err := pub.PublishEvent(ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
		published = append(published, ev)
	}

	for i := 0; i < 15; i++ {
		now := base.Add(time.Duration(i*5) * time.Millisecond)

		raw, err := digital.ReadLines()
		if err != nil {
			t.Fatalf("read lines: %v", err)
		}
		events, err := agg.CycleDigital(raw, now)
		if err != nil {
			t.Fatalf("digital cycle: %v", err)
		}
		for _, ev := range events {
			emit(ev)
		}

		// Analog runs on its slower cadence, every fifth digital cycle.
		if i > 0 && i%5 == 0 {
			sample, err := analog.Sample()
			if err != nil {
				t.Fatalf("adc sample: %v", err)
			}
			if ev := agg.CycleAnalog(sample, now); ev != nil {
				emit(*ev)
			}
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if disp.Stats().Delivered == len(published) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Two full press/release pairs plus the initial volume settle.
	if c := agg.Counts(); c.Pressed != 2 || c.Released != 2 || c.VolumeChanges != 1 {
		t.Fatalf("counts = %+v", c)
	}
	if len(published) != 5 {
		t.Fatalf("published %d events: %v", len(published), published)
	}

	stats := disp.Stats()
	if stats.Delivered != 5 || stats.Dropped != 0 || stats.ButtonsLost != 0 {
		t.Errorf("stats = %+v", stats)
	}

	// The player saw the two commands in press order; releases are no-ops.
	calls := ctrl.Calls()
	var commands []string
	for _, c := range calls {
		if c != "set_volume" {
			commands = append(commands, c)
		}
	}
	if len(commands) != 2 || commands[0] != "play_pause" || commands[1] != "next" {
		t.Errorf("commands = %v", calls)
	}

	// Raw 2050 of 4095 settles at the middle of 21 levels, mapped to 50%.
	if vols := ctrl.Volumes(); len(vols) != 1 || vols[0] != 50 {
		t.Errorf("volumes = %v", vols)
	}

	// Telemetry mirrors the event stream one-to-one.
	if len(pub.Events) != 5 {
		t.Fatalf("telemetry events = %v", pub.Events)
	}
	wantKinds := []event.Kind{
		event.ButtonPressed, event.VolumeChanged, event.ButtonReleased,
		event.ButtonPressed, event.ButtonReleased,
	}
	for i, want := range wantKinds {
		if pub.Events[i].Kind != want {
			t.Errorf("telemetry[%d] = %v, want %v", i, pub.Events[i].Kind, want)
		}
	}
}

// A player that fails every attempt exhausts the retry budget and the loss
// shows up in the stats, while later events still get through once the
// player recovers.
func TestRetryExhaustionAndRecovery(t *testing.T) {
	queue := dispatch.NewQueue(16)
	ctrl := player.NewFakeController()
	ctrl.SetErr("play_pause", player.ErrUnreachable)

	disp := dispatch.New(queue, ctrl, map[string]string{
		"play": config.CmdPlayPause,
		"next": config.CmdNext,
	}, 2, time.Millisecond, 21)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	queue.Push(event.Event{Time: now, Kind: event.ButtonPressed, Button: "play"})
	queue.Push(event.Event{Time: now, Kind: event.ButtonPressed, Button: "next"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := disp.Stats()
		if s.Dropped == 1 && s.Delivered == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	stats := disp.Stats()
	if stats.Dropped != 1 || stats.ButtonsLost != 1 || stats.Retried != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Delivered != 1 {
		t.Errorf("delivered = %d", stats.Delivered)
	}
	if calls := ctrl.Calls(); len(calls) != 1 || calls[0] != "next" {
		t.Errorf("calls = %v", calls)
	}
}
