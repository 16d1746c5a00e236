// Command inputd polls physical controls (buttons on GPIO lines, a volume
// pot on an ADC channel) and turns them into playback commands for an MPD
// server, with optional MQTT telemetry and an HTTP status page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/inputd/internal/config"
	"github.com/sweeney/inputd/internal/dispatch"
	"github.com/sweeney/inputd/internal/event"
	"github.com/sweeney/inputd/internal/hal"
	"github.com/sweeney/inputd/internal/logic"
	"github.com/sweeney/inputd/internal/mqtt"
	"github.com/sweeney/inputd/internal/player"
	"github.com/sweeney/inputd/internal/status"
	"github.com/sweeney/inputd/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	printState := flag.Bool("print-state", false, "Print current input state and exit")
	flag.Parse()

	if err := run(*configPath, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath string, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Initialize hardware. Every configured line and channel must be
	// reachable at startup; anything less is fatal.
	digital, err := hal.NewGPIOReader(cfg.Hardware.GPIOChip, cfg.Lines())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer digital.Close()

	var analog hal.AnalogSampler
	if cfg.Volume.Enabled {
		adc, err := hal.NewADS1115(cfg.Hardware.I2CBus, uint16(cfg.Hardware.ADCAddr), cfg.Volume.Channel)
		if err != nil {
			return fmt.Errorf("init adc: %w", err)
		}
		defer adc.Close()
		analog = adc
	}

	if printState {
		return printCurrentState(cfg, digital, analog)
	}

	agg, err := buildAggregator(cfg)
	if err != nil {
		return err
	}

	ctrl := player.NewMPDController(cfg.Player.Network, cfg.Player.Address)
	defer ctrl.Close()

	queue := dispatch.NewQueue(cfg.Dispatch.QueueSize)
	disp := dispatch.New(queue, ctrl, cfg.Commands(), cfg.Dispatch.Retries, cfg.Backoff(), cfg.Volume.Levels)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	// Telemetry is optional and never fatal: the daemon's job is turning
	// inputs into playback commands, not reporting on itself.
	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		if err != nil {
			log.Printf("mqtt disabled: %v", err)
		} else {
			defer real.Close()
			publisher = real
			connStatus = real
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		DigitalPollMs: cfg.Sampling.DigitalPollMs,
		AnalogPollMs:  cfg.Sampling.AnalogPollMs,
		DebounceMs:    cfg.Sampling.DebounceMs,
		HeartbeatMs:   cfg.MQTT.HeartbeatMs,
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		PlayerAddr:    cfg.Player.Network + "://" + cfg.Player.Address,
	})

	if publisher != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	digitalTicker := time.NewTicker(cfg.DigitalPoll())
	defer digitalTicker.Stop()
	var analogTick <-chan time.Time
	if analog != nil {
		analogTicker := time.NewTicker(cfg.AnalogPoll())
		defer analogTicker.Stop()
		analogTick = analogTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("started: buttons=%d volume=%v player=%s://%s digital_poll=%v analog_poll=%v debounce=%v",
		len(cfg.Buttons), cfg.Volume.Enabled, cfg.Player.Network, cfg.Player.Address,
		cfg.DigitalPoll(), cfg.AnalogPoll(), cfg.Debounce())

	l := &loop{
		digital:     digital,
		analog:      analog,
		agg:         agg,
		queue:       queue,
		disp:        disp,
		publisher:   publisher,
		connStatus:  connStatus,
		tracker:     tracker,
		heartbeat:   cfg.Heartbeat(),
		now:         time.Now,
		digitalTick: digitalTicker.C,
		analogTick:  analogTick,
		sig:         sigCh,
	}
	reason := l.run()

	// Sampling has stopped. Stop the worker, then give whatever is still
	// queued one last best-effort pass bounded by the grace window.
	cancel()
	disp.Wait()
	disp.Drain(cfg.ShutdownGrace())

	if publisher != nil {
		if connStatus != nil {
			tracker.SetMQTTConnected(connStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		shutdown := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "SHUTDOWN",
			Reason:     reason,
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
		}
		if err := publisher.PublishSystem(shutdown); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
	}

	stats := disp.Stats()
	log.Printf("stopped: delivered=%d retried=%d dropped=%d buttons_lost=%d",
		stats.Delivered, stats.Retried, stats.Dropped, stats.ButtonsLost)
	return nil
}

// buildAggregator wires the configured inputs into their filters.
func buildAggregator(cfg config.Config) (*logic.Aggregator, error) {
	agg := logic.NewAggregator()
	for _, b := range cfg.Buttons {
		agg.AddButton(b.Name, cfg.Debounce(), b.ActiveLow)
	}
	if cfg.Volume.Enabled {
		var curve *logic.Curve
		if len(cfg.Volume.Curve) > 0 {
			var err error
			curve, err = logic.NewCurve(cfg.Volume.Curve)
			if err != nil {
				return nil, fmt.Errorf("volume curve: %w", err)
			}
		}
		agg.SetVolume(logic.NewVolumeFilter(
			cfg.Volume.RawMin, cfg.Volume.RawMax, cfg.Volume.Levels,
			cfg.Volume.Alpha, float64(cfg.Volume.Hysteresis), curve))
	}
	return agg, nil
}

// loop is the sampling loop: the single goroutine that owns all per-input
// filter state and the only producer into the dispatch queue. It never
// performs blocking I/O to the player; a slow downstream can never delay
// the next sample.
type loop struct {
	digital    hal.DigitalReader
	analog     hal.AnalogSampler
	agg        *logic.Aggregator
	queue      *dispatch.Queue
	disp       *dispatch.Dispatcher
	publisher  mqtt.Publisher        // nil when telemetry is disabled
	connStatus mqtt.ConnectionStatus // nil when telemetry is disabled
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time

	digitalTick <-chan time.Time
	analogTick  <-chan time.Time // nil when no volume input is configured
	sig         <-chan os.Signal

	// last good samples, reused when a transient read fails
	lastDigital []bool
	haveDigital bool
	lastAnalog  int
	haveAnalog  bool
	readErrors  int

	lastHeartbeat time.Time
}

// run polls until a shutdown signal arrives and returns the signal name.
func (l *loop) run() string {
	l.lastHeartbeat = l.now()

	for {
		select {
		case s := <-l.sig:
			log.Printf("received %v, shutting down", s)
			return signalName(s)

		case <-l.digitalTick:
			l.cycleDigital(l.now())

		case <-l.analogTick:
			l.cycleAnalog(l.now())
		}
	}
}

func (l *loop) cycleDigital(now time.Time) {
	raw, err := l.digital.ReadLines()
	if err != nil {
		// Transient read failure: reuse the previous cycle's sample so the
		// debouncers keep a continuous view. Never fatal.
		l.readErrors++
		log.Printf("gpio read error (reusing last sample): %v", err)
		if !l.haveDigital {
			return
		}
		raw = l.lastDigital
	} else {
		l.lastDigital = raw
		l.haveDigital = true
	}

	events, err := l.agg.CycleDigital(raw, now)
	if err != nil {
		log.Printf("digital cycle: %v", err)
		return
	}
	for _, ev := range events {
		l.emit(ev)
	}

	l.updateTracker()
	l.checkHeartbeat(now)
}

func (l *loop) cycleAnalog(now time.Time) {
	raw, err := l.analog.Sample()
	if err != nil {
		l.readErrors++
		log.Printf("adc read error (reusing last sample): %v", err)
		if !l.haveAnalog {
			return
		}
		raw = l.lastAnalog
	} else {
		l.lastAnalog = raw
		l.haveAnalog = true
	}

	if ev := l.agg.CycleAnalog(raw, now); ev != nil {
		l.emit(*ev)
	}
	l.updateTracker()
}

// emit hands one event to the dispatch queue (never blocking) and mirrors
// it onto the telemetry feed.
func (l *loop) emit(ev event.Event) {
	log.Printf("event: %s", ev)
	l.queue.Push(ev)
	if l.publisher != nil {
		if err := l.publisher.PublishEvent(ev); err != nil {
			log.Printf("telemetry publish error: %v", err)
		}
	}
}

func (l *loop) updateTracker() {
	level, known := l.agg.VolumeLevel()
	l.tracker.Update(l.agg.ButtonStates(), l.agg.Ready(), level, known, l.agg.Counts(), l.disp.Stats())
	if l.connStatus != nil {
		l.tracker.SetMQTTConnected(l.connStatus.IsConnected())
	}
}

func (l *loop) checkHeartbeat(now time.Time) {
	if l.heartbeat <= 0 || l.publisher == nil || !l.agg.Ready() {
		return
	}
	if now.Sub(l.lastHeartbeat) < l.heartbeat {
		return
	}
	l.lastHeartbeat = now

	snap := l.tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v pressed=%d released=%d volume_changes=%d read_errors=%d",
		snap.Uptime().Truncate(time.Second), snap.Counts.Pressed, snap.Counts.Released,
		snap.Counts.VolumeChanges, l.readErrors)

	hb := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(hb); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// printCurrentState reads every input once and prints it. Used by
// -print-state for wiring checks.
func printCurrentState(cfg config.Config, digital hal.DigitalReader, analog hal.AnalogSampler) error {
	raw, err := digital.ReadLines()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	for i, b := range cfg.Buttons {
		pressed := raw[i] != b.ActiveLow
		state := "released"
		if pressed {
			state = "pressed"
		}
		fmt.Printf("%s (line %d): %s\n", b.Name, b.Line, state)
	}
	if analog != nil {
		sample, err := analog.Sample()
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		fmt.Printf("volume (channel %d): raw %d\n", cfg.Volume.Channel, sample)
	}
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
