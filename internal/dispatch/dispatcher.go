package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/inputd/internal/config"
	"github.com/sweeney/inputd/internal/event"
	"github.com/sweeney/inputd/internal/player"
)

// Stats is a snapshot of delivery outcomes.
type Stats struct {
	// Delivered counts events successfully handed to the player.
	Delivered int
	// Retried counts individual failed attempts that were retried.
	Retried int
	// Dropped counts events abandoned after the retry limit.
	Dropped int
	// ButtonsLost counts button events lost to retry exhaustion or queue
	// overflow. Every one of these is unrecoverable user intent.
	ButtonsLost int
}

// Dispatcher drains the queue on its own goroutine and delivers each event
// to the player with bounded retries, so the sampling loop is never exposed
// to dispatch latency or failure.
type Dispatcher struct {
	queue    *Queue
	ctrl     player.Controller
	commands map[string]string // button name -> playback command
	attempts int
	backoff  time.Duration
	levels   int

	mu    sync.Mutex
	stats Stats

	done chan struct{}

	// sleep waits for d or until ctx is done; injectable so retry tests
	// need no wall-clock time.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a dispatcher delivering to ctrl. commands maps button names to
// playback commands; attempts is the total tries per event; backoff is the
// first retry delay, doubling per attempt; levels is the volume quantization
// used to map levels onto percent.
func New(q *Queue, ctrl player.Controller, commands map[string]string, attempts int, backoff time.Duration, levels int) *Dispatcher {
	return &Dispatcher{
		queue:    q,
		ctrl:     ctrl,
		commands: commands,
		attempts: attempts,
		backoff:  backoff,
		levels:   levels,
		done:     make(chan struct{}),
		sleep:    sleepCtx,
	}
}

// Run drains the queue until ctx is done. Call from its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		ev, err := d.queue.Pop(ctx)
		if err != nil {
			return
		}
		d.dispatch(ctx, ev)
	}
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

// Stats returns a snapshot of delivery outcomes, including queue overflow
// losses.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	s := d.stats
	d.mu.Unlock()
	s.ButtonsLost += d.queue.Lost()
	return s
}

// Drain makes one final best-effort attempt per remaining queued event,
// bounded by grace. Used at shutdown after Run has stopped; retries beyond
// the grace window are abandoned rather than blocking exit.
func (d *Dispatcher) Drain(grace time.Duration) {
	deadline := time.Now().Add(grace)
	for {
		ev, ok := d.queue.TryPop()
		if !ok {
			return
		}
		if time.Now().After(deadline) {
			log.Printf("dispatch: shutdown grace expired, abandoning %s", ev)
			d.recordDrop(ev)
			continue
		}
		if err := d.deliver(ev); err != nil {
			log.Printf("dispatch: final attempt for %s failed: %v", ev, err)
			d.recordDrop(ev)
			continue
		}
		d.mu.Lock()
		d.stats.Delivered++
		d.mu.Unlock()
	}
}

// dispatch delivers one event with bounded retries and doubling backoff.
// On exhaustion the event is dropped with a warning; a dropped button event
// is additionally counted as lost user intent.
func (d *Dispatcher) dispatch(ctx context.Context, ev event.Event) {
	backoff := d.backoff
	for attempt := 1; ; attempt++ {
		err := d.deliver(ev)
		if err == nil {
			d.mu.Lock()
			d.stats.Delivered++
			d.mu.Unlock()
			return
		}

		if attempt >= d.attempts {
			log.Printf("dispatch: dropping %s after %d attempts: %v", ev, attempt, err)
			d.recordDrop(ev)
			return
		}

		log.Printf("dispatch: %s attempt %d failed (%s): %v", ev, attempt, classify(err), err)
		d.mu.Lock()
		d.stats.Retried++
		d.mu.Unlock()

		d.sleep(ctx, backoff)
		if ctx.Err() != nil {
			d.recordDrop(ev)
			return
		}
		backoff *= 2
	}
}

// deliver makes a single attempt to hand ev to the player.
func (d *Dispatcher) deliver(ev event.Event) error {
	switch ev.Kind {
	case event.VolumeChanged:
		return d.ctrl.SetVolume(d.percent(ev.Level))
	case event.ButtonPressed:
		cmd, ok := d.commands[ev.Button]
		if !ok {
			return fmt.Errorf("no command mapped for button %q", ev.Button)
		}
		return d.run(cmd)
	case event.ButtonReleased:
		// Releases carry no playback meaning for momentary buttons, but
		// they are part of the ordered stream and are delivered as a no-op
		// so FIFO accounting stays uniform.
		return nil
	}
	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

func (d *Dispatcher) run(cmd string) error {
	switch cmd {
	case config.CmdPlayPause:
		return d.ctrl.PlayPause()
	case config.CmdNext:
		return d.ctrl.Next()
	case config.CmdPrevious:
		return d.ctrl.Previous()
	case config.CmdStop:
		return d.ctrl.Stop()
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// percent maps a quantized level onto 0-100 for the player.
func (d *Dispatcher) percent(level int) int {
	if d.levels <= 1 {
		return 100
	}
	return (level*100 + (d.levels-1)/2) / (d.levels - 1)
}

func (d *Dispatcher) recordDrop(ev event.Event) {
	d.mu.Lock()
	d.stats.Dropped++
	if ev.Kind == event.ButtonPressed || ev.Kind == event.ButtonReleased {
		d.stats.ButtonsLost++
	}
	d.mu.Unlock()
}

// classify tags a failed attempt for the log: the player being unreachable
// is a different operational problem than a command rejected on a live
// connection.
func classify(err error) string {
	if errors.Is(err, player.ErrUnreachable) {
		return "unreachable"
	}
	return "transient"
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
