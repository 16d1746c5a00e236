// Package dispatch decouples the sampling loop from command delivery. The
// hand-off is a bounded queue the sampling loop pushes into without ever
// blocking; a single worker drains it, translates events into playback
// commands, and absorbs downstream latency and failure with bounded retries.
package dispatch

import (
	"context"
	"log"
	"sync"

	"github.com/sweeney/inputd/internal/event"
)

// Queue is the bounded hand-off between sampling and dispatch. Push never
// blocks: coalescing kinds keep a single slot holding the latest value at
// the position of its latest occurrence, FIFO kinds are appended, and on
// overflow the oldest FIFO event is dropped and counted as lost. Safe for
// one producer and one consumer.
type Queue struct {
	mu       sync.Mutex
	items    []event.Event
	capacity int
	lost     int

	// wake has capacity 1 and is signalled on every push so a blocked Pop
	// can re-check the queue.
	wake chan struct{}
}

// NewQueue creates a queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		wake:     make(chan struct{}, 1),
	}
}

// Push enqueues ev according to its kind's discipline.
func (q *Queue) Push(ev event.Event) {
	q.mu.Lock()

	if ev.Kind.Coalesces() {
		// Remove the superseded occurrence; the new one goes to the back so
		// its position in the order is the position of the latest occurrence.
		for i, it := range q.items {
			if it.Kind == ev.Kind {
				q.items = append(q.items[:i], q.items[i+1:]...)
				break
			}
		}
	} else if len(q.items) >= q.capacity {
		// Drop the oldest FIFO event. The most recent user intent is worth
		// more than the oldest, but a lost button press is unrecoverable,
		// so it is counted and reported.
		for i, it := range q.items {
			if !it.Kind.Coalesces() {
				log.Printf("dispatch: queue full (%d), dropping oldest event: %s", q.capacity, it)
				q.items = append(q.items[:i], q.items[i+1:]...)
				q.lost++
				break
			}
		}
	}

	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head event, blocking until one is available or
// ctx is done.
func (q *Queue) Pop(ctx context.Context) (event.Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return event.Event{}, ctx.Err()
		}
	}
}

// TryPop removes and returns the head event without blocking.
func (q *Queue) TryPop() (event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return event.Event{}, false
	}
	ev := q.items[0]
	q.items = q.items[1:]
	return ev, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Lost returns how many events were dropped to overflow.
func (q *Queue) Lost() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lost
}
