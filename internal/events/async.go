package events

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Async.Publish when the backlog is full and the
// event is dropped.
var ErrQueueFull = errors.New("event queue is full")

const defaultQueueSize = 256

// Async hands events to a background worker so callers never wait on the
// broker. Delivery errors are logged by the worker.
type Async struct {
	next      Publisher
	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsync starts a worker publishing through next. size <= 0 uses the
// default backlog.
func NewAsync(next Publisher, size int) *Async {
	if size <= 0 {
		size = defaultQueueSize
	}
	a := &Async{next: next, queue: make(chan Event, size), done: make(chan struct{})}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		if err := a.next.Publish(context.Background(), e); err != nil {
			log.WithError(err).WithFields(log.Fields{"event": e.Type, "appointment_id": e.AppointmentID}).Error("Failed to publish event")
		}
	}
}

// Publish queues event without blocking. It must not be called after Close.
func (a *Async) Publish(_ context.Context, event Event) error {
	select {
	case a.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the worker once the queued events are delivered.
func (a *Async) Close() {
	a.closeOnce.Do(func() { close(a.queue) })
	<-a.done
}
