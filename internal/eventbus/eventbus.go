// Package eventbus is a small in-memory event bus connecting the pipeline to
// interested listeners (currently operator notifications). Publishing never
// blocks the pipeline: events go through a buffered channel and are dispatched
// by a single worker goroutine.
package eventbus

import (
	"log/slog"
	"sync"
	"time"
)

// Pipeline event types.
const (
	EventCycleAborted  = "pipeline.cycle.aborted"
	EventNoticeAlerted = "pipeline.notice.alerted"
)

const bufferSize = 64

// Event is an application event published to the bus.
type Event struct {
	Type      string
	Timestamp time.Time
	Payload   map[string]string
}

// Listener handles a single event.
type Listener func(Event)

// Bus dispatches published events to all subscribed listeners.
type Bus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// New creates a Bus and starts its dispatch worker.
func New(logger *slog.Logger) *Bus {
	b := &Bus{
		ch:     make(chan Event, bufferSize),
		logger: logger,
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for e := range b.ch {
			b.dispatch(e)
		}
	}()
	return b
}

// Publish enqueues an event. If the buffer is full the event is dropped and
// a warning is logged rather than stalling the publisher.
func (b *Bus) Publish(eventType string, payload map[string]string) {
	e := Event{Type: eventType, Timestamp: time.Now(), Payload: payload}
	select {
	case b.ch <- e:
	default:
		b.logger.Warn("event buffer full, dropping event", "type", eventType)
	}
}

// Subscribe registers a listener for all future events. Subscribe must be
// called before the first Publish.
func (b *Bus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

// Close stops accepting events and waits for pending ones to be dispatched.
func (b *Bus) Close() {
	close(b.ch)
	b.wg.Wait()
}

// dispatch invokes every listener with panic isolation, so one broken
// listener cannot starve the others.
func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event listener panicked", "type", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}
