package events

import (
	"sync"
	"time"
)

// Handler processes a single event
type Handler func(Event)

// Bus distributes events from batch workers to subscribed consumers.
//
// Emit never blocks the producer: events land in an internal FIFO that a
// single dispatch goroutine drains to the handlers. The single dispatcher
// guarantees handlers observe events in emission order, which is what
// preserves per-repository started-before-completed ordering.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Event
	handlers []Handler
	closed   bool
	done     chan struct{}
}

// NewBus creates an event bus. The capacity is a sizing hint for the
// internal queue; the queue grows beyond it if consumers fall behind.
func NewBus(capacity int) *Bus {
	b := &Bus{
		queue: make([]Event, 0, capacity),
		done:  make(chan struct{}),
	}
	b.cond = sync.NewCond(&b.mu)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for all subsequent events.
// Handlers are invoked sequentially on the dispatch goroutine.
func (b *Bus) Subscribe(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit queues an event for delivery. Safe for concurrent use.
// Events emitted after Close are dropped.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	b.cond.Signal()
	b.mu.Unlock()
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		e := b.queue[0]
		b.queue = b.queue[1:]
		// handlers is append-only, so a snapshot of the slice header is safe
		handlers := b.handlers
		b.mu.Unlock()

		for _, h := range handlers {
			h(e)
		}
	}
}

// Close stops accepting events, delivers everything already queued,
// and waits for the dispatch goroutine to finish.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return nil
	}
	b.closed = true
	b.cond.Signal()
	b.mu.Unlock()

	<-b.done
	return nil
}
