package event

import (
	"context"
	"log/slog"
	"sync"
)

type (
	// A Bus relays events from publishers to topic subscribers.
	//
	// Delivery is at-least-once to every subscriber registered for
	// the topic at publish time. Publishes to the same topic reach
	// each subscriber in publish order. A handler fault never
	// prevents delivery to other subscribers and never propagates
	// to the publisher
	Bus interface {
		// Publish hands the event to the bus. The event has been
		// accepted for delivery by the time Publish returns
		Publish(context.Context, Event)
		// Subscribe registers a handler for a topic and returns a
		// cancel function that removes the registration
		Subscribe(topic string, handler Handler) (cancel func())
		// Close stops dispatch workers after draining their queues.
		// Only meaningful for asynchronous buses
		Close() error
	}

	// Option customizes a Bus
	Option func(*options)

	options struct {
		async  bool
		buffer int
	}

	dispatch struct {
		ctx context.Context
		ev  Event
	}

	subscription struct {
		id      uint64
		topic   string
		handler Handler
		// qmu serializes sends against close so a late publish
		// never hits a closed queue
		qmu    sync.Mutex
		closed bool
		// queue is non-nil in async mode; one worker drains it so
		// per-subscriber publish order is preserved
		queue chan dispatch
	}

	bus struct {
		mu        sync.RWMutex
		opts      options
		nextID    uint64
		subs      map[string][]*subscription
		wg        sync.WaitGroup
		closeOnce sync.Once
	}
)

var _ Bus = (*bus)(nil)

// WithAsync defers handler execution to one worker per subscriber,
// so publishers never wait on subscriber work. buffer bounds each
// subscriber's queue; a non-positive buffer gets a small default
func WithAsync(buffer int) Option {
	return func(o *options) {
		o.async = true
		if buffer > 0 {
			o.buffer = buffer
		}
	}
}

// NewBus returns a bus that dispatches synchronously in subscribe
// order unless WithAsync is given
func NewBus(opts ...Option) Bus {
	o := options{buffer: 64}
	for _, f := range opts {
		f(&o)
	}

	return &bus{
		opts: o,
		subs: make(map[string][]*subscription),
	}
}

func (b *bus) Subscribe(topic string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		topic:   topic,
		handler: handler,
	}

	if b.opts.async {
		sub.queue = make(chan dispatch, b.opts.buffer)
		b.wg.Add(1)
		go b.drain(sub, sub.queue)
	}

	b.subs[topic] = append(b.subs[topic], sub)

	return func() { b.unsubscribe(sub) }
}

func (b *bus) Publish(ctx context.Context, ev Event) {
	if len(ev.ID) == 0 {
		now := nowFunc()
		ev.ID = newEventID(now)
		if ev.At.IsZero() {
			ev.At = now
		}
	} else if ev.At.IsZero() {
		ev.At = nowFunc()
	}

	b.mu.RLock()
	targets := append([]*subscription(nil), b.subs[ev.Topic]...)
	b.mu.RUnlock()

	for _, sub := range targets {
		if !sub.send(dispatch{ctx: ctx, ev: ev}) {
			invoke(sub.handler, ctx, ev)
		}
	}
}

// send enqueues for async delivery, reporting false when the
// subscription dispatches synchronously. A closed subscription
// swallows the event
func (s *subscription) send(d dispatch) bool {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	if s.queue == nil {
		return s.closed
	}

	s.queue <- d
	return true
}

func (s *subscription) stop() {
	s.qmu.Lock()
	defer s.qmu.Unlock()

	s.closed = true
	if s.queue != nil {
		close(s.queue)
		s.queue = nil
	}
}

func (b *bus) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		for topic, subs := range b.subs {
			for _, sub := range subs {
				sub.stop()
			}
			delete(b.subs, topic)
		}
		b.mu.Unlock()

		b.wg.Wait()
	})

	return nil
}

func (b *bus) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i, candidate := range subs {
		if candidate.id == sub.id {
			b.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			sub.stop()
			return
		}
	}
}

func (b *bus) drain(sub *subscription, queue chan dispatch) {
	defer b.wg.Done()

	for d := range queue {
		invoke(sub.handler, d.ctx, d.ev)
	}
}

func invoke(handler Handler, ctx context.Context, ev Event) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("event: handler panicked",
				"topic", ev.Topic, "event", ev.ID, "panic", v)
		}
	}()

	handler(ctx, ev)
}
