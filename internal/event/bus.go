// Package event provides the in-process publish/subscribe bus that wires
// the store, command history, compositor and export engine together.
//
// Delivery is synchronous and in subscription order on the publisher's
// goroutine; the editing core is single-threaded and event-driven, so
// handlers are expected to be short. A panicking handler is isolated and
// never takes down the publisher.
package event

import (
	"sync"
	"time"
)

// Topics published by the core.
const (
	TopicProjectChanged       = "project.changed"
	TopicAssetsChanged        = "assets.changed"
	TopicHistoryChanged       = "history.changed"
	TopicCompositorInvalidate = "compositor.invalidate"
	TopicExportProgress       = "export.progress"
	TopicPlaybackTick         = "playback.tick"
)

// Event is one published notification.
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// Handler receives published events.
type Handler func(Event)

// PanicHandler is invoked when a subscriber panics.
type PanicHandler func(topic string, recovered any)

type subscription struct {
	id      uint64
	topic   string
	handler Handler
}

// Bus is a topic-keyed synchronous event bus.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]*subscription

	onPanic PanicHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// SetPanicHandler installs a callback for subscriber panics.
func (b *Bus) SetPanicHandler(fn PanicHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPanic = fn
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function. The exact topic string must match; there is no pattern
// matching.
func (b *Bus) Subscribe(topic string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, topic: topic, handler: fn}
	b.subs[topic] = append(b.subs[topic], sub)

	id := sub.id
	return func() { b.unsubscribe(topic, id) }
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to every subscriber of the topic, in
// subscription order.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	onPanic := b.onPanic
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload, Timestamp: time.Now()}
	for _, s := range subs {
		b.deliver(s, ev, onPanic)
	}
}

func (b *Bus) deliver(s *subscription, ev Event, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(ev.Topic, r)
		}
	}()
	s.handler(ev)
}

// SubscriberCount returns the number of handlers on a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
