// Package dispatch implements the typed publish/subscribe registry that
// decouples message arrival from consumption. Listeners subscribe to named
// channels; the distinguished "*" channel receives every emitted event.
package dispatch

import (
	"sync"

	"github.com/google/uuid"
)

// Wildcard is the channel that receives every event regardless of name.
const Wildcard = "*"

// Handler receives the originating channel name and the event payload.
type Handler[T any] func(channel string, payload T)

// Subscription identifies a registered listener. Go functions are not
// comparable, so removal is by token rather than by callback identity.
type Subscription struct {
	Channel string
	id      uuid.UUID
}

// Dispatcher routes events to per-channel listener sets.
type Dispatcher[T any] struct {
	mu       sync.Mutex
	channels map[string]map[uuid.UUID]Handler[T]
}

// New creates an empty dispatcher.
func New[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{
		channels: make(map[string]map[uuid.UUID]Handler[T]),
	}
}

// On registers h on channel and returns its subscription token.
func (d *Dispatcher[T]) On(channel string, h Handler[T]) Subscription {
	sub := Subscription{Channel: channel, id: uuid.New()}

	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.channels[channel]
	if !ok {
		set = make(map[uuid.UUID]Handler[T])
		d.channels[channel] = set
	}
	set[sub.id] = h
	return sub
}

// Once registers h to run for a single event. The listener deregisters
// itself before h is invoked, so a handler that re-subscribes or emits
// cannot observe its own stale registration. Concurrent emits can both
// snapshot the wrapper before either removes it, so invocation is also
// guarded directly.
func (d *Dispatcher[T]) Once(channel string, h Handler[T]) Subscription {
	sub := Subscription{Channel: channel, id: uuid.New()}

	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.channels[channel]
	if !ok {
		set = make(map[uuid.UUID]Handler[T])
		d.channels[channel] = set
	}
	var once sync.Once
	set[sub.id] = func(ch string, payload T) {
		once.Do(func() {
			d.Off(sub)
			h(ch, payload)
		})
	}
	return sub
}

// Off removes the listener identified by sub. Removing the last listener
// for a channel removes the channel entry entirely. Unknown tokens are a
// no-op.
func (d *Dispatcher[T]) Off(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.channels[sub.Channel]
	if !ok {
		return
	}
	delete(set, sub.id)
	if len(set) == 0 {
		delete(d.channels, sub.Channel)
	}
}

// Emit delivers payload to every listener on channel plus every wildcard
// listener. Delivery order across listeners is unspecified. Handlers run
// without the dispatcher lock held, so they may subscribe or unsubscribe.
func (d *Dispatcher[T]) Emit(channel string, payload T) {
	d.mu.Lock()
	handlers := make([]Handler[T], 0, len(d.channels[channel])+len(d.channels[Wildcard]))
	for _, h := range d.channels[channel] {
		handlers = append(handlers, h)
	}
	if channel != Wildcard {
		for _, h := range d.channels[Wildcard] {
			handlers = append(handlers, h)
		}
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(channel, payload)
	}
}

// ListenerCount returns the number of listeners registered on channel.
func (d *Dispatcher[T]) ListenerCount(channel string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels[channel])
}

// Clear removes every registration.
func (d *Dispatcher[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = make(map[string]map[uuid.UUID]Handler[T])
}
