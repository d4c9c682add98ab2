// Package events provides a synchronous, type-keyed publish/subscribe bus.
// Event types live with the package that emits them.
package events

import "reflect"

// Bus dispatches events to handlers registered for the event's concrete type.
// Handlers run synchronously on the publishing goroutine, in no guaranteed order.
// A Bus is not safe for concurrent use; the simulation is single-threaded.
type Bus struct {
	handlers map[reflect.Type]map[uint64]func(any)
	nextID   uint64

	held    int
	pending []func()
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type]map[uint64]func(any))}
}

// Subscribe registers fn for events of type E and returns a function that removes it.
func Subscribe[E any](b *Bus, fn func(E)) (unsubscribe func()) {
	key := reflect.TypeFor[E]()
	set, ok := b.handlers[key]
	if !ok {
		set = make(map[uint64]func(any))
		b.handlers[key] = set
	}

	id := b.nextID
	b.nextID++
	set[id] = func(e any) { fn(e.(E)) }

	return func() {
		delete(set, id)
	}
}

// Publish delivers e to every handler subscribed to its type.
// A nil bus drops the event.
func Publish[E any](b *Bus, e E) {
	if b == nil {
		return
	}
	if b.held > 0 {
		b.pending = append(b.pending, func() { dispatch(b, e) })
		return
	}
	dispatch(b, e)
}

func dispatch[E any](b *Bus, e E) {
	for _, fn := range b.handlers[reflect.TypeFor[E]()] {
		fn(e)
	}
}

// Hold queues published events until the matching Release. Holds nest.
func (b *Bus) Hold() {
	if b == nil {
		return
	}
	b.held++
}

// Release ends one Hold. When the outermost hold ends, queued events are
// delivered in publish order. Events published by handlers during delivery
// are dispatched immediately.
func (b *Bus) Release() {
	if b == nil || b.held == 0 {
		return
	}
	b.held--
	if b.held > 0 {
		return
	}
	queued := b.pending
	b.pending = nil
	for _, deliver := range queued {
		deliver()
	}
}

// Held reports whether events are currently being queued.
func (b *Bus) Held() bool {
	return b != nil && b.held > 0
}

// Count returns the number of handlers registered for events of type E.
func Count[E any](b *Bus) int {
	return len(b.handlers[reflect.TypeFor[E]()])
}
