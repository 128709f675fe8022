package chatws

import (
	"sync"
)

type (
	callback[T any] func(T)

	// Unsubscribe removes the listener it was returned for. Calling it more than once is a no-op.
	Unsubscribe func()

	// registration wraps a listener so that it can be found again on removal, as Go funcs are not comparable.
	registration[V any] struct {
		fn callback[V]
	}
)

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to an ordered list
// of callbacks receiving values of type V.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]*registration[V]
	lock      sync.RWMutex
	onPanic   func(event K, recovered any)
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]*registration[V]),
	}
}

// OnPanic installs a handler for panics raised by listeners. Once set, a panicking listener
// no longer aborts the dispatch: the panic is handed to fn and the next listener runs.
func (e *EventEmitterCallback[K, V]) OnPanic(fn func(event K, recovered any)) *EventEmitterCallback[K, V] {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.onPanic = fn
	return e
}

// On registers a new listener for the given event, after any already registered.
func (e *EventEmitterCallback[K, V]) On(event K, listener callback[V]) Unsubscribe {
	reg := &registration[V]{fn: listener}

	e.lock.Lock()
	e.listeners[event] = append(e.listeners[event], reg)
	e.lock.Unlock()

	return func() {
		e.remove(event, reg)
	}
}

func (e *EventEmitterCallback[K, V]) remove(event K, reg *registration[V]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	listeners := e.listeners[event]
	for i, l := range listeners {
		if l != reg {
			continue
		}
		// Build a new backing array: Emit may be iterating over a snapshot of the old one.
		next := make([]*registration[V], 0, len(listeners)-1)
		next = append(next, listeners[:i]...)
		next = append(next, listeners[i+1:]...)
		if len(next) == 0 {
			delete(e.listeners, event)
		} else {
			e.listeners[event] = next
		}
		return
	}
}

// Emit triggers all listeners registered for the given event synchronously and in registration
// order. Listeners run outside the emitter lock, so they may register or unsubscribe freely.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	listeners := e.listeners[event]
	onPanic := e.onPanic
	e.lock.RUnlock()

	for _, listener := range listeners {
		if onPanic == nil {
			listener.fn(data)
			continue
		}
		e.call(event, listener.fn, data, onPanic)
	}
}

func (e *EventEmitterCallback[K, V]) call(event K, fn callback[V], data V, onPanic func(K, any)) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(event, r)
		}
	}()

	fn(data)
}

// Len returns the number of listeners registered for event.
func (e *EventEmitterCallback[K, V]) Len(event K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.listeners[event])
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]*registration[V])
}
