// Package event provides the publish/subscribe channel that carries chat
// streaming updates to connected UIs.
//
// Design principles:
// - Each event type is a separate Go type for type safety
// - Events carry the chat id so clients can subscribe per chat
// - Delivery is best effort; slow subscribers never block a publisher
package event

import (
	"sync"
)

// Event is the interface all event types must implement.
type Event interface {
	// EventName returns the unique name for this event type (e.g., "chat.message.created")
	EventName() string
}

// ChatScoped is implemented by events that belong to one chat. The WS
// handler uses it to filter per-chat subscriptions.
type ChatScoped interface {
	ChatScope() string
}

// Listener is a callback function for handling events.
type Listener func(Event)

// subscription is the per-registration handle; unsubscribe removes it by
// identity so removals never shift another subscriber out from under its
// own handle.
type subscription struct {
	fn Listener
}

// Emitter manages event subscriptions and dispatching.
type Emitter struct {
	mu           sync.RWMutex
	listeners    map[string][]*subscription // eventName -> listeners
	allListeners []*subscription            // listeners for all events
}

// NewEmitter creates a new event emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[string][]*subscription),
	}
}

// On subscribes to a specific event type.
// Returns an unsubscribe function.
func (e *Emitter) On(eventName string, fn Listener) func() {
	sub := &subscription{fn: fn}

	e.mu.Lock()
	e.listeners[eventName] = append(e.listeners[eventName], sub)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.listeners[eventName] = removeSubscription(e.listeners[eventName], sub)
		})
	}
}

// OnAny subscribes to all events.
func (e *Emitter) OnAny(fn Listener) func() {
	sub := &subscription{fn: fn}

	e.mu.Lock()
	e.allListeners = append(e.allListeners, sub)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.allListeners = removeSubscription(e.allListeners, sub)
		})
	}
}

func removeSubscription(subs []*subscription, target *subscription) []*subscription {
	for i, s := range subs {
		if s == target {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Emit dispatches an event to all matching listeners.
// Listeners run on the caller's goroutine; they must not block.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	specific := make([]*subscription, len(e.listeners[ev.EventName()]))
	copy(specific, e.listeners[ev.EventName()])
	all := make([]*subscription, len(e.allListeners))
	copy(all, e.allListeners)
	e.mu.RUnlock()

	for _, s := range specific {
		s.fn(ev)
	}
	for _, s := range all {
		s.fn(ev)
	}
}
