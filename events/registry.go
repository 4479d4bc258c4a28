// Package events delivers provider originated notifications to the observers
// registered for them.
package events

import (
	"errors"
	"sync"
)

// ErrRegistryStopped is returned when a subscription is requested from a
// registry that has been stopped.
var ErrRegistryStopped = errors.New("event registry stopped")

// Handler is a callback invoked with the payload of every event delivered on
// the channel it was registered for.
type Handler func(payload any)

// Token identifies a single handler registration. Registering the same
// function twice yields two distinct tokens.
type Token uint64

// registration pairs a handler with the token handed out for it.
type registration struct {
	token   Token
	handler Handler
}

// Registry is an ordered collection of handler registrations per named event
// channel. The transport feeding a provider calls Dispatch for every event it
// receives, and the registry fans it out to the registered handlers in
// registration order.
//
// The registry performs no deduplication, reordering or replay: every
// Dispatch call is delivered once to the handlers registered at that moment.
type Registry struct {
	mu sync.Mutex

	lastToken Token

	handlers map[string][]registration

	subscriptions map[*Subscription]struct{}

	stopped bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:      make(map[string][]registration),
		subscriptions: make(map[*Subscription]struct{}),
	}
}

// On registers handler for the named event and returns the token that
// deregisters it.
func (r *Registry) On(event string, handler Handler) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.register(event, handler)
}

// register adds handler for event.
//
// NOTE: the caller must hold r.mu.
func (r *Registry) register(event string, handler Handler) Token {
	r.lastToken++
	token := r.lastToken

	r.handlers[event] = append(r.handlers[event], registration{
		token:   token,
		handler: handler,
	})

	log.Debugf("Registered handler %d for event %q", token, event)

	return token
}

// Off removes the registration identified by token from the named event. It
// returns false, and does nothing, if the token isn't registered for that
// event, for example because it was already removed. A dispatch that already
// snapshotted the handler still delivers to it.
func (r *Registry) Off(event string, token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.handlers[event]
	for i, reg := range regs {
		if reg.token != token {
			continue
		}

		// Copy into a fresh slice so a concurrent dispatch iterating
		// over the old one is unaffected.
		remaining := make([]registration, 0, len(regs)-1)
		remaining = append(remaining, regs[:i]...)
		remaining = append(remaining, regs[i+1:]...)

		if len(remaining) == 0 {
			delete(r.handlers, event)
		} else {
			r.handlers[event] = remaining
		}

		log.Debugf("Removed handler %d for event %q", token, event)

		return true
	}

	return false
}

// Count returns the number of handlers currently registered for event.
func (r *Registry) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handlers[event])
}

// Dispatch delivers payload to every handler registered for event, in
// registration order, on the calling goroutine. It returns the number of
// handlers invoked.
//
// NOTE: a handler that blocks stalls delivery to the handlers after it and to
// any later Dispatch made from the same goroutine.
func (r *Registry) Dispatch(event string, payload any) int {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return 0
	}
	regs := r.handlers[event]
	r.mu.Unlock()

	log.Tracef("Dispatching event %q to %d handler(s)", event, len(regs))

	for _, reg := range regs {
		reg.handler(payload)
	}

	return len(regs)
}

// Stop removes every registration and cancels all outstanding subscriptions.
// Later dispatches are dropped.
func (r *Registry) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.handlers = make(map[string][]registration)

	subs := make([]*Subscription, 0, len(r.subscriptions))
	for sub := range r.subscriptions {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}
