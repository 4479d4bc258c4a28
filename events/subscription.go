package events

import (
	"sync"

	"github.com/lightningnetwork/lnd/queue"
)

// subscriptionBufferSize is the number of payloads buffered in a
// subscription's channel before the queue starts to grow its overflow.
const subscriptionBufferSize = 20

// Subscription is a channel based consumer of a single event channel. Its
// handler only hands payloads to an unbounded queue, so a slow reader never
// stalls the dispatching goroutine.
type Subscription struct {
	event string
	token Token

	registry *Registry

	updates *queue.ConcurrentQueue
	quit    chan struct{}

	once sync.Once
}

// Subscribe returns a Subscription that receives every payload dispatched on
// event from now on, until it is cancelled.
func (r *Registry) Subscribe(event string) (*Subscription, error) {
	sub := &Subscription{
		event:    event,
		registry: r,
		updates:  queue.NewConcurrentQueue(subscriptionBufferSize),
		quit:     make(chan struct{}),
	}

	sub.updates.Start()

	// The stopped check and the registration share one critical section
	// so Stop can't run between them.
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		sub.stop()

		return nil, ErrRegistryStopped
	}
	r.subscriptions[sub] = struct{}{}
	sub.token = r.register(event, sub.deliver)
	r.mu.Unlock()

	return sub, nil
}

// deliver is the handler registered on behalf of the subscription.
func (s *Subscription) deliver(payload any) {
	select {
	case s.updates.ChanIn() <- payload:
	case <-s.quit:
	}
}

// Event returns the name of the event channel the subscription listens on.
func (s *Subscription) Event() string {
	return s.event
}

// Updates returns a read-only channel where the subscribed payloads will be
// delivered.
func (s *Subscription) Updates() <-chan interface{} {
	return s.updates.ChanOut()
}

// Quit is a channel that will be closed once the subscription no longer
// delivers payloads, either because it was cancelled or because the registry
// was stopped.
func (s *Subscription) Quit() <-chan struct{} {
	return s.quit
}

// Cancel deregisters the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.registry.Off(s.event, s.token)

	s.registry.mu.Lock()
	delete(s.registry.subscriptions, s)
	s.registry.mu.Unlock()

	s.stop()
}

// stop closes the quit channel and tears down the queue exactly once.
func (s *Subscription) stop() {
	s.once.Do(func() {
		close(s.quit)
		s.updates.Stop()
	})
}
