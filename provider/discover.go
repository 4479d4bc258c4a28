package provider

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultPollInterval is the interval at which the injection point is
	// polled while waiting for a provider.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultDiscoveryTimeout is how long Discover waits for a provider
	// when the caller has no better idea.
	DefaultDiscoveryTimeout = 6 * time.Second
)

// slot wraps the injected value so candidates of any concrete type can share
// the atomic pointer.
type slot struct {
	candidate any
}

// injectionPoint is the process-wide slot an embedding environment places its
// provider in.
var injectionPoint atomic.Pointer[slot]

// Inject places candidate at the injection point, replacing any previous one.
// The candidate is not validated until it is discovered.
func Inject(candidate any) {
	injectionPoint.Store(&slot{candidate: candidate})
}

// Withdraw empties the injection point.
func Withdraw() {
	injectionPoint.Store(nil)
}

// Injected returns whatever currently sits at the injection point, or nil.
func Injected() any {
	s := injectionPoint.Load()
	if s == nil {
		return nil
	}

	return s.candidate
}

// DiscoveryConfig holds the dependencies of a Discoverer.
type DiscoveryConfig struct {
	// PollInterval is the fixed interval between two lookups.
	PollInterval time.Duration

	// Clock is used to time out the discovery.
	Clock clock.Clock

	// NewTicker creates the ticker driving the lookups.
	NewTicker func(interval time.Duration) ticker.Ticker

	// Lookup returns the current provider candidate. Defaults to reading
	// the injection point.
	Lookup func() any
}

// DefaultDiscoveryConfig returns a config polling the injection point every
// DefaultPollInterval using the wall clock.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		PollInterval: DefaultPollInterval,
		Clock:        clock.NewDefaultClock(),
		NewTicker: func(interval time.Duration) ticker.Ticker {
			return ticker.New(interval)
		},
		Lookup: Injected,
	}
}

// Discoverer waits for a structurally valid provider to show up.
type Discoverer struct {
	cfg DiscoveryConfig
}

// NewDiscoverer creates a Discoverer, filling in defaults for any unset
// dependency.
func NewDiscoverer(cfg DiscoveryConfig) *Discoverer {
	defaults := DefaultDiscoveryConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = defaults.NewTicker
	}
	if cfg.Lookup == nil {
		cfg.Lookup = defaults.Lookup
	}

	return &Discoverer{cfg: cfg}
}

// Discover polls for a provider at a fixed interval until a valid one appears
// or timeout elapses, in which case ErrNotFound is returned. A failed
// discovery leaves no state behind, so callers may simply retry with a fresh
// timeout.
func (d *Discoverer) Discover(ctx context.Context,
	timeout time.Duration) (Provider, error) {

	deadline := d.cfg.Clock.TickAfter(timeout)

	pollTicker := d.cfg.NewTicker(d.cfg.PollInterval)
	pollTicker.Resume()
	defer pollTicker.Stop()

	attempts := 0
	for {
		attempts++
		if p, err := Validate(d.cfg.Lookup()); err == nil {
			log.Debugf("Discovered provider %T after %d lookup(s)",
				p, attempts)

			return p, nil
		}

		select {
		case <-pollTicker.Ticks():

		case <-deadline:
			log.Debugf("No provider after %d lookup(s) within %v",
				attempts, timeout)

			return nil, fmt.Errorf("%w within %v", ErrNotFound,
				timeout)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Discover waits up to timeout for a provider at the injection point using
// the default discovery config.
func Discover(ctx context.Context, timeout time.Duration) (Provider, error) {
	return NewDiscoverer(DefaultDiscoveryConfig()).Discover(ctx, timeout)
}
