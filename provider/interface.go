// Package provider defines the capability contract of an RGB WebLN provider
// and locates one at runtime.
//
// The only ambient lookup in this module lives here: a provider is injected
// into a single process-wide slot by the embedding environment, discovered
// once, validated structurally, and from then on passed around explicitly.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/events"
)

var (
	// ErrNotFound is returned when no valid provider appeared within the
	// discovery timeout.
	ErrNotFound = errors.New("rgb webln provider not found")

	// ErrNotProvider is returned when a candidate doesn't offer the
	// capabilities required of a provider.
	ErrNotProvider = errors.New("candidate is not an rgb webln provider")
)

// Enabler is implemented by providers that gate access behind an explicit
// enable step.
type Enabler interface {
	// Enable asks the provider to grant access to the caller, optionally
	// naming the origin requesting it. It must resolve before any other
	// request is issued.
	Enable(ctx context.Context, origin fn.Option[string]) error

	// IsEnabled reports whether access has been granted. It never changes
	// provider state.
	IsEnabled(ctx context.Context) (bool, error)
}

// Requester is the generic request primitive every named provider method is
// built on.
type Requester interface {
	// Request sends method with params to the provider and blocks until it
	// resolves, returning the raw JSON result. Application level failures
	// are returned as *rgbrpc.ProviderError.
	Request(ctx context.Context, method string,
		params any) (json.RawMessage, error)
}

// Notifier lets callers observe events pushed by the provider.
type Notifier interface {
	// On registers handler for the named event.
	On(event string, handler events.Handler) events.Token

	// Off removes the registration identified by token. Removing an
	// unknown or already removed token is a no-op that returns false.
	Off(event string, token events.Token) bool
}

// Provider is a validated handle to an RGB WebLN provider.
type Provider interface {
	Enabler
	Requester
	Notifier
}

// requesterEnabler is the structural contract a candidate must satisfy.
type requesterEnabler interface {
	Enabler
	Requester
}

// silentNotifier wraps candidates that can serve requests but can't push
// events. Handlers may still be registered, they just never fire.
type silentNotifier struct {
	requesterEnabler

	registry *events.Registry
}

// On registers handler with the local registry.
func (s *silentNotifier) On(event string, handler events.Handler) events.Token {
	return s.registry.On(event, handler)
}

// Off removes the registration identified by token.
func (s *silentNotifier) Off(event string, token events.Token) bool {
	return s.registry.Off(event, token)
}

// Validate checks, once, that candidate offers the request and enable
// capabilities and returns it as a typed Provider. Candidates without event
// support are accepted; their event channels simply stay silent.
func Validate(candidate any) (Provider, error) {
	if isNil(candidate) {
		return nil, ErrNotProvider
	}

	if p, ok := candidate.(Provider); ok {
		return p, nil
	}

	re, ok := candidate.(requesterEnabler)
	if !ok {
		return nil, fmt.Errorf("%w: %T lacks request or enable",
			ErrNotProvider, candidate)
	}

	log.Debugf("Provider %T has no event support, events will be "+
		"silent", candidate)

	return &silentNotifier{
		requesterEnabler: re,
		registry:         events.NewRegistry(),
	}, nil
}

// isNil returns true for nil and for typed nil pointers, maps, funcs, chans,
// slices and interfaces.
func isNil(candidate any) bool {
	if candidate == nil {
		return true
	}

	v := reflect.ValueOf(candidate)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan,
		reflect.Slice, reflect.Interface:

		return v.IsNil()
	}

	return false
}

// IsProvider returns true if candidate passes Validate.
func IsProvider(candidate any) bool {
	_, err := Validate(candidate)
	return err == nil
}
