package transfers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

// EventTransition is the registry event accepted transitions are published
// under.
const EventTransition = "transition"

// Transition is an accepted status change of a transfer.
type Transition struct {
	// AssetID is the asset the transfer moves.
	AssetID string

	// Idx is the provider assigned index of the transfer.
	Idx int64

	// Kind is the kind of the transfer.
	Kind Kind

	// From is the previously observed status, None on a first sighting.
	From fn.Option[Status]

	// To is the status now observed.
	To Status

	// Transfer is the snapshot that caused the transition.
	Transfer Transfer
}

// String returns a short description of the transition.
func (t *Transition) String() string {
	from := fn.MapOptionZ(t.From, Status.String)
	if from == "" {
		from = "new"
	}

	return fmt.Sprintf("%v transfer %s/%d: %s -> %v", t.Kind, t.AssetID,
		t.Idx, from, t.To)
}

type transferKey struct {
	assetID string
	idx     int64
}

// TrackerConfig holds the optional hooks of a Tracker.
type TrackerConfig struct {
	// OnRejected, if set, is called with every observation the tracker
	// refuses.
	OnRejected func(assetID string, err error)

	// OnAccepted, if set, is called with every accepted transition before
	// it is dispatched to subscribers.
	OnAccepted func(*Transition)
}

// Tracker follows transfers across repeated observations and enforces that
// each new snapshot is a legal successor of the last accepted one.
type Tracker struct {
	cfg TrackerConfig

	mu        sync.Mutex
	transfers map[transferKey]*Transfer

	ntfns *events.Registry
}

// NewTracker returns an empty tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	return &Tracker{
		cfg:       cfg,
		transfers: make(map[transferKey]*Transfer),
		ntfns:     events.NewRegistry(),
	}
}

// Observe records a new snapshot of a transfer. It returns the resulting
// transition, or nil if the status didn't change. A snapshot that isn't a
// legal successor of the last accepted one is rejected with an
// IllegalTransitionError and leaves the tracker untouched.
func (t *Tracker) Observe(assetID string, next Transfer) (*Transition, error) {
	transition, err := t.observe(assetID, next)
	if err != nil {
		log.Errorf("Rejected update of transfer %s/%d: %v", assetID,
			next.Idx, err)

		if t.cfg.OnRejected != nil {
			t.cfg.OnRejected(assetID, err)
		}

		return nil, err
	}

	if transition == nil {
		return nil, nil
	}

	log.Debugf("Transfer transition: %v", transition)
	log.Tracef("Transfer snapshot: %v", build.SpewLogClosure(next))

	if t.cfg.OnAccepted != nil {
		t.cfg.OnAccepted(transition)
	}

	t.ntfns.Dispatch(EventTransition, transition)

	return transition, nil
}

func (t *Tracker) observe(assetID string, next Transfer) (*Transition,
	error) {

	illegal := func(from Status, reason string) error {
		return &IllegalTransitionError{
			Idx:    next.Idx,
			Kind:   next.Kind,
			From:   from,
			To:     next.Status,
			Reason: reason,
		}
	}

	if next.UpdatedAt.Before(next.CreatedAt) {
		return nil, illegal("", "updated before created")
	}

	key := transferKey{assetID: assetID, idx: next.Idx}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.transfers[key]
	if !ok {
		if !next.Status.Known() {
			return nil, illegal("", "unknown status")
		}

		snapshot := next
		t.transfers[key] = &snapshot

		return &Transition{
			AssetID:  assetID,
			Idx:      next.Idx,
			Kind:     next.Kind,
			From:     fn.None[Status](),
			To:       next.Status,
			Transfer: next,
		}, nil
	}

	if prev.Kind != next.Kind {
		return nil, illegal(prev.Status, fmt.Sprintf("kind changed "+
			"from %v", prev.Kind))
	}

	if prev.Status.IsTerminal() {
		if !reflect.DeepEqual(*prev, next) {
			return nil, illegal(prev.Status, "terminal transfer "+
				"modified")
		}

		return nil, nil
	}

	if err := ValidateTransition(next.Kind, prev.Status,
		next.Status); err != nil {

		var transErr *IllegalTransitionError
		if errors.As(err, &transErr) {
			transErr.Idx = next.Idx
		}

		return nil, err
	}

	if next.UpdatedAt.Before(prev.UpdatedAt) {
		return nil, illegal(prev.Status, "updated_at went backwards")
	}

	for _, e := range prev.TransportEndpoints {
		if !e.Used {
			continue
		}

		used := fn.MapOptionZ(
			next.endpoint(e.Endpoint),
			func(n TransportEndpoint) bool {
				return n.Used
			},
		)
		if !used {
			return nil, illegal(prev.Status, fmt.Sprintf("endpoint "+
				"%s no longer used", e.Endpoint))
		}
	}

	from := prev.Status
	snapshot := next
	t.transfers[key] = &snapshot

	if from == next.Status {
		return nil, nil
	}

	return &Transition{
		AssetID:  assetID,
		Idx:      next.Idx,
		Kind:     next.Kind,
		From:     fn.Some(from),
		To:       next.Status,
		Transfer: next,
	}, nil
}

// ObserveAll observes every transfer of a listing, in order. It returns the
// accepted transitions and the first rejection, if any, while still
// observing the remaining transfers.
func (t *Tracker) ObserveAll(assetID string,
	transfers []Transfer) ([]Transition, error) {

	var (
		transitions []Transition
		firstErr    error
	)
	for _, tr := range transfers {
		transition, err := t.Observe(assetID, tr)
		switch {
		case err != nil && firstErr == nil:
			firstErr = err

		case transition != nil:
			transitions = append(transitions, *transition)
		}
	}

	return transitions, firstErr
}

// Snapshot returns the last accepted snapshot of a transfer.
func (t *Tracker) Snapshot(assetID string, idx int64) fn.Option[Transfer] {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.transfers[transferKey{assetID: assetID, idx: idx}]
	if !ok {
		return fn.None[Transfer]()
	}

	return fn.Some(*prev)
}

// SubscribeTransitions returns a subscription receiving every *Transition
// accepted from now on.
func (t *Tracker) SubscribeTransitions() (*events.Subscription, error) {
	return t.ntfns.Subscribe(EventTransition)
}

// Watch feeds the transfer updates pushed by n under event into the tracker
// until the returned function is called.
func (t *Tracker) Watch(n provider.Notifier, event string) func() {
	token := n.On(event, func(payload any) {
		update, err := decodeTransferEvent(payload)
		if err != nil {
			log.Warnf("Ignoring %s event: %v", event, err)
			return
		}

		transfer, err := FromRPC(update.Transfer)
		if err != nil {
			log.Warnf("Ignoring %s event: %v", event, err)
			return
		}

		// Rejections are logged and reported by Observe.
		_, _ = t.Observe(update.AssetID, *transfer)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			n.Off(event, token)
		})
	}
}

// Stop ends every subscription.
func (t *Tracker) Stop() {
	t.ntfns.Stop()
}

// decodeTransferEvent accepts the payload shapes providers push: the typed
// event, raw JSON, or a generic decoded JSON value.
func decodeTransferEvent(payload any) (*rgbrpc.TransferEvent, error) {
	switch p := payload.(type) {
	case rgbrpc.TransferEvent:
		return &p, nil

	case *rgbrpc.TransferEvent:
		if p == nil {
			return nil, fmt.Errorf("%w: nil transfer event",
				rgbrpc.ErrMalformedResponse)
		}
		return p, nil

	case json.RawMessage:
		return rgbrpc.Decode[rgbrpc.TransferEvent](
			rgbrpc.EventTransferUpdate, p,
		)

	case []byte:
		return rgbrpc.Decode[rgbrpc.TransferEvent](
			rgbrpc.EventTransferUpdate, p,
		)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbrpc.ErrMalformedResponse, err)
	}

	return rgbrpc.Decode[rgbrpc.TransferEvent](
		rgbrpc.EventTransferUpdate, raw,
	)
}
