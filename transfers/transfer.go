// Package transfers models the lifecycle of RGB transfers: the records a
// provider reports, the status transitions they may go through, and the
// requests that create them.
package transfers

import (
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
)

// Status is the settlement stage of a transfer.
type Status string

const (
	// StatusWaitingCounterparty is the initial status of sends and
	// receives: the consignment hasn't been exchanged yet.
	StatusWaitingCounterparty Status = "WaitingCounterparty"

	// StatusWaitingConfirmations means the transaction was broadcast and
	// awaits the required number of confirmations.
	StatusWaitingConfirmations Status = "WaitingConfirmations"

	// StatusSettled is terminal: the transfer completed.
	StatusSettled Status = "Settled"

	// StatusFailed is terminal: the transfer was abandoned.
	StatusFailed Status = "Failed"
)

var knownStatuses = []Status{
	StatusWaitingCounterparty, StatusWaitingConfirmations, StatusSettled,
	StatusFailed,
}

// ParseStatus maps a provider reported status onto a known value, ignoring
// case. Unknown statuses are returned unchanged.
func ParseStatus(raw string) Status {
	for _, s := range knownStatuses {
		if strings.EqualFold(raw, string(s)) {
			return s
		}
	}

	return Status(raw)
}

// Known returns true if the status is one this client understands.
func (s Status) Known() bool {
	return fn.Any(knownStatuses, func(known Status) bool {
		return known == s
	})
}

// IsTerminal returns true for the statuses a transfer never leaves.
func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusFailed
}

// String returns the status name, flagging values this client doesn't know.
func (s Status) String() string {
	switch {
	case s == "":
		return "None"

	case !s.Known():
		return fmt.Sprintf("Unknown(%s)", string(s))
	}

	return string(s)
}

// Kind is the direction and nature of a transfer. It never changes after
// creation.
type Kind string

const (
	// KindSend is an outgoing transfer.
	KindSend Kind = "Send"

	// KindReceiveBlind is an incoming transfer to a blinded UTXO.
	KindReceiveBlind Kind = "ReceiveBlind"

	// KindReceiveWitness is an incoming transfer to a witness output.
	KindReceiveWitness Kind = "ReceiveWitness"

	// KindIssuance records the issuance of an asset.
	KindIssuance Kind = "Issuance"

	// legacyIssuance is how some providers spell KindIssuance.
	legacyIssuance = "Issuen"
)

var knownKinds = []Kind{
	KindSend, KindReceiveBlind, KindReceiveWitness, KindIssuance,
}

// ParseKind maps a provider reported kind onto a known value, ignoring case.
// Unknown kinds are returned unchanged.
func ParseKind(raw string) Kind {
	if strings.EqualFold(raw, legacyIssuance) {
		return KindIssuance
	}

	for _, k := range knownKinds {
		if strings.EqualFold(raw, string(k)) {
			return k
		}
	}

	return Kind(raw)
}

// Known returns true if the kind is one this client understands.
func (k Kind) Known() bool {
	return fn.Any(knownKinds, func(known Kind) bool {
		return known == k
	})
}

// IsReceive returns true for incoming transfers.
func (k Kind) IsReceive() bool {
	return k == KindReceiveBlind || k == KindReceiveWitness
}

// String returns the kind name, flagging values this client doesn't know.
func (k Kind) String() string {
	if !k.Known() {
		return fmt.Sprintf("Unknown(%s)", string(k))
	}

	return string(k)
}

// TransportEndpoint is a place the consignment of a transfer can be exchanged
// through. Used flips to true at most once and never back.
type TransportEndpoint struct {
	Endpoint      string
	TransportType string
	Used          bool
}

// Transfer is a snapshot of one asset movement as reported by the provider.
type Transfer struct {
	// Idx is assigned by the provider, unique and increasing within its
	// session.
	Idx int64

	// CreatedAt is when the transfer was created.
	CreatedAt time.Time

	// UpdatedAt is when the transfer last changed. Never before CreatedAt.
	UpdatedAt time.Time

	// Status is the settlement stage.
	Status Status

	// Kind is fixed at creation.
	Kind Kind

	// RequestedAssignment is what was originally asked for.
	RequestedAssignment fn.Option[rgbtypes.Assignment]

	// Assignments are what was actually realized, possibly split.
	Assignments []rgbtypes.Assignment

	// Txid is set once the witness transaction is known.
	Txid fn.Option[chainhash.Hash]

	// RecipientID is the recipient the transfer pays to, if known.
	RecipientID fn.Option[string]

	// ReceiveUtxo is the output receiving the assets.
	ReceiveUtxo fn.Option[wire.OutPoint]

	// ChangeUtxo is the output receiving the change, if any.
	ChangeUtxo fn.Option[wire.OutPoint]

	// Expiration is when an unsettled transfer is abandoned.
	Expiration fn.Option[time.Time]

	// TransportEndpoints lists the transports in order of preference.
	TransportEndpoints []TransportEndpoint
}

// Abandoned returns true if the transfer hasn't reached a terminal status
// and its expiration has passed.
func (t *Transfer) Abandoned(c clock.Clock) bool {
	if t.Status.IsTerminal() {
		return false
	}

	return fn.MapOptionZ(t.Expiration, func(exp time.Time) bool {
		return !c.Now().Before(exp)
	})
}

// endpoint returns the endpoint with the given address.
func (t *Transfer) endpoint(addr string) fn.Option[TransportEndpoint] {
	return fn.Find(t.TransportEndpoints, func(e TransportEndpoint) bool {
		return e.Endpoint == addr
	})
}

// optionalString treats both nil and empty strings as absent.
func optionalString(s *string) fn.Option[string] {
	if s == nil || *s == "" {
		return fn.None[string]()
	}

	return fn.Some(*s)
}

// parseOutPoint parses an optional txid:vout string.
func parseOutPoint(field string, s *string) (fn.Option[wire.OutPoint], error) {
	raw := optionalString(s)
	if raw.IsNone() {
		return fn.None[wire.OutPoint](), nil
	}

	op, err := wire.NewOutPointFromString(raw.UnwrapOr(""))
	if err != nil {
		return fn.None[wire.OutPoint](), fmt.Errorf("%w: %s: %v",
			rgbrpc.ErrMalformedResponse, field, err)
	}

	return fn.Some(*op), nil
}

// FromRPC converts the wire form of a transfer, rejecting records whose
// chain references don't parse or whose timestamps are inconsistent.
func FromRPC(rt rgbrpc.Transfer) (*Transfer, error) {
	t := &Transfer{
		Idx:         rt.Idx,
		CreatedAt:   time.Unix(rt.CreatedAt, 0),
		UpdatedAt:   time.Unix(rt.UpdatedAt, 0),
		Status:      ParseStatus(rt.Status),
		Kind:        ParseKind(rt.Kind),
		RecipientID: optionalString(rt.RecipientID),
		Assignments: fn.Map(
			rt.Assignments, rgbtypes.AssignmentFromRPC,
		),
		TransportEndpoints: fn.Map(
			rt.TransportEndpoints,
			func(e rgbrpc.TransportEndpoint) TransportEndpoint {
				return TransportEndpoint{
					Endpoint:      e.Endpoint,
					TransportType: e.TransportType,
					Used:          e.Used,
				}
			},
		),
	}

	if t.UpdatedAt.Before(t.CreatedAt) {
		return nil, fmt.Errorf("%w: transfer %d updated before it was "+
			"created", rgbrpc.ErrMalformedResponse, rt.Idx)
	}

	if rt.RequestedAssignment != nil {
		t.RequestedAssignment = fn.Some(
			rgbtypes.AssignmentFromRPC(*rt.RequestedAssignment),
		)
	}

	if txid := optionalString(rt.Txid); txid.IsSome() {
		hash, err := chainhash.NewHashFromStr(txid.UnwrapOr(""))
		if err != nil {
			return nil, fmt.Errorf("%w: txid: %v",
				rgbrpc.ErrMalformedResponse, err)
		}
		t.Txid = fn.Some(*hash)
	}

	var err error
	t.ReceiveUtxo, err = parseOutPoint("receive_utxo", rt.ReceiveUtxo)
	if err != nil {
		return nil, err
	}
	t.ChangeUtxo, err = parseOutPoint("change_utxo", rt.ChangeUtxo)
	if err != nil {
		return nil, err
	}

	if rt.Expiration != nil && *rt.Expiration > 0 {
		t.Expiration = fn.Some(time.Unix(*rt.Expiration, 0))
	}

	return t, nil
}
