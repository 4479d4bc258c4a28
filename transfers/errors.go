package transfers

import (
	"errors"
	"fmt"

	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

var (
	// ErrIllegalTransition matches every observed transfer change that the
	// transfer lifecycle forbids.
	ErrIllegalTransition = errors.New("illegal transfer transition")

	// ErrEmptyAssetID is returned when listing transfers without naming
	// the asset.
	ErrEmptyAssetID = fmt.Errorf("%w: asset id must be set",
		rgbrpc.ErrInvalidRequest)

	// ErrNoRecipient is returned when a send names no recipient.
	ErrNoRecipient = fmt.Errorf("%w: recipient id must be set",
		rgbrpc.ErrInvalidRequest)

	// ErrNoTransportEndpoints is returned when a send lists no transport
	// endpoint to deliver the consignment through.
	ErrNoTransportEndpoints = fmt.Errorf("%w: at least one transport "+
		"endpoint is required", rgbrpc.ErrInvalidRequest)

	// ErrZeroFeeRate is returned when a send carries a fee rate of zero.
	ErrZeroFeeRate = fmt.Errorf("%w: fee rate must be positive",
		rgbrpc.ErrInvalidRequest)

	// ErrNegativeConfirmations is returned when a send asks for a
	// negative number of confirmations.
	ErrNegativeConfirmations = fmt.Errorf("%w: min_confirmations must "+
		"not be negative", rgbrpc.ErrInvalidRequest)

	// ErrZeroAmount is returned when a fungible send moves nothing.
	ErrZeroAmount = fmt.Errorf("%w: fungible amount must be positive",
		rgbrpc.ErrInvalidRequest)
)

// IllegalTransitionError describes an observed transfer change that was
// rejected.
type IllegalTransitionError struct {
	// Idx is the provider assigned index of the transfer.
	Idx int64

	// Kind is the kind of the transfer.
	Kind Kind

	// From is the last accepted status, empty on a first sighting.
	From Status

	// To is the status that was observed.
	To Status

	// Reason explains what was wrong with the change.
	Reason string
}

// Error returns a human-readable description of the rejected change.
func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition of %v transfer %d from %v "+
		"to %v: %s", e.Kind, e.Idx, e.From, e.To, e.Reason)
}

// Is lets errors.Is match the error against ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}
