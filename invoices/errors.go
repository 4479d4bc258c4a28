package invoices

import (
	"fmt"

	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

var (
	// ErrNonPositiveDuration is returned when an invoice request has a
	// validity window of zero or less.
	ErrNonPositiveDuration = fmt.Errorf("%w: duration_seconds must be "+
		"positive", rgbrpc.ErrInvalidRequest)

	// ErrNegativeConfirmations is returned when an invoice request asks
	// for a negative number of confirmations.
	ErrNegativeConfirmations = fmt.Errorf("%w: min_confirmations must "+
		"not be negative", rgbrpc.ErrInvalidRequest)

	// ErrZeroAmount is returned when an invoice request carries an amount
	// that isn't positive.
	ErrZeroAmount = fmt.Errorf("%w: amount must be positive when set",
		rgbrpc.ErrInvalidRequest)

	// ErrEmptyAssetID is returned when an invoice request names an empty
	// asset id instead of leaving it unset.
	ErrEmptyAssetID = fmt.Errorf("%w: asset_id must not be empty when set",
		rgbrpc.ErrInvalidRequest)

	// ErrEmptyInvoice is returned when asked to decode an empty string.
	ErrEmptyInvoice = fmt.Errorf("%w: empty invoice",
		rgbrpc.ErrInvalidRequest)

	// ErrNoTransportEndpoints is returned when a decoded invoice lists no
	// transport endpoint to reach the recipient through.
	ErrNoTransportEndpoints = fmt.Errorf("%w: no transport endpoints",
		rgbrpc.ErrMalformedInvoice)

	// ErrNoAssignment is returned when a decoded invoice carries no
	// assignment.
	ErrNoAssignment = fmt.Errorf("%w: missing assignment",
		rgbrpc.ErrMalformedInvoice)
)
