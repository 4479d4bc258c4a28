// Package invoices creates RGB invoices through a provider and decodes the
// ones received from counterparties.
//
// The provider is the sole authority on invoice content. This package only
// refuses requests that can't be valid before they are sent, and results that
// lack what every invoice must carry after they come back.
package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
)

// Request describes the invoice a consumer wants to be paid with.
type Request struct {
	// AssetID is the asset being requested. None requests the chain
	// native asset, or lets the payer choose.
	AssetID fn.Option[string]

	// Amount is the requested quantity in the asset's smallest
	// denomination. None leaves the amount to the payer.
	Amount fn.Option[uint64]

	// DurationSeconds is the validity window of the invoice.
	DurationSeconds int64

	// MinConfirmations is the number of confirmations required before the
	// invoice is considered fulfillable.
	MinConfirmations int64
}

// Validate checks the invariants of an invoice request.
func (r Request) Validate() error {
	if r.DurationSeconds <= 0 {
		return ErrNonPositiveDuration
	}

	if r.MinConfirmations < 0 {
		return ErrNegativeConfirmations
	}

	if r.Amount.IsSome() && r.Amount.UnwrapOr(0) == 0 {
		return ErrZeroAmount
	}

	if r.AssetID.IsSome() && r.AssetID.UnwrapOr("") == "" {
		return ErrEmptyAssetID
	}

	return nil
}

// RPC returns the wire form of the request.
func (r Request) RPC() rgbrpc.RGBInvoiceRequest {
	req := rgbrpc.RGBInvoiceRequest{
		DurationSeconds:  r.DurationSeconds,
		MinConfirmations: r.MinConfirmations,
	}
	r.AssetID.WhenSome(func(id string) {
		req.AssetID = &id
	})
	r.Amount.WhenSome(func(amt uint64) {
		req.Amount = &amt
	})

	return req
}

// Decoded is an invoice as understood by the provider.
type Decoded struct {
	// RecipientID identifies the blinded UTXO or witness script the
	// payment is to be sent to.
	RecipientID string

	// AssetID is the asset requested. Empty if the invoice accepts any.
	AssetID string

	// Assignment is the requested state.
	Assignment rgbtypes.Assignment

	// TransportEndpoints lists, in order of preference, where the consignment
	// can be delivered. Never empty.
	TransportEndpoints []string

	// AssetSchema is the schema of the requested asset.
	AssetSchema rgbtypes.AssetSchema

	// Network is the bitcoin network the invoice was created on.
	Network rgbtypes.Network

	// Expiration is the absolute time after which the recipient no longer
	// honours the invoice. None if the invoice never expires.
	Expiration fn.Option[time.Time]
}

// Expired returns true if the invoice expiration lies in the past. Decoding
// never fails on an expired invoice, so callers wanting to refuse them must
// check this themselves.
func (d *Decoded) Expired(c clock.Clock) bool {
	return fn.MapOptionZ(d.Expiration, func(exp time.Time) bool {
		return !c.Now().Before(exp)
	})
}

// DecodedFromRPC converts and shape-checks a decoded invoice.
func DecodedFromRPC(resp *rgbrpc.InvoiceDecoded) (*Decoded, error) {
	if len(resp.TransportEndpoints) == 0 {
		return nil, ErrNoTransportEndpoints
	}

	if resp.Assignment == nil {
		return nil, ErrNoAssignment
	}

	expiration := fn.None[time.Time]()
	if resp.ExpirationTimestamp > 0 {
		expiration = fn.Some(
			time.Unix(resp.ExpirationTimestamp, 0),
		)
	}

	endpoints := make([]string, len(resp.TransportEndpoints))
	copy(endpoints, resp.TransportEndpoints)

	return &Decoded{
		RecipientID:        resp.RecipientID,
		AssetID:            resp.AssetID,
		Assignment:         rgbtypes.AssignmentFromRPC(*resp.Assignment),
		TransportEndpoints: endpoints,
		AssetSchema:        rgbtypes.ParseAssetSchema(resp.AssetSchema),
		Network:            rgbtypes.ParseNetwork(resp.Network),
		Expiration:         expiration,
	}, nil
}

// Create validates req and asks the provider to create the invoice, returning
// its string encoding. Invalid requests are refused without contacting the
// provider. Provider failures are returned as is.
func Create(ctx context.Context, r provider.Requester,
	req Request) (string, error) {

	if err := req.Validate(); err != nil {
		return "", err
	}

	log.Tracef("Requesting invoice: %v", build.SpewLogClosure(req))

	raw, err := r.Request(ctx, rgbrpc.MethodRGBInvoice, req.RPC())
	if err != nil {
		return "", err
	}

	resp, err := rgbrpc.Decode[rgbrpc.RGBInvoiceResponse](
		rgbrpc.MethodRGBInvoice, raw,
	)
	if err != nil {
		return "", err
	}
	if resp.Invoice == "" {
		return "", fmt.Errorf("%w: empty invoice",
			rgbrpc.ErrMalformedResponse)
	}

	log.Debugf("Created invoice for asset=%v, duration=%ds",
		req.AssetID.UnwrapOr("any"), req.DurationSeconds)

	return resp.Invoice, nil
}

// Decode asks the provider to decode invoice and checks the result carries
// the fields every invoice must have. An expired invoice still decodes.
func Decode(ctx context.Context, r provider.Requester,
	invoice string) (*Decoded, error) {

	if invoice == "" {
		return nil, ErrEmptyInvoice
	}

	raw, err := r.Request(
		ctx, rgbrpc.MethodDecodeRGBInvoice,
		rgbrpc.DecodeInvoiceRequest{Invoice: invoice},
	)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.InvoiceDecoded](
		rgbrpc.MethodDecodeRGBInvoice, raw,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbrpc.ErrMalformedInvoice, err)
	}

	decoded, err := DecodedFromRPC(resp)
	if err != nil {
		return nil, err
	}

	if !decoded.AssetSchema.Known() || !decoded.Network.Known() {
		log.Warnf("Decoded invoice uses unrecognised tags: schema=%v, "+
			"network=%v", decoded.AssetSchema, decoded.Network)
	}

	return decoded, nil
}
