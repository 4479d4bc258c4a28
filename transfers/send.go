package transfers

import (
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/invoices"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
)

// FeeRate is a fee rate in sat/vB.
type FeeRate uint64

// String returns the fee rate with its unit.
func (f FeeRate) String() string {
	return fmt.Sprintf("%d sat/vB", uint64(f))
}

// SendRequest describes an outgoing transfer.
type SendRequest struct {
	// RecipientID is the blinded UTXO or witness recipient to pay.
	RecipientID string

	// AssetID is the asset to send.
	AssetID string

	// Assignment is the state to transfer.
	Assignment rgbtypes.Assignment

	// TransportEndpoints are where the consignment is delivered, in order
	// of preference.
	TransportEndpoints []string

	// Donation sends without waiting for the recipient to accept the
	// consignment.
	Donation bool

	// FeeRate is the fee rate of the witness transaction.
	FeeRate FeeRate

	// MinConfirmations is the number of confirmations the spent UTXOs
	// need.
	MinConfirmations int64

	// SkipSync skips the wallet sync before sending.
	SkipSync bool
}

// SendRequestFromInvoice prefills a send from a decoded invoice. The asset of
// the invoice is used unless it is empty, in which case assetID is.
func SendRequestFromInvoice(inv *invoices.Decoded, assetID string,
	feeRate FeeRate) SendRequest {

	if inv.AssetID != "" {
		assetID = inv.AssetID
	}

	endpoints := make([]string, len(inv.TransportEndpoints))
	copy(endpoints, inv.TransportEndpoints)

	return SendRequest{
		RecipientID:        inv.RecipientID,
		AssetID:            assetID,
		Assignment:         inv.Assignment,
		TransportEndpoints: endpoints,
		FeeRate:            feeRate,
	}
}

// Validate checks the invariants of a send.
func (r SendRequest) Validate() error {
	switch {
	case r.RecipientID == "":
		return ErrNoRecipient

	case r.AssetID == "":
		return ErrEmptyAssetID

	case len(r.TransportEndpoints) == 0:
		return ErrNoTransportEndpoints

	case r.FeeRate == 0:
		return ErrZeroFeeRate

	case r.MinConfirmations < 0:
		return ErrNegativeConfirmations

	case r.Assignment.Kind == rgbtypes.AssignmentFungible &&
		r.Assignment.Value == 0:

		return ErrZeroAmount
	}

	return nil
}

// RPC returns the wire form of the request.
func (r SendRequest) RPC() rgbrpc.SendAssetRequest {
	return rgbrpc.SendAssetRequest{
		RecipientID:        r.RecipientID,
		AssetID:            r.AssetID,
		Assignment:         r.Assignment.RPC(),
		TransportEndpoints: r.TransportEndpoints,
		Donation:           r.Donation,
		FeeRate:            uint64(r.FeeRate),
		MinConfirmations:   r.MinConfirmations,
		SkipSync:           r.SkipSync,
	}
}

// Send validates req and asks the provider to send it, returning the txid of
// the witness transaction. The provider creates the transfer record, nothing
// is recorded locally. A provider reporting too few funds yields an error
// matching rgbrpc.ErrInsufficientFunds.
func Send(ctx context.Context, r provider.Requester,
	req SendRequest) (chainhash.Hash, error) {

	if err := req.Validate(); err != nil {
		return chainhash.Hash{}, err
	}

	log.Tracef("Sending asset: %v", build.SpewLogClosure(req))

	raw, err := r.Request(ctx, rgbrpc.MethodSendAsset, req.RPC())
	if err != nil {
		return chainhash.Hash{}, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.TXIDResponse](
		rgbrpc.MethodSendAsset, raw,
	)
	if err != nil {
		return chainhash.Hash{}, err
	}

	txid, err := chainhash.NewHashFromStr(resp.Txid)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: txid: %v",
			rgbrpc.ErrMalformedResponse, err)
	}

	log.Infof("Sent %v of asset %s to %s, txid=%v", req.Assignment,
		req.AssetID, req.RecipientID, txid)

	return *txid, nil
}

// List returns the transfers of an asset sorted by idx, whatever order the
// provider reported them in. Every call fetches a fresh snapshot.
func List(ctx context.Context, r provider.Requester,
	assetID string) ([]Transfer, error) {

	if assetID == "" {
		return nil, ErrEmptyAssetID
	}

	raw, err := r.Request(
		ctx, rgbrpc.MethodListTransfers,
		rgbrpc.ListTransfersRequest{AssetID: assetID},
	)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.ListTransfersResponse](
		rgbrpc.MethodListTransfers, raw,
	)
	if err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(resp.Transfers))
	for _, rt := range resp.Transfers {
		t, err := FromRPC(rt)
		if err != nil {
			return nil, err
		}

		if !t.Status.Known() || !t.Kind.Known() {
			log.Warnf("Transfer %s/%d has unrecognised tags: "+
				"status=%v, kind=%v", assetID, t.Idx, t.Status,
				t.Kind)
		}

		transfers = append(transfers, *t)
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Idx < transfers[j].Idx
	})

	return transfers, nil
}
