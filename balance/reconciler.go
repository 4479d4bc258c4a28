package balance

import (
	"context"
	"errors"

	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

// ErrAssetNotFound is returned when the wallet doesn't hold the asset asked
// about.
var ErrAssetNotFound = errors.New("asset not found")

// BTCReport is a bitcoin balance as reported, plus its diagnostics.
type BTCReport struct {
	Balance         BTCBalance
	Inconsistencies []Inconsistency
}

// Consistent returns true if no inconsistency was found.
func (r *BTCReport) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// AssetReport is an asset balance as reported, plus its diagnostics.
type AssetReport struct {
	AssetID         string
	Balance         AssetBalance
	Inconsistencies []Inconsistency
}

// Consistent returns true if no inconsistency was found.
func (r *AssetReport) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// ReconcilerConfig holds what a Reconciler needs.
type ReconcilerConfig struct {
	// Requester answers getBalance and listAssets.
	Requester provider.Requester

	// OnInconsistency, if set, is called for every inconsistency found.
	OnInconsistency func(Inconsistency)
}

// Reconciler fetches balances and checks them.
type Reconciler struct {
	cfg ReconcilerConfig
}

// NewReconciler returns a reconciler using cfg.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{cfg: cfg}
}

func (r *Reconciler) report(found []Inconsistency) {
	for _, i := range found {
		log.Warnf("Inconsistent balance reported: %v", i)

		if r.cfg.OnInconsistency != nil {
			r.cfg.OnInconsistency(i)
		}
	}
}

// BTC fetches the bitcoin balance of the wallet.
func (r *Reconciler) BTC(ctx context.Context) (*BTCReport, error) {
	raw, err := r.cfg.Requester.Request(ctx, rgbrpc.MethodGetBalance, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.BTCBalance](
		rgbrpc.MethodGetBalance, raw,
	)
	if err != nil {
		return nil, err
	}

	b := BTCBalanceFromRPC(*resp)
	found := CheckBTC(b)
	r.report(found)

	return &BTCReport{Balance: b, Inconsistencies: found}, nil
}

// Asset fetches the balance of one asset out of the asset listing.
func (r *Reconciler) Asset(ctx context.Context,
	assetID string) (*AssetReport, error) {

	raw, err := r.cfg.Requester.Request(ctx, rgbrpc.MethodListAssets, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.ListAssetsResponse](
		rgbrpc.MethodListAssets, raw,
	)
	if err != nil {
		return nil, err
	}

	var (
		wire  rgbrpc.AssetBalance
		found bool
	)
	for _, a := range resp.Nia {
		if a.AssetID == assetID {
			wire, found = a.Balance, true
		}
	}
	for _, a := range resp.Cfa {
		if a.AssetID == assetID {
			wire, found = a.Balance, true
		}
	}
	for _, a := range resp.Uda {
		if a.AssetID == assetID {
			wire, found = a.Balance, true
		}
	}
	if !found {
		return nil, ErrAssetNotFound
	}

	b := AssetBalanceFromRPC(wire)
	diags := CheckAsset(assetID, b)
	r.report(diags)

	return &AssetReport{
		AssetID:         assetID,
		Balance:         b,
		Inconsistencies: diags,
	}, nil
}
