// Package balance models the bitcoin and asset balances reported by a
// provider and flags figures that can't all be true at once.
//
// Figures are never corrected. A report always carries exactly what the
// provider said, next to whatever inconsistencies were found in it.
package balance

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

// Triple is a settled/future/spendable view of a pool of satoshis.
type Triple struct {
	// Settled is confirmed and fully owned.
	Settled btcutil.Amount

	// Future includes pending incoming and outgoing amounts.
	Future btcutil.Amount

	// Spendable is what can be spent right now.
	Spendable btcutil.Amount
}

// TripleFromRPC converts the wire form of a balance triple.
func TripleFromRPC(b rgbrpc.Balance) Triple {
	return Triple{
		Settled:   btcutil.Amount(b.Settled),
		Future:    btcutil.Amount(b.Future),
		Spendable: btcutil.Amount(b.Spendable),
	}
}

// BTCBalance is the bitcoin balance of the wallet.
type BTCBalance struct {
	// Vanilla holds the satoshis free of RGB state.
	Vanilla Triple

	// Colored holds the satoshis on outputs carrying RGB state.
	Colored Triple
}

// Total returns the settled satoshis of both pools.
func (b BTCBalance) Total() btcutil.Amount {
	return b.Vanilla.Settled + b.Colored.Settled
}

// BTCBalanceFromRPC converts the result of getBalance.
func BTCBalanceFromRPC(b rgbrpc.BTCBalance) BTCBalance {
	return BTCBalance{
		Vanilla: TripleFromRPC(b.Vanilla),
		Colored: TripleFromRPC(b.Colored),
	}
}

// AssetBalance is the balance of one asset, in its smallest unit. The
// offchain figures describe lightning channel state and are never part of
// the spendable amount.
type AssetBalance struct {
	Settled          uint64
	Future           uint64
	Spendable        uint64
	OffchainOutbound uint64
	OffchainInbound  uint64
}

// AssetBalanceFromRPC converts the wire form of an asset balance.
func AssetBalanceFromRPC(b rgbrpc.AssetBalance) AssetBalance {
	return AssetBalance{
		Settled:          b.Settled,
		Future:           b.Future,
		Spendable:        b.Spendable,
		OffchainOutbound: b.OffchainOutbound,
		OffchainInbound:  b.OffchainInbound,
	}
}

// InconsistencyKind names what is wrong with a set of figures.
type InconsistencyKind string

const (
	// SpendableExceedsTotal flags a spendable amount larger than settled
	// and future together.
	SpendableExceedsTotal InconsistencyKind = "SpendableExceedsTotal"

	// NegativeFigure flags a bitcoin figure below zero.
	NegativeFigure InconsistencyKind = "NegativeFigure"
)

// Inconsistency is a diagnostic about reported figures. It is not an error:
// the figures it describes are still returned as reported.
type Inconsistency struct {
	// Scope names the balance the figures belong to, such as
	// "btc/vanilla" or "asset/<id>".
	Scope string

	// Kind is what was found.
	Kind InconsistencyKind

	// Detail lists the offending figures.
	Detail string
}

// String returns a one line description of the inconsistency.
func (i Inconsistency) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Scope, i.Kind, i.Detail)
}

// checkTriple flags negative figures, or, when all figures are non-negative,
// a spendable amount above settled and future together.
func checkTriple(scope string, t Triple) []Inconsistency {
	if t.Settled < 0 || t.Future < 0 || t.Spendable < 0 {
		return []Inconsistency{{
			Scope: scope,
			Kind:  NegativeFigure,
			Detail: fmt.Sprintf("settled=%v, future=%v, "+
				"spendable=%v", t.Settled, t.Future,
				t.Spendable),
		}}
	}

	// A sum beyond the int64 range exceeds any spendable figure.
	total, carry := bits.Add64(uint64(t.Settled), uint64(t.Future), 0)
	if carry != 0 || total > math.MaxInt64 ||
		uint64(t.Spendable) <= total {

		return nil
	}

	return []Inconsistency{{
		Scope: scope,
		Kind:  SpendableExceedsTotal,
		Detail: fmt.Sprintf("spendable=%v > settled=%v + future=%v",
			t.Spendable, t.Settled, t.Future),
	}}
}

// CheckBTC returns the inconsistencies of both pools of a bitcoin balance.
func CheckBTC(b BTCBalance) []Inconsistency {
	return append(
		checkTriple("btc/vanilla", b.Vanilla),
		checkTriple("btc/colored", b.Colored)...,
	)
}

// CheckAsset returns the inconsistencies of an asset balance.
func CheckAsset(assetID string, b AssetBalance) []Inconsistency {
	total, carry := bits.Add64(b.Settled, b.Future, 0)
	if carry != 0 || b.Spendable <= total {
		return nil
	}

	return []Inconsistency{{
		Scope: "asset/" + assetID,
		Kind:  SpendableExceedsTotal,
		Detail: fmt.Sprintf("spendable=%d > settled=%d + future=%d",
			b.Spendable, b.Settled, b.Future),
	}}
}
