// Package assets lists the RGB assets held by the wallet behind a provider.
package assets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/balance"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
)

// Media is a file attached to an asset.
type Media struct {
	FilePath string
	Mime     string
}

// Attachment is a file attached to a unique token, with its digest.
type Attachment struct {
	FilePath string
	Digest   string
	Mime     string
}

// Token is the unique token of a UDA asset.
type Token struct {
	Index         uint32
	Ticker        fn.Option[string]
	Name          fn.Option[string]
	Details       fn.Option[string]
	EmbeddedMedia bool
	Media         fn.Option[Media]
	Attachments   map[uint32]Attachment
	Reserves      bool
}

// Asset is an asset held by the wallet.
type Asset struct {
	// Schema is the schema group the provider listed the asset under.
	Schema rgbtypes.AssetSchema

	AssetID      string
	Ticker       string
	Name         string
	Details      fn.Option[string]
	Precision    uint8
	IssuedSupply uint64
	Timestamp    time.Time
	AddedAt      time.Time
	Balance      balance.AssetBalance
	Media        fn.Option[Media]

	// Token is only ever set for UDA assets.
	Token fn.Option[Token]
}

// FormatAmount renders an amount of the asset for display.
func (a *Asset) FormatAmount(units uint64) string {
	return FormatAmount(units, a.Precision)
}

// FormatAmount renders units of the smallest denomination as a decimal with
// precision fractional digits. It is for display only, amounts are always
// exchanged with the provider in smallest units.
func FormatAmount(units uint64, precision uint8) string {
	digits := strconv.FormatUint(units, 10)
	if precision == 0 {
		return digits
	}

	p := int(precision)
	if len(digits) <= p {
		digits = strings.Repeat("0", p-len(digits)+1) + digits
	}

	split := len(digits) - p

	return digits[:split] + "." + digits[split:]
}

// Listing is the wallet's assets grouped by schema.
type Listing struct {
	Nia []Asset
	Uda []Asset
	Cfa []Asset
}

// All returns every asset, NIA first, then UDA, then CFA.
func (l *Listing) All() []Asset {
	all := make([]Asset, 0, len(l.Nia)+len(l.Uda)+len(l.Cfa))
	all = append(all, l.Nia...)
	all = append(all, l.Uda...)

	return append(all, l.Cfa...)
}

// Find returns the asset with the given id.
func (l *Listing) Find(assetID string) fn.Option[Asset] {
	return fn.Find(l.All(), func(a Asset) bool {
		return a.AssetID == assetID
	})
}

func mediaFromRPC(m *rgbrpc.Media) fn.Option[Media] {
	if m == nil {
		return fn.None[Media]()
	}

	return fn.Some(Media{FilePath: m.FilePath, Mime: m.Mime})
}

func assetFromRPC(schema rgbtypes.AssetSchema, a rgbrpc.Asset) Asset {
	return Asset{
		Schema:       schema,
		AssetID:      a.AssetID,
		Ticker:       a.Ticker,
		Name:         a.Name,
		Details:      fn.OptionFromPtr(a.Details),
		Precision:    a.Precision,
		IssuedSupply: a.IssuedSupply,
		Timestamp:    time.Unix(a.Timestamp, 0),
		AddedAt:      time.Unix(a.AddedAt, 0),
		Balance:      balance.AssetBalanceFromRPC(a.Balance),
		Media:        mediaFromRPC(a.Media),
	}
}

func tokenFromRPC(t *rgbrpc.UdaToken) (Token, error) {
	attachments := make(map[uint32]Attachment, len(t.Attachments))
	for key, a := range t.Attachments {
		idx, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return Token{}, fmt.Errorf("%w: attachment key %q: %v",
				rgbrpc.ErrMalformedResponse, key, err)
		}

		attachments[uint32(idx)] = Attachment{
			FilePath: a.FilePath,
			Digest:   a.Digest,
			Mime:     a.Mime,
		}
	}

	return Token{
		Index:         t.Index,
		Ticker:        fn.OptionFromPtr(t.Ticker),
		Name:          fn.OptionFromPtr(t.Name),
		Details:       fn.OptionFromPtr(t.Details),
		EmbeddedMedia: t.EmbeddedMedia,
		Media:         mediaFromRPC(t.Media),
		Attachments:   attachments,
		Reserves:      t.Reserves,
	}, nil
}

// ListingFromRPC converts the result of listAssets.
func ListingFromRPC(resp *rgbrpc.ListAssetsResponse) (*Listing, error) {
	listing := &Listing{
		Nia: make([]Asset, 0, len(resp.Nia)),
		Uda: make([]Asset, 0, len(resp.Uda)),
		Cfa: make([]Asset, 0, len(resp.Cfa)),
	}

	for _, a := range resp.Nia {
		listing.Nia = append(
			listing.Nia, assetFromRPC(rgbtypes.SchemaNia, a),
		)
	}

	for _, a := range resp.Uda {
		asset := assetFromRPC(rgbtypes.SchemaUda, a.Asset)
		if a.Token != nil {
			token, err := tokenFromRPC(a.Token)
			if err != nil {
				return nil, err
			}
			asset.Token = fn.Some(token)
		}

		listing.Uda = append(listing.Uda, asset)
	}

	for _, a := range resp.Cfa {
		listing.Cfa = append(
			listing.Cfa, assetFromRPC(rgbtypes.SchemaCfa, a),
		)
	}

	return listing, nil
}

// List fetches every asset held by the wallet.
func List(ctx context.Context, r provider.Requester) (*Listing, error) {
	raw, err := r.Request(ctx, rgbrpc.MethodListAssets, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.ListAssetsResponse](
		rgbrpc.MethodListAssets, raw,
	)
	if err != nil {
		return nil, err
	}

	listing, err := ListingFromRPC(resp)
	if err != nil {
		return nil, err
	}

	log.Debugf("Listed %d NIA, %d UDA and %d CFA assets", len(listing.Nia),
		len(listing.Uda), len(listing.Cfa))

	return listing, nil
}

// Find fetches the asset with the given id, returning
// balance.ErrAssetNotFound if the wallet doesn't hold it.
func Find(ctx context.Context, r provider.Requester,
	assetID string) (*Asset, error) {

	listing, err := List(ctx, r)
	if err != nil {
		return nil, err
	}

	asset, err := listing.Find(assetID).UnwrapOrErr(
		balance.ErrAssetNotFound,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, assetID)
	}

	return &asset, nil
}
