// Package rgbwebln is a client for RGB WebLN providers: agents custodying RGB
// assets on behalf of the user, injected into the process by the embedding
// environment or reached over a websocket.
//
// A Client wraps one validated provider. It tracks whether access was
// granted, exposes every provider method with typed arguments and results,
// checks the balances it returns and follows transfers across the updates the
// provider pushes.
package rgbwebln

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/assets"
	"github.com/rgbwebln/rgbwebln/balance"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/rgbwebln/rgbwebln/invoices"
	"github.com/rgbwebln/rgbwebln/msgsig"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
	"github.com/rgbwebln/rgbwebln/transfers"
	"github.com/rgbwebln/rgbwebln/wsprovider"
)

// ErrNotEnabled is returned for requests issued before Enable succeeded.
var ErrNotEnabled = errors.New("provider not enabled")

// ClientConfig holds the dependencies of a Client.
type ClientConfig struct {
	// Provider is the validated provider every request goes to.
	Provider provider.Provider

	// Origin is presented on Enable when the caller doesn't name one.
	Origin fn.Option[string]

	// Metrics, if set, counts requests and diagnostics.
	Metrics *Metrics
}

// Info identifies the node behind a provider and what it can do.
type Info struct {
	// Alias is the node alias.
	Alias string

	// PubKey is the node identity key, the key signing messages.
	PubKey *btcec.PublicKey

	// Color is the node color, if the provider reports one.
	Color fn.Option[string]

	// Methods lists the methods the provider supports.
	Methods []string
}

// Supports returns true if the provider listed method.
func (i *Info) Supports(method string) bool {
	return fn.Any(i.Methods, func(m string) bool {
		return m == method
	})
}

// NetworkInfo is the chain the provider operates on.
type NetworkInfo struct {
	// Network is the bitcoin network, possibly one this client doesn't
	// know.
	Network rgbtypes.Network

	// Height is the chain tip height as seen by the provider.
	Height int64
}

// Client is the typed front of a provider. Every method blocks until the
// provider answers or ctx ends.
type Client struct {
	cfg *ClientConfig

	enabled atomic.Bool

	mu      sync.Mutex
	info    fn.Option[Info]
	network fn.Option[rgbtypes.Network]

	tracker    *transfers.Tracker
	reconciler *balance.Reconciler
	unwatch    func()

	stopOnce sync.Once
}

// A compile time check to ensure Client can stand in for the provider it
// wraps.
var _ provider.Provider = (*Client)(nil)

// NewClient returns a client for cfg.Provider. The transfer updates pushed by
// the provider are fed to the client's tracker until Stop is called.
func NewClient(cfg *ClientConfig) *Client {
	c := &Client{
		cfg: cfg,
	}

	c.tracker = transfers.NewTracker(transfers.TrackerConfig{
		OnRejected: func(string, error) {
			cfg.Metrics.observeRejection()
		},
		OnAccepted: cfg.Metrics.observeTransition,
	})
	c.reconciler = balance.NewReconciler(balance.ReconcilerConfig{
		Requester:       c,
		OnInconsistency: cfg.Metrics.observeInconsistency,
	})
	c.unwatch = c.tracker.Watch(cfg.Provider, rgbrpc.EventTransferUpdate)

	return c
}

// Connect obtains a provider as configured, dialing the websocket endpoint if
// one is set and discovering an injected provider otherwise.
func Connect(ctx context.Context, cfg *Config,
	metrics *Metrics) (*Client, error) {

	var (
		p   provider.Provider
		err error
	)
	if cfg.Websocket.Endpoint != "" {
		p, err = wsprovider.Dial(ctx, cfg.WebsocketClient())
	} else {
		p, err = provider.NewDiscoverer(cfg.ProviderDiscovery()).Discover(
			ctx, cfg.Discovery.Timeout,
		)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Using provider %T", p)

	return NewClient(&ClientConfig{
		Provider: p,
		Origin:   cfg.EnableOrigin(),
		Metrics:  metrics,
	}), nil
}

// Enable asks the provider for access, presenting origin or, if none is
// given, the configured origin. Every other request fails with ErrNotEnabled
// until Enable succeeds.
func (c *Client) Enable(ctx context.Context, origin fn.Option[string]) error {
	if origin.IsNone() {
		origin = c.cfg.Origin
	}

	err := c.cfg.Provider.Enable(ctx, origin)
	c.cfg.Metrics.observeRequest(rgbrpc.MethodEnable, err)
	if err != nil {
		return err
	}

	c.enabled.Store(true)
	log.Infof("Provider enabled for origin=%v", origin.UnwrapOr("none"))

	return nil
}

// IsEnabled asks the provider whether access is granted. It may be called at
// any time. The answer also updates the client's own view, so access granted
// in an earlier session doesn't need a new Enable.
func (c *Client) IsEnabled(ctx context.Context) (bool, error) {
	enabled, err := c.cfg.Provider.IsEnabled(ctx)
	c.cfg.Metrics.observeRequest(rgbrpc.MethodIsEnabled, err)
	if err != nil {
		return false, err
	}

	if c.enabled.Swap(enabled) != enabled {
		log.Infof("Provider enabled state changed to %v", enabled)
	}

	return enabled, nil
}

// Request sends method to the provider, failing fast with ErrNotEnabled if
// access wasn't granted yet.
func (c *Client) Request(ctx context.Context, method string,
	params any) (json.RawMessage, error) {

	if !c.enabled.Load() {
		err := fmt.Errorf("%w: %s issued before enable", ErrNotEnabled,
			method)
		c.cfg.Metrics.observeRequest(method, err)

		return nil, err
	}

	raw, err := c.cfg.Provider.Request(ctx, method, params)
	c.cfg.Metrics.observeRequest(method, err)
	if err != nil {
		log.Debugf("Request %s failed: %v", method, err)
		return nil, err
	}

	return raw, nil
}

// On registers handler for events pushed by the provider.
func (c *Client) On(event string, handler events.Handler) events.Token {
	return c.cfg.Provider.On(event, handler)
}

// Off removes a handler registered with On.
func (c *Client) Off(event string, token events.Token) bool {
	return c.cfg.Provider.Off(event, token)
}

// GetInfo fetches the node identity and the methods the provider supports.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	raw, err := c.Request(ctx, rgbrpc.MethodGetInfo, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.GetInfoResponse](
		rgbrpc.MethodGetInfo, raw,
	)
	if err != nil {
		return nil, err
	}

	pubKeyBytes, err := hex.DecodeString(resp.Node.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: node pubkey: %v",
			rgbrpc.ErrMalformedResponse, err)
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: node pubkey: %v",
			rgbrpc.ErrMalformedResponse, err)
	}

	info := Info{
		Alias:   resp.Node.Alias,
		PubKey:  pubKey,
		Color:   fn.OptionFromPtr(resp.Node.Color),
		Methods: resp.Methods,
	}

	c.mu.Lock()
	c.info = fn.Some(info)
	c.mu.Unlock()

	return &info, nil
}

// cachedInfo returns the last fetched info, fetching it if needed.
func (c *Client) cachedInfo(ctx context.Context) (*Info, error) {
	c.mu.Lock()
	cached := c.info
	c.mu.Unlock()

	if cached.IsSome() {
		info := cached.UnwrapOr(Info{})
		return &info, nil
	}

	return c.GetInfo(ctx)
}

// Supports returns true if the provider lists method among the ones it
// supports. The method list is fetched once.
func (c *Client) Supports(ctx context.Context, method string) (bool, error) {
	info, err := c.cachedInfo(ctx)
	if err != nil {
		return false, err
	}

	return info.Supports(method), nil
}

// GetNetworkInfo fetches the network the provider operates on and its chain
// height.
func (c *Client) GetNetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	raw, err := c.Request(ctx, rgbrpc.MethodGetNetworkInfo, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.NetworkInfoResponse](
		rgbrpc.MethodGetNetworkInfo, raw,
	)
	if err != nil {
		return nil, err
	}

	network := rgbtypes.ParseNetwork(resp.Network)
	if !network.Known() {
		log.Warnf("Provider reported unknown network %q", resp.Network)
	}

	c.mu.Lock()
	c.network = fn.Some(network)
	c.mu.Unlock()

	return &NetworkInfo{Network: network, Height: resp.Height}, nil
}

// Address is a wallet address as reported by the provider.
type Address struct {
	// Encoded is the address exactly as the provider returned it.
	Encoded string

	// Decoded is the address parsed for the provider's network. It is
	// None when that network is unknown to this client or couldn't be
	// fetched, in which case the address wasn't checked.
	Decoded fn.Option[btcutil.Address]
}

// GetAddress fetches a fresh bitcoin address of the wallet. If the provider's
// network is known, the address must belong to it.
func (c *Client) GetAddress(ctx context.Context) (*Address, error) {
	raw, err := c.Request(ctx, rgbrpc.MethodGetAddress, nil)
	if err != nil {
		return nil, err
	}

	resp, err := rgbrpc.Decode[rgbrpc.AddressResponse](
		rgbrpc.MethodGetAddress, raw,
	)
	if err != nil {
		return nil, err
	}

	result := &Address{
		Encoded: resp.Address,
		Decoded: fn.None[btcutil.Address](),
	}

	c.mu.Lock()
	network := c.network
	c.mu.Unlock()

	if network.IsNone() {
		info, err := c.GetNetworkInfo(ctx)
		if err != nil {
			log.Warnf("Unable to fetch network, address %s left "+
				"unchecked: %v", resp.Address, err)

			return result, nil
		}
		network = fn.Some(info.Network)
	}

	chain := network.UnwrapOr("")
	if !chain.Known() {
		log.Warnf("Address %s is on network %v, left unchecked",
			resp.Address, chain)

		return result, nil
	}

	params, err := chain.ChainParams()
	if err != nil {
		return nil, fmt.Errorf("unable to check address %s: %w",
			resp.Address, err)
	}

	addr, err := btcutil.DecodeAddress(resp.Address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: address %s: %v",
			rgbrpc.ErrMalformedResponse, resp.Address, err)
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("%w: address %s is not for %s",
			rgbrpc.ErrMalformedResponse, resp.Address, params.Name)
	}

	result.Decoded = fn.Some(addr)

	return result, nil
}

// RGBInvoice asks the provider to create an invoice.
func (c *Client) RGBInvoice(ctx context.Context,
	req invoices.Request) (string, error) {

	return invoices.Create(ctx, c, req)
}

// DecodeRGBInvoice asks the provider to decode an invoice.
func (c *Client) DecodeRGBInvoice(ctx context.Context,
	invoice string) (*invoices.Decoded, error) {

	return invoices.Decode(ctx, c, invoice)
}

// SendAsset sends an asset, returning the txid of the witness transaction.
func (c *Client) SendAsset(ctx context.Context,
	req transfers.SendRequest) (chainhash.Hash, error) {

	return transfers.Send(ctx, c, req)
}

// ListTransfers fetches the transfers of an asset sorted by idx. The listing
// is also fed to the tracker, so transition subscribers learn about changes
// seen between two events. A listing the tracker refuses is still returned as
// reported.
func (c *Client) ListTransfers(ctx context.Context,
	assetID string) ([]transfers.Transfer, error) {

	list, err := transfers.List(ctx, c, assetID)
	if err != nil {
		return nil, err
	}

	if _, err := c.tracker.ObserveAll(assetID, list); err != nil {
		log.Warnf("Listing of asset %s holds an illegal update: %v",
			assetID, err)
	}

	return list, nil
}

// ListAssets fetches the assets of the wallet grouped by schema.
func (c *Client) ListAssets(ctx context.Context) (*assets.Listing, error) {
	return assets.List(ctx, c)
}

// GetBTCBalance fetches the bitcoin balance and checks it. Inconsistent
// figures are reported in the result, never as an error.
func (c *Client) GetBTCBalance(ctx context.Context) (*balance.BTCReport,
	error) {

	return c.reconciler.BTC(ctx)
}

// GetAssetBalance fetches the balance of one asset and checks it.
func (c *Client) GetAssetBalance(ctx context.Context,
	assetID string) (*balance.AssetReport, error) {

	return c.reconciler.Asset(ctx, assetID)
}

// SignMessage asks the node to sign message, returning the zbase32 signature.
func (c *Client) SignMessage(ctx context.Context, message string) (string,
	error) {

	if message == "" {
		return "", fmt.Errorf("%w: empty message",
			rgbrpc.ErrInvalidRequest)
	}

	raw, err := c.Request(
		ctx, rgbrpc.MethodSignMessage,
		rgbrpc.SignMessageRequest{Message: message},
	)
	if err != nil {
		return "", err
	}

	resp, err := rgbrpc.Decode[rgbrpc.SignMessageResponse](
		rgbrpc.MethodSignMessage, raw,
	)
	if err != nil {
		return "", err
	}
	if resp.SignedMessage == "" {
		return "", fmt.Errorf("%w: empty signature",
			rgbrpc.ErrMalformedResponse)
	}

	return resp.SignedMessage, nil
}

// VerifyMessage checks that signature over message was made by the node
// behind the provider.
func (c *Client) VerifyMessage(ctx context.Context, message,
	signature string) error {

	info, err := c.cachedInfo(ctx)
	if err != nil {
		return err
	}

	return msgsig.Verify(
		[]byte(message), signature, info.PubKey.SerializeCompressed(),
	)
}

// Provider returns the provider the client wraps.
func (c *Client) Provider() provider.Provider {
	return c.cfg.Provider
}

// Tracker returns the tracker following the transfers of the provider.
func (c *Client) Tracker() *transfers.Tracker {
	return c.tracker
}

// SubscribeTransitions returns a subscription receiving every transfer
// transition accepted from now on.
func (c *Client) SubscribeTransitions() (*events.Subscription, error) {
	return c.tracker.SubscribeTransitions()
}

// Stop stops following transfers and closes the provider connection if the
// client owns one.
func (c *Client) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		c.unwatch()
		c.tracker.Stop()

		if closer, ok := c.cfg.Provider.(io.Closer); ok {
			err = closer.Close()
		}
	})

	return err
}
