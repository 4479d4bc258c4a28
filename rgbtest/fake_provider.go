// Package rgbtest provides provider doubles for tests: FakeProvider, an
// in-memory node that answers every method consistently, and MockProvider, a
// testify mock for asserting exactly what is sent.
package rgbtest

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
)

const (
	// invoicePrefix prefixes every invoice produced by the fake.
	invoicePrefix = "rgb:fake:"

	// DefaultTransportEndpoint is the endpoint listed in fake invoices.
	DefaultTransportEndpoint = "rpc://127.0.0.1:3000/json-rpc"

	// CodeInvalidInvoice is returned when decoding garbage.
	CodeInvalidInvoice = "InvalidInvoice"

	// CodeNotEnabled is returned for requests issued before enable.
	CodeNotEnabled = "NotEnabled"

	// CodeUnknownMethod is returned for methods the fake doesn't know.
	CodeUnknownMethod = "UnknownMethod"
)

// FakeProvider is an in-memory provider. Invoices it creates decode back to
// the request they were made from, sends debit the asset balance and append a
// transfer, and events are pushed with Emit.
type FakeProvider struct {
	*events.Registry

	mu sync.Mutex

	enabled bool
	origins []string

	// Network and Height are reported by getNetworkInfo.
	Network string
	Height  int64

	// Address is returned by getAddress.
	Address string

	// Node is reported by getInfo.
	Node rgbrpc.NodeInfo

	// Now is the time source used for invoice expirations and transfer
	// timestamps.
	Now func() time.Time

	// Signer signs messages for signMessage. If nil, signMessage fails.
	Signer func(msg string) (string, error)

	// RequireEnable makes every method except enable and isEnabled fail
	// until Enable has been called.
	RequireEnable bool

	transfers map[string][]rgbrpc.Transfer
	assets    rgbrpc.ListAssetsResponse
	balance   rgbrpc.BTCBalance

	nextIdx     int64
	nextInvoice uint64

	failures map[string]error
	calls    []string
}

// NewFakeProvider returns a regtest fake with no assets and no funds.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Registry: events.NewRegistry(),
		Network:  "Regtest",
		Height:   150,
		Address:  "bcrt1qw508d6qejxtdg4y5r3zarvary0c5xw7kygt080",
		Node: rgbrpc.NodeInfo{
			Alias:  "fake-node",
			Pubkey: "0279be667ef9dcbbac55a06295ce870b07029bfcdb2" +
				"dce28d959f2815b16f81798",
		},
		Now:       time.Now,
		transfers: make(map[string][]rgbrpc.Transfer),
		failures:  make(map[string]error),
	}
}

// Enable grants access and records the requesting origin.
func (f *FakeProvider) Enable(_ context.Context,
	origin fn.Option[string]) error {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, rgbrpc.MethodEnable)
	if err, ok := f.failures[rgbrpc.MethodEnable]; ok {
		return err
	}

	f.enabled = true
	origin.WhenSome(func(o string) {
		f.origins = append(f.origins, o)
	})

	return nil
}

// IsEnabled reports whether Enable succeeded.
func (f *FakeProvider) IsEnabled(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, rgbrpc.MethodIsEnabled)
	if err, ok := f.failures[rgbrpc.MethodIsEnabled]; ok {
		return false, err
	}

	return f.enabled, nil
}

// Origins returns the origins passed to Enable.
func (f *FakeProvider) Origins() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.origins...)
}

// Fail makes every later call of method fail with err until Recover is
// called.
func (f *FakeProvider) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[method] = err
}

// Recover undoes Fail for method.
func (f *FakeProvider) Recover(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.failures, method)
}

// Calls returns the methods requested so far, in order.
func (f *FakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// CallCount returns how often method was requested.
func (f *FakeProvider) CallCount(method string) int {
	return len(fn.Filter(f.Calls(), func(m string) bool {
		return m == method
	}))
}

// SetBTCBalance sets the figures returned by getBalance.
func (f *FakeProvider) SetBTCBalance(b rgbrpc.BTCBalance) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balance = b
}

// AddAsset adds an asset to the wallet under its schema group.
func (f *FakeProvider) AddAsset(schema string, asset rgbrpc.UdaAsset) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch strings.ToLower(schema) {
	case "nia":
		f.assets.Nia = append(f.assets.Nia, asset.Asset)
	case "cfa":
		f.assets.Cfa = append(f.assets.Cfa, asset.Asset)
	case "uda":
		f.assets.Uda = append(f.assets.Uda, asset)
	default:
		panic(fmt.Sprintf("unknown schema %q", schema))
	}
}

// AddTransfer appends a transfer record to the asset's list as is, so tests
// control the order the provider reports them in.
func (f *FakeProvider) AddTransfer(assetID string, t rgbrpc.Transfer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transfers[assetID] = append(f.transfers[assetID], t)
	if t.Idx >= f.nextIdx {
		f.nextIdx = t.Idx + 1
	}
}

// UpdateTransfer replaces the stored record with the same idx, returning
// false if there is none.
func (f *FakeProvider) UpdateTransfer(assetID string,
	t rgbrpc.Transfer) bool {

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, stored := range f.transfers[assetID] {
		if stored.Idx == t.Idx {
			f.transfers[assetID][i] = t
			return true
		}
	}

	return false
}

// Emit pushes an event to the registered handlers, as a provider would.
func (f *FakeProvider) Emit(event string, payload any) int {
	return f.Registry.Dispatch(event, payload)
}

// Request answers method with consistent in-memory state. Params take a JSON
// round trip so the fake sees exactly what a remote provider would.
func (f *FakeProvider) Request(_ context.Context, method string,
	params any) (json.RawMessage, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, method)

	if err, ok := f.failures[method]; ok {
		return nil, err
	}

	if f.RequireEnable && !f.enabled {
		return nil, rgbrpc.NewProviderError(
			method, CodeNotEnabled, "provider not enabled",
		)
	}

	var (
		result any
		err    error
	)
	switch method {
	case rgbrpc.MethodGetInfo:
		result = rgbrpc.GetInfoResponse{
			Node:    f.Node,
			Methods: rgbrpc.Methods(),
		}

	case rgbrpc.MethodGetAddress:
		result = rgbrpc.AddressResponse{Address: f.Address}

	case rgbrpc.MethodRGBInvoice:
		var req rgbrpc.RGBInvoiceRequest
		if err := remarshal(params, &req); err != nil {
			return nil, err
		}
		result, err = f.createInvoice(req)

	case rgbrpc.MethodDecodeRGBInvoice:
		var req rgbrpc.DecodeInvoiceRequest
		if err := remarshal(params, &req); err != nil {
			return nil, err
		}
		result, err = decodeInvoice(req.Invoice)

	case rgbrpc.MethodSendAsset:
		var req rgbrpc.SendAssetRequest
		if err := remarshal(params, &req); err != nil {
			return nil, err
		}
		result, err = f.sendAsset(req)

	case rgbrpc.MethodListTransfers:
		var req rgbrpc.ListTransfersRequest
		if err := remarshal(params, &req); err != nil {
			return nil, err
		}
		result = rgbrpc.ListTransfersResponse{
			Transfers: append(
				[]rgbrpc.Transfer{}, f.transfers[req.AssetID]...,
			),
		}

	case rgbrpc.MethodListAssets:
		result = f.assets

	case rgbrpc.MethodGetNetworkInfo:
		result = rgbrpc.NetworkInfoResponse{
			Network: f.Network,
			Height:  f.Height,
		}

	case rgbrpc.MethodGetBalance:
		result = f.balance

	case rgbrpc.MethodSignMessage:
		var req rgbrpc.SignMessageRequest
		if err := remarshal(params, &req); err != nil {
			return nil, err
		}
		result, err = f.signMessage(req)

	default:
		return nil, rgbrpc.NewProviderError(
			method, CodeUnknownMethod, "unknown method",
		)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(result)
}

// createInvoice encodes the request into an invoice string the fake can
// decode later.
func (f *FakeProvider) createInvoice(
	req rgbrpc.RGBInvoiceRequest) (*rgbrpc.RGBInvoiceResponse, error) {

	f.nextInvoice++

	assignment := rgbrpc.Assignment{Type: "Any"}
	if req.Amount != nil {
		assignment = rgbrpc.Assignment{
			Type:  "Fungible",
			Value: *req.Amount,
		}
	}

	decoded := rgbrpc.InvoiceDecoded{
		RecipientID: fmt.Sprintf("utxob:fake-recipient-%d",
			f.nextInvoice),
		Assignment:         &assignment,
		TransportEndpoints: []string{DefaultTransportEndpoint},
		AssetSchema:        "Nia",
		Network:            f.Network,
		ExpirationTimestamp: f.Now().Add(
			time.Duration(req.DurationSeconds) * time.Second,
		).Unix(),
	}
	if req.AssetID != nil {
		decoded.AssetID = *req.AssetID
	}

	payload, err := json.Marshal(decoded)
	if err != nil {
		return nil, err
	}

	return &rgbrpc.RGBInvoiceResponse{
		Invoice: invoicePrefix +
			base64.RawURLEncoding.EncodeToString(payload),
	}, nil
}

// decodeInvoice reverses createInvoice.
func decodeInvoice(invoice string) (*rgbrpc.InvoiceDecoded, error) {
	invalid := rgbrpc.NewProviderError(
		rgbrpc.MethodDecodeRGBInvoice, CodeInvalidInvoice,
		"invalid invoice",
	)

	encoded, ok := strings.CutPrefix(invoice, invoicePrefix)
	if !ok {
		return nil, invalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, invalid
	}

	var decoded rgbrpc.InvoiceDecoded
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, invalid
	}

	return &decoded, nil
}

// EncodeInvoice builds an invoice string the fake decodes to exactly the given
// result, so tests can hand it shapes createInvoice would never produce.
func EncodeInvoice(decoded rgbrpc.InvoiceDecoded) string {
	payload, err := json.Marshal(decoded)
	if err != nil {
		panic(err)
	}

	return invoicePrefix + base64.RawURLEncoding.EncodeToString(payload)
}

// sendAsset debits the asset and records a pending outgoing transfer.
func (f *FakeProvider) sendAsset(
	req rgbrpc.SendAssetRequest) (*rgbrpc.TXIDResponse, error) {

	balance := f.assetBalance(req.AssetID)
	if balance == nil {
		return nil, rgbrpc.NewProviderError(
			rgbrpc.MethodSendAsset, "UnknownAsset",
			fmt.Sprintf("unknown asset %s", req.AssetID),
		)
	}

	if balance.Spendable < req.Assignment.Value {
		return nil, rgbrpc.NewProviderError(
			rgbrpc.MethodSendAsset, rgbrpc.CodeInsufficientAssets,
			fmt.Sprintf("have %d, need %d", balance.Spendable,
				req.Assignment.Value),
		)
	}
	balance.Spendable -= req.Assignment.Value
	balance.Settled -= req.Assignment.Value
	balance.OffchainOutbound += req.Assignment.Value

	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], uint64(f.nextIdx))
	txid := chainhash.Hash(sha256.Sum256(seed[:]))
	txidStr := txid.String()

	now := f.Now().Unix()
	endpoints := fn.Map(
		req.TransportEndpoints,
		func(e string) rgbrpc.TransportEndpoint {
			return rgbrpc.TransportEndpoint{
				Endpoint:      e,
				TransportType: "JsonRpc",
			}
		},
	)

	recipient := req.RecipientID
	f.transfers[req.AssetID] = append(f.transfers[req.AssetID],
		rgbrpc.Transfer{
			Idx:                 f.nextIdx,
			CreatedAt:           now,
			UpdatedAt:           now,
			Status:              "WaitingCounterparty",
			RequestedAssignment: &req.Assignment,
			Kind:                "Send",
			Txid:                &txidStr,
			RecipientID:         &recipient,
			TransportEndpoints:  endpoints,
		},
	)
	f.nextIdx++

	return &rgbrpc.TXIDResponse{Txid: txidStr}, nil
}

// assetBalance returns a pointer to the stored balance of assetID.
func (f *FakeProvider) assetBalance(assetID string) *rgbrpc.AssetBalance {
	for i := range f.assets.Nia {
		if f.assets.Nia[i].AssetID == assetID {
			return &f.assets.Nia[i].Balance
		}
	}
	for i := range f.assets.Cfa {
		if f.assets.Cfa[i].AssetID == assetID {
			return &f.assets.Cfa[i].Balance
		}
	}
	for i := range f.assets.Uda {
		if f.assets.Uda[i].AssetID == assetID {
			return &f.assets.Uda[i].Balance
		}
	}

	return nil
}

// signMessage signs with the configured signer.
func (f *FakeProvider) signMessage(
	req rgbrpc.SignMessageRequest) (*rgbrpc.SignMessageResponse, error) {

	if f.Signer == nil {
		return nil, rgbrpc.NewProviderError(
			rgbrpc.MethodSignMessage, "NoSigner", "signing disabled",
		)
	}

	sig, err := f.Signer(req.Message)
	if err != nil {
		return nil, err
	}

	return &rgbrpc.SignMessageResponse{SignedMessage: sig}, nil
}

// remarshal round trips params through JSON into req.
func remarshal(params any, req any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, req)
}
