package invoices

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtest"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testTime = time.Unix(1_700_000_000, 0)

// TestCreateInvalidNeverDispatches asserts every request violating an
// invariant fails with ErrInvalidRequest before the provider is contacted.
func TestCreateInvalidNeverDispatches(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		req := Request{
			DurationSeconds: rapid.Int64Range(
				-1_000_000, 1_000_000,
			).Draw(rt, "duration"),
			MinConfirmations: rapid.Int64Range(
				-100, 100,
			).Draw(rt, "minConf"),
		}
		if req.DurationSeconds > 0 && req.MinConfirmations >= 0 {
			// Force one of the invariants to break.
			if rapid.Bool().Draw(rt, "breakDuration") {
				req.DurationSeconds = -req.DurationSeconds
			} else {
				req.MinConfirmations = -req.MinConfirmations - 1
			}
		}

		m := &rgbtest.MockProvider{}
		_, err := Create(context.Background(), m, req)
		require.ErrorIs(rt, err, rgbrpc.ErrInvalidRequest)
		m.AssertNotCalled(
			rt, "Request", mock.Anything, mock.Anything,
			mock.Anything,
		)
	})
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		req  Request
		err  error
	}{
		{
			name: "valid minimal",
			req:  Request{DurationSeconds: 1},
		},
		{
			name: "valid full",
			req: Request{
				AssetID:          fn.Some("rgb:asset"),
				Amount:           fn.Some(uint64(10)),
				DurationSeconds:  86400,
				MinConfirmations: 1,
			},
		},
		{
			name: "zero duration",
			req:  Request{DurationSeconds: 0},
			err:  ErrNonPositiveDuration,
		},
		{
			name: "negative confirmations",
			req: Request{
				DurationSeconds: 10, MinConfirmations: -1,
			},
			err: ErrNegativeConfirmations,
		},
		{
			name: "zero amount",
			req: Request{
				DurationSeconds: 10,
				Amount:          fn.Some(uint64(0)),
			},
			err: ErrZeroAmount,
		},
		{
			name: "empty asset id",
			req: Request{
				DurationSeconds: 10,
				AssetID:         fn.Some(""),
			},
			err: ErrEmptyAssetID,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.req.Validate()
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
			require.ErrorIs(t, err, rgbrpc.ErrInvalidRequest)
		})
	}
}

// TestCreateDecodeRoundTrip asserts the asset id survives a create/decode
// round trip through a consistent provider.
func TestCreateDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		fake := rgbtest.NewFakeProvider()
		fake.Now = func() time.Time { return testTime }

		req := Request{
			DurationSeconds: rapid.Int64Range(
				1, 1<<30,
			).Draw(rt, "duration"),
			MinConfirmations: rapid.Int64Range(
				0, 6,
			).Draw(rt, "minConf"),
		}
		if rapid.Bool().Draw(rt, "hasAsset") {
			req.AssetID = fn.Some(rapid.StringMatching(
				`rgb:[a-zA-Z0-9]{8,32}`,
			).Draw(rt, "assetID"))
		}
		if rapid.Bool().Draw(rt, "hasAmount") {
			req.Amount = fn.Some(rapid.Uint64Min(1).Draw(
				rt, "amount",
			))
		}

		ctx := context.Background()
		invoice, err := Create(ctx, fake, req)
		require.NoError(rt, err)

		decoded, err := Decode(ctx, fake, invoice)
		require.NoError(rt, err)
		require.Equal(rt, req.AssetID.UnwrapOr(""), decoded.AssetID)
		require.NotEmpty(rt, decoded.TransportEndpoints)

		if req.Amount.IsSome() {
			require.Equal(rt, rgbtypes.AssignmentFungible,
				decoded.Assignment.Kind)
			require.Equal(rt, req.Amount.UnwrapOr(0),
				decoded.Assignment.Value)
		}
	})
}

// TestDecodeShapeChecks asserts incomplete results are refused with
// ErrMalformedInvoice while expired ones still decode.
func TestDecodeShapeChecks(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	ctx := context.Background()
	assignment := &rgbrpc.Assignment{Type: "Fungible", Value: 5}

	_, err := Decode(ctx, fake, rgbtest.EncodeInvoice(rgbrpc.InvoiceDecoded{
		RecipientID: "utxob:x",
		Assignment:  assignment,
	}))
	require.ErrorIs(t, err, ErrNoTransportEndpoints)
	require.ErrorIs(t, err, rgbrpc.ErrMalformedInvoice)

	_, err = Decode(ctx, fake, rgbtest.EncodeInvoice(rgbrpc.InvoiceDecoded{
		RecipientID:        "utxob:x",
		TransportEndpoints: []string{rgbtest.DefaultTransportEndpoint},
	}))
	require.ErrorIs(t, err, ErrNoAssignment)

	// An invoice that expired long ago decodes fine, only the caller side
	// policy check flags it.
	expiredAt := testTime.Add(-time.Hour)
	decoded, err := Decode(ctx, fake, rgbtest.EncodeInvoice(
		rgbrpc.InvoiceDecoded{
			RecipientID:         "utxob:x",
			Assignment:          assignment,
			TransportEndpoints:  []string{"rpc://a", "rpc://b"},
			AssetSchema:         "Cfa",
			Network:             "Testnet",
			ExpirationTimestamp: expiredAt.Unix(),
		},
	))
	require.NoError(t, err)
	require.Equal(t, []string{"rpc://a", "rpc://b"},
		decoded.TransportEndpoints)
	require.Equal(t, rgbtypes.SchemaCfa, decoded.AssetSchema)
	require.Equal(t, rgbtypes.NetworkTestnet, decoded.Network)
	require.True(t, decoded.Expired(clock.NewTestClock(testTime)))
	require.False(t, decoded.Expired(
		clock.NewTestClock(expiredAt.Add(-time.Second)),
	))

	// Invoices without an expiration never expire.
	decoded, err = Decode(ctx, fake, rgbtest.EncodeInvoice(
		rgbrpc.InvoiceDecoded{
			RecipientID:        "utxob:x",
			Assignment:         assignment,
			TransportEndpoints: []string{"rpc://a"},
			AssetSchema:        "Ifa",
		},
	))
	require.NoError(t, err)
	require.True(t, decoded.Expiration.IsNone())
	require.False(t, decoded.Expired(clock.NewTestClock(testTime)))
	require.False(t, decoded.AssetSchema.Known())
}

// TestDecodeErrors covers local and provider side decode failures.
func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	ctx := context.Background()

	_, err := Decode(ctx, fake, "")
	require.ErrorIs(t, err, rgbrpc.ErrInvalidRequest)
	require.Empty(t, fake.Calls())

	_, err = Decode(ctx, fake, "lnbc1garbage")
	require.ErrorIs(t, err, rgbrpc.ErrProviderRejected)

	var provErr *rgbrpc.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, rgbtest.CodeInvalidInvoice, provErr.Code)

	// A result that isn't even an object is a malformed invoice.
	m := &rgbtest.MockProvider{}
	m.Mock.On("Request", mock.Anything, rgbrpc.MethodDecodeRGBInvoice,
		mock.Anything).Return(json.RawMessage(`"nope"`), nil)
	_, err = Decode(ctx, m, "rgb:whatever")
	require.ErrorIs(t, err, rgbrpc.ErrMalformedInvoice)
	m.AssertExpectations(t)
}

// TestCreateProviderFailure asserts provider failures surface verbatim and
// are attempted exactly once.
func TestCreateProviderFailure(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	rejection := rgbrpc.NewProviderError(
		rgbrpc.MethodRGBInvoice, "NoAvailableUtxos", "no utxos",
	)
	fake.Fail(rgbrpc.MethodRGBInvoice, rejection)

	_, err := Create(
		context.Background(), fake, Request{DurationSeconds: 60},
	)
	require.Same(t, rejection, err)
	require.Equal(t, 1, fake.CallCount(rgbrpc.MethodRGBInvoice))
}
