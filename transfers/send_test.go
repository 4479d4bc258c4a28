package transfers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/invoices"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtest"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fundedFake(spendable uint64) *rgbtest.FakeProvider {
	fake := rgbtest.NewFakeProvider()
	fake.Now = func() time.Time { return testTime }
	fake.AddAsset("Nia", rgbrpc.UdaAsset{
		Asset: rgbrpc.Asset{
			AssetID:      testAsset,
			Ticker:       "USDT",
			Name:         "Tether",
			Precision:    6,
			IssuedSupply: 1_000_000,
			Balance: rgbrpc.AssetBalance{
				Settled:   spendable,
				Spendable: spendable,
			},
		},
	})

	return fake
}

func validSend() SendRequest {
	return SendRequest{
		RecipientID: "utxob:2FZsSuk-iyVQLVuU4-Gc6J4qkE8-mLS17N4jd-" +
			"MEx6cWz9F-MFkyE1n",
		AssetID:            testAsset,
		Assignment:         rgbtypes.NewFungible(25),
		TransportEndpoints: []string{rgbtest.DefaultTransportEndpoint},
		FeeRate:            2,
		MinConfirmations:   1,
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	fake := fundedFake(100)
	ctx := context.Background()

	txid, err := Send(ctx, fake, validSend())
	require.NoError(t, err)

	transfers, err := List(ctx, fake, testAsset)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, KindSend, transfers[0].Kind)
	require.Equal(t, StatusWaitingCounterparty, transfers[0].Status)
	require.Equal(t, fn.Some(txid), transfers[0].Txid)
	require.Equal(t, fn.Some(rgbtypes.NewFungible(25)),
		transfers[0].RequestedAssignment)
}

func TestSendInsufficientFunds(t *testing.T) {
	t.Parallel()

	fake := fundedFake(10)

	_, err := Send(context.Background(), fake, validSend())
	require.ErrorIs(t, err, rgbrpc.ErrInsufficientFunds)
	require.ErrorIs(t, err, rgbrpc.ErrProviderRejected)

	// A failed send leaves no transfer behind.
	transfers, err := List(context.Background(), fake, testAsset)
	require.NoError(t, err)
	require.Empty(t, transfers)
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		modify func(*SendRequest)
		err    error
	}{
		{
			name:   "no recipient",
			modify: func(r *SendRequest) { r.RecipientID = "" },
			err:    ErrNoRecipient,
		},
		{
			name:   "no asset",
			modify: func(r *SendRequest) { r.AssetID = "" },
			err:    ErrEmptyAssetID,
		},
		{
			name: "no endpoints",
			modify: func(r *SendRequest) {
				r.TransportEndpoints = nil
			},
			err: ErrNoTransportEndpoints,
		},
		{
			name:   "zero fee rate",
			modify: func(r *SendRequest) { r.FeeRate = 0 },
			err:    ErrZeroFeeRate,
		},
		{
			name:   "negative confirmations",
			modify: func(r *SendRequest) { r.MinConfirmations = -1 },
			err:    ErrNegativeConfirmations,
		},
		{
			name: "zero amount",
			modify: func(r *SendRequest) {
				r.Assignment = rgbtypes.NewFungible(0)
			},
			err: ErrZeroAmount,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := validSend()
			tc.modify(&req)

			m := &rgbtest.MockProvider{}
			_, err := Send(context.Background(), m, req)
			require.ErrorIs(t, err, tc.err)
			require.ErrorIs(t, err, rgbrpc.ErrInvalidRequest)
			m.AssertNotCalled(
				t, "Request", mock.Anything, mock.Anything,
				mock.Anything,
			)
		})
	}
}

func TestSendMalformedTxid(t *testing.T) {
	t.Parallel()

	m := &rgbtest.MockProvider{}
	m.Mock.On("Request", mock.Anything, rgbrpc.MethodSendAsset,
		validSend().RPC()).Return(
		json.RawMessage(`{"txid":"zz"}`), nil,
	)

	_, err := Send(context.Background(), m, validSend())
	require.ErrorIs(t, err, rgbrpc.ErrMalformedResponse)
	m.AssertExpectations(t)
}

func TestSendRequestFromInvoice(t *testing.T) {
	t.Parallel()

	inv := &invoices.Decoded{
		RecipientID:        "utxob:abc",
		Assignment:         rgbtypes.NewFungible(5),
		TransportEndpoints: []string{"rpc://a"},
	}

	req := SendRequestFromInvoice(inv, testAsset, 3)
	require.Equal(t, testAsset, req.AssetID)
	require.Equal(t, FeeRate(3), req.FeeRate)
	require.NoError(t, req.Validate())

	inv.AssetID = "rgb:other"
	req = SendRequestFromInvoice(inv, testAsset, 3)
	require.Equal(t, "rgb:other", req.AssetID)
	require.Equal(t, "3 sat/vB", req.FeeRate.String())
}

// TestListSortedByIdx asserts listings come back in idx order whatever order
// the provider reports them in.
func TestListSortedByIdx(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		idxs := rapid.SliceOfNDistinct(
			rapid.Int64Range(0, 10_000), 0, 30,
			rapid.ID[int64],
		).Draw(rt, "idxs")

		fake := rgbtest.NewFakeProvider()
		for _, idx := range idxs {
			fake.AddTransfer(testAsset, rgbrpc.Transfer{
				Idx:       idx,
				CreatedAt: testTime.Unix(),
				UpdatedAt: testTime.Unix(),
				Status:    "WaitingCounterparty",
				Kind:      "ReceiveBlind",
			})
		}

		transfers, err := List(context.Background(), fake, testAsset)
		require.NoError(rt, err)
		require.Len(rt, transfers, len(idxs))

		for i := 1; i < len(transfers); i++ {
			require.Less(rt, transfers[i-1].Idx, transfers[i].Idx)
		}
	})
}

func TestListErrors(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	ctx := context.Background()

	_, err := List(ctx, fake, "")
	require.ErrorIs(t, err, rgbrpc.ErrInvalidRequest)
	require.Empty(t, fake.Calls())

	rejection := rgbrpc.NewProviderError(
		rgbrpc.MethodListTransfers, "Locked", "wallet locked",
	)
	fake.Fail(rgbrpc.MethodListTransfers, rejection)
	_, err = List(ctx, fake, testAsset)
	require.Same(t, rejection, err)

	// Transfers carrying unknown tags are still listed.
	fake.Recover(rgbrpc.MethodListTransfers)
	fake.AddTransfer(testAsset, rgbrpc.Transfer{
		Idx: 1, Status: "Queued", Kind: "Swap",
	})
	transfers, err := List(ctx, fake, testAsset)
	require.NoError(t, err)
	require.Equal(t, "Unknown(Queued)", transfers[0].Status.String())

	// A single unparseable record fails the listing.
	bad := "xyz"
	fake.AddTransfer(testAsset, rgbrpc.Transfer{Idx: 2, Txid: &bad})
	_, err = List(ctx, fake, testAsset)
	require.ErrorIs(t, err, rgbrpc.ErrMalformedResponse)
}
