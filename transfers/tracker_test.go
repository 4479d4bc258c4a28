package transfers

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtest"
	"github.com/rgbwebln/rgbwebln/rgbtypes"
	"github.com/stretchr/testify/require"
)

const testAsset = "rgb:2dkSTbr-jFmznS1-LZAWN6n-o7cBGoS-7jqYYcR-tNxStmY"

var testTime = time.Unix(1_700_000_000, 0)

func newTransfer(idx int64, kind Kind, status Status) Transfer {
	return Transfer{
		Idx:       idx,
		CreatedAt: testTime,
		UpdatedAt: testTime,
		Status:    status,
		Kind:      kind,
		RequestedAssignment: fn.Some(
			rgbtypes.NewFungible(100),
		),
		TransportEndpoints: []TransportEndpoint{{
			Endpoint:      "rpc://proxy.example/json-rpc",
			TransportType: "JsonRpc",
		}},
	}
}

// advance returns a copy of t moved to status a minute later.
func advance(t Transfer, status Status) Transfer {
	t.Status = status
	t.UpdatedAt = t.UpdatedAt.Add(time.Minute)
	t.TransportEndpoints = append(
		[]TransportEndpoint{}, t.TransportEndpoints...,
	)

	return t
}

func receiveTransition(t *testing.T, updates <-chan interface{}) *Transition {
	t.Helper()

	select {
	case update := <-updates:
		transition, ok := update.(*Transition)
		require.True(t, ok)

		return transition

	case <-time.After(time.Second):
		t.Fatal("no transition received")
	}

	return nil
}

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(TrackerConfig{})
	t.Cleanup(tracker.Stop)

	sub, err := tracker.SubscribeTransitions()
	require.NoError(t, err)

	created := newTransfer(1, KindSend, StatusWaitingCounterparty)
	transition, err := tracker.Observe(testAsset, created)
	require.NoError(t, err)
	require.True(t, transition.From.IsNone())
	require.Equal(t, StatusWaitingCounterparty, transition.To)

	// Seeing the same snapshot again is not a transition.
	transition, err = tracker.Observe(testAsset, created)
	require.NoError(t, err)
	require.Nil(t, transition)

	broadcast := advance(created, StatusWaitingConfirmations)
	broadcast.TransportEndpoints[0].Used = true
	transition, err = tracker.Observe(testAsset, broadcast)
	require.NoError(t, err)
	require.Equal(t, fn.Some(StatusWaitingCounterparty), transition.From)

	settled := advance(broadcast, StatusSettled)
	_, err = tracker.Observe(testAsset, settled)
	require.NoError(t, err)

	// An identical re-observation of a terminal transfer is accepted.
	transition, err = tracker.Observe(testAsset, settled)
	require.NoError(t, err)
	require.Nil(t, transition)

	expected := []Status{
		StatusWaitingCounterparty, StatusWaitingConfirmations,
		StatusSettled,
	}
	for _, status := range expected {
		transition := receiveTransition(t, sub.Updates())
		require.Equal(t, status, transition.To)
		require.Equal(t, testAsset, transition.AssetID)
	}

	snapshot := tracker.Snapshot(testAsset, 1)
	require.True(t, snapshot.IsSome())
	require.Equal(t, StatusSettled, snapshot.UnwrapOr(Transfer{}).Status)
	require.True(t, tracker.Snapshot(testAsset, 2).IsNone())
}

func TestTrackerRejects(t *testing.T) {
	t.Parallel()

	base := newTransfer(7, KindSend, StatusWaitingCounterparty)
	base.TransportEndpoints[0].Used = true

	settledIssuance := newTransfer(7, KindIssuance, StatusSettled)

	testCases := []struct {
		name  string
		first Transfer
		next  func(Transfer) Transfer
	}{
		{
			name:  "skips confirmations",
			first: base,
			next: func(t Transfer) Transfer {
				return advance(t, StatusSettled)
			},
		},
		{
			name:  "kind changed",
			first: base,
			next: func(t Transfer) Transfer {
				t = advance(t, StatusWaitingConfirmations)
				t.Kind = KindReceiveBlind
				return t
			},
		},
		{
			name:  "updated at went backwards",
			first: base,
			next: func(t Transfer) Transfer {
				t = advance(t, StatusWaitingConfirmations)
				t.UpdatedAt = testTime.Add(-time.Second)
				t.CreatedAt = testTime.Add(-time.Hour)
				return t
			},
		},
		{
			name:  "updated before created",
			first: base,
			next: func(t Transfer) Transfer {
				t = advance(t, StatusWaitingConfirmations)
				t.CreatedAt = t.UpdatedAt.Add(time.Hour)
				return t
			},
		},
		{
			name:  "used flag reset",
			first: base,
			next: func(t Transfer) Transfer {
				t = advance(t, StatusWaitingConfirmations)
				t.TransportEndpoints[0].Used = false
				return t
			},
		},
		{
			name:  "unknown status",
			first: base,
			next: func(t Transfer) Transfer {
				return advance(t, Status("Pending"))
			},
		},
		{
			name:  "terminal transfer modified",
			first: settledIssuance,
			next: func(t Transfer) Transfer {
				t.Assignments = []rgbtypes.Assignment{
					rgbtypes.NewFungible(1),
				}
				return t
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var rejected []error
			tracker := NewTracker(TrackerConfig{
				OnRejected: func(_ string, err error) {
					rejected = append(rejected, err)
				},
			})
			t.Cleanup(tracker.Stop)

			_, err := tracker.Observe(testAsset, tc.first)
			require.NoError(t, err)

			_, err = tracker.Observe(testAsset, tc.next(tc.first))
			require.ErrorIs(t, err, ErrIllegalTransition)
			require.Len(t, rejected, 1)

			var transErr *IllegalTransitionError
			require.ErrorAs(t, err, &transErr)
			require.Equal(t, tc.first.Idx, transErr.Idx)

			// The rejected snapshot left no trace.
			snapshot := tracker.Snapshot(testAsset, tc.first.Idx)
			require.Equal(t, fn.Some(tc.first), snapshot)
		})
	}
}

func TestTrackerUnknownFirstSighting(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(TrackerConfig{})
	t.Cleanup(tracker.Stop)

	_, err := tracker.Observe(
		testAsset, newTransfer(3, KindSend, Status("Queued")),
	)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.True(t, tracker.Snapshot(testAsset, 3).IsNone())
}

func TestTrackerObserveAll(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(TrackerConfig{})
	t.Cleanup(tracker.Stop)

	first := newTransfer(1, KindSend, StatusWaitingCounterparty)
	second := newTransfer(2, KindReceiveWitness, StatusWaitingCounterparty)
	transitions, err := tracker.ObserveAll(
		testAsset, []Transfer{first, second},
	)
	require.NoError(t, err)
	require.Len(t, transitions, 2)

	// One illegal change doesn't stop the rest of the listing.
	transitions, err = tracker.ObserveAll(testAsset, []Transfer{
		advance(first, StatusSettled),
		advance(second, StatusWaitingConfirmations),
	})
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.Len(t, transitions, 1)
	require.Equal(t, int64(2), transitions[0].Idx)
}

func TestTrackerWatch(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	tracker := NewTracker(TrackerConfig{})
	t.Cleanup(tracker.Stop)

	cancel := tracker.Watch(fake, rgbrpc.EventTransferUpdate)

	txid := chainhash.DoubleHashH([]byte("witness")).String()
	update := rgbrpc.TransferEvent{
		AssetID: testAsset,
		Transfer: rgbrpc.Transfer{
			Idx:       4,
			CreatedAt: testTime.Unix(),
			UpdatedAt: testTime.Unix(),
			Status:    "WaitingCounterparty",
			Kind:      "ReceiveWitness",
			Txid:      &txid,
		},
	}
	require.Equal(t, 1, fake.Emit(rgbrpc.EventTransferUpdate, update))

	snapshot := tracker.Snapshot(testAsset, 4)
	require.True(t, snapshot.IsSome())
	require.Equal(t, KindReceiveWitness, snapshot.UnwrapOr(Transfer{}).Kind)

	// Payloads decoded generically from JSON are understood too.
	fake.Emit(rgbrpc.EventTransferUpdate, map[string]any{
		"asset_id": testAsset,
		"transfer": map[string]any{
			"idx":        4,
			"created_at": testTime.Unix(),
			"updated_at": testTime.Unix() + 60,
			"status":     "WaitingConfirmations",
			"kind":       "ReceiveWitness",
			"txid":       txid,
		},
	})
	require.Equal(t, StatusWaitingConfirmations,
		tracker.Snapshot(testAsset, 4).UnwrapOr(Transfer{}).Status)

	// Garbage is ignored.
	fake.Emit(rgbrpc.EventTransferUpdate, "garbage")

	cancel()
	cancel()
	require.Zero(t, fake.Count(rgbrpc.EventTransferUpdate))
}

func TestAbandoned(t *testing.T) {
	t.Parallel()

	transfer := newTransfer(1, KindReceiveBlind, StatusWaitingCounterparty)
	testClock := clock.NewTestClock(testTime)

	require.False(t, transfer.Abandoned(testClock))

	transfer.Expiration = fn.Some(testTime.Add(time.Hour))
	require.False(t, transfer.Abandoned(testClock))

	testClock.SetTime(testTime.Add(time.Hour))
	require.True(t, transfer.Abandoned(testClock))

	transfer.Status = StatusFailed
	require.False(t, transfer.Abandoned(testClock))
}

func TestFromRPC(t *testing.T) {
	t.Parallel()

	txid := chainhash.DoubleHashH([]byte("tx")).String()
	receive := txid + ":1"
	empty := ""
	expiration := testTime.Add(time.Hour).Unix()

	transfer, err := FromRPC(rgbrpc.Transfer{
		Idx:         9,
		CreatedAt:   testTime.Unix(),
		UpdatedAt:   testTime.Unix(),
		Status:      "Settled",
		Kind:        "Issuen",
		Txid:        &txid,
		ReceiveUtxo: &receive,
		ChangeUtxo:  &empty,
		Expiration:  &expiration,
		Assignments: []rgbrpc.Assignment{
			{Type: "Fungible", Value: 60},
			{Type: "Fungible", Value: 40},
		},
	})
	require.NoError(t, err)
	require.Equal(t, KindIssuance, transfer.Kind)
	require.Equal(t, txid, transfer.Txid.UnwrapOr(chainhash.Hash{}).String())
	require.True(t, transfer.ReceiveUtxo.IsSome())
	require.True(t, transfer.ChangeUtxo.IsNone())
	require.True(t, transfer.RecipientID.IsNone())
	require.Len(t, transfer.Assignments, 2)

	bad := "not-a-txid"
	_, err = FromRPC(rgbrpc.Transfer{Txid: &bad})
	require.ErrorIs(t, err, rgbrpc.ErrMalformedResponse)

	_, err = FromRPC(rgbrpc.Transfer{ReceiveUtxo: &bad})
	require.ErrorIs(t, err, rgbrpc.ErrMalformedResponse)

	_, err = FromRPC(rgbrpc.Transfer{CreatedAt: 10, UpdatedAt: 5})
	require.ErrorIs(t, err, rgbrpc.ErrMalformedResponse)
}
