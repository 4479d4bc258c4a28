package transfers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidateTransition(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		kind  Kind
		from  Status
		to    Status
		legal bool
	}{
		{
			name:  "counterparty to confirmations",
			kind:  KindSend,
			from:  StatusWaitingCounterparty,
			to:    StatusWaitingConfirmations,
			legal: true,
		},
		{
			name:  "confirmations to settled",
			kind:  KindReceiveBlind,
			from:  StatusWaitingConfirmations,
			to:    StatusSettled,
			legal: true,
		},
		{
			name:  "counterparty to failed",
			kind:  KindReceiveWitness,
			from:  StatusWaitingCounterparty,
			to:    StatusFailed,
			legal: true,
		},
		{
			name:  "confirmations to failed",
			kind:  KindSend,
			from:  StatusWaitingConfirmations,
			to:    StatusFailed,
			legal: true,
		},
		{
			name:  "self loop",
			kind:  KindSend,
			from:  StatusWaitingConfirmations,
			to:    StatusWaitingConfirmations,
			legal: true,
		},
		{
			name:  "issuance settles directly",
			kind:  KindIssuance,
			from:  StatusWaitingCounterparty,
			to:    StatusSettled,
			legal: true,
		},
		{
			name: "send skips confirmations",
			kind: KindSend,
			from: StatusWaitingCounterparty,
			to:   StatusSettled,
		},
		{
			name: "backwards",
			kind: KindSend,
			from: StatusWaitingConfirmations,
			to:   StatusWaitingCounterparty,
		},
		{
			name: "out of settled",
			kind: KindSend,
			from: StatusSettled,
			to:   StatusFailed,
		},
		{
			name: "out of failed",
			kind: KindReceiveBlind,
			from: StatusFailed,
			to:   StatusWaitingCounterparty,
		},
		{
			name: "unknown target",
			kind: KindSend,
			from: StatusWaitingCounterparty,
			to:   Status("Pending"),
		},
		{
			name: "unknown self loop",
			kind: KindSend,
			from: Status("Pending"),
			to:   Status("Pending"),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateTransition(tc.kind, tc.from, tc.to)
			if tc.legal {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrIllegalTransition)

			var transErr *IllegalTransitionError
			require.ErrorAs(t, err, &transErr)
			require.Equal(t, tc.from, transErr.From)
			require.Equal(t, tc.to, transErr.To)
		})
	}
}

// TestTransitionLegalityProperty checks that the only accepted changes of
// status are the forward edges of the lifecycle.
func TestTransitionLegalityProperty(t *testing.T) {
	t.Parallel()

	statuses := append(
		[]Status{Status("Unknown"), Status("")}, knownStatuses...,
	)
	kinds := append([]Kind{Kind("Mint")}, knownKinds...)

	rank := map[Status]int{
		StatusWaitingCounterparty:  0,
		StatusWaitingConfirmations: 1,
		StatusSettled:              2,
		StatusFailed:               2,
	}

	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom(kinds).Draw(rt, "kind")
		from := rapid.SampledFrom(statuses).Draw(rt, "from")
		to := rapid.SampledFrom(statuses).Draw(rt, "to")

		err := ValidateTransition(kind, from, to)

		switch {
		case !from.Known() || !to.Known():
			require.ErrorIs(rt, err, ErrIllegalTransition)

		case from == to:
			require.NoError(rt, err)

		case from.IsTerminal():
			require.ErrorIs(rt, err, ErrIllegalTransition)

		case rank[to] <= rank[from]:
			require.ErrorIs(rt, err, ErrIllegalTransition)

		case from == StatusWaitingCounterparty &&
			to == StatusSettled:

			if kind == KindIssuance {
				require.NoError(rt, err)
			} else {
				require.ErrorIs(rt, err, ErrIllegalTransition)
			}

		default:
			require.NoError(rt, err)
		}
	})
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	require.Equal(t, StatusSettled, ParseStatus("settled"))
	require.Equal(t, "Unknown(Pending)", ParseStatus("Pending").String())
	require.False(t, ParseStatus("Pending").Known())

	require.Equal(t, KindIssuance, ParseKind("Issuance"))
	require.Equal(t, KindIssuance, ParseKind("Issuen"))
	require.Equal(t, KindReceiveBlind, ParseKind("receiveblind"))
	require.True(t, KindReceiveWitness.IsReceive())
	require.False(t, KindSend.IsReceive())
	require.Equal(t, "Unknown(Swap)", ParseKind("Swap").String())
}
