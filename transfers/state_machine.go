package transfers

// ValidateTransition checks that a transfer of the given kind may move from
// one status to another. Staying in a non-terminal status is always allowed.
//
// The forward edges are:
//
//	WaitingCounterparty  -> WaitingConfirmations
//	WaitingCounterparty  -> Failed
//	WaitingConfirmations -> Settled
//	WaitingConfirmations -> Failed
//	WaitingCounterparty  -> Settled (issuance only)
//
// Issuances have no counterparty and no consignment to wait for, so they are
// the one kind allowed to settle straight away. No status is reachable from
// a terminal one, and unknown statuses are never part of a legal transition.
func ValidateTransition(kind Kind, from, to Status) error {
	illegal := func(reason string) error {
		return &IllegalTransitionError{
			Kind:   kind,
			From:   from,
			To:     to,
			Reason: reason,
		}
	}

	switch {
	case !from.Known() || !to.Known():
		return illegal("unknown status")

	case from.IsTerminal() && from != to:
		return illegal("transfer already terminal")

	case from == to:
		return nil
	}

	switch from {
	case StatusWaitingCounterparty:
		switch to {
		case StatusWaitingConfirmations, StatusFailed:
			return nil

		case StatusSettled:
			if kind == KindIssuance {
				return nil
			}

			return illegal("settled without confirmations")
		}

	case StatusWaitingConfirmations:
		switch to {
		case StatusSettled, StatusFailed:
			return nil
		}
	}

	return illegal("status went backwards")
}
