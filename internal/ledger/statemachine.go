package ledger

import (
	"github.com/custodia/walletcore/pkg/errors"
	"github.com/custodia/walletcore/pkg/metrics"
)

// ValidTransitions defines the allowed status transitions. Done is the
// only absorbing state; cancelled and failed rows may re-enter pending
// through an explicit retry.
var ValidTransitions = map[Status][]Status{
	StatusUnconfirmed: {StatusPending, StatusCancelled, StatusFailed},
	StatusPending:     {StatusDone, StatusCancelled, StatusFailed},
	StatusCancelled:   {StatusPending},
	StatusFailed:      {StatusPending},
	StatusDone:        {},
}

// IsValidTransition checks whether from may move to to.
func IsValidTransition(from, to Status) bool {
	allowed, exists := ValidTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves tx to the target status. Every status change
// after insert goes through here; anything the transition table does
// not allow is a state conflict.
func ApplyTransition(tx *Transaction, to Status) error {
	if !IsValidTransition(tx.Status, to) {
		return errors.Newf(errors.KindStateConflict,
			"transaction %d cannot move from %s to %s", tx.ID, tx.Status, to)
	}
	tx.Status = to
	metrics.Transitions.WithLabelValues(string(tx.Category), string(to)).Inc()
	return nil
}

// IsTerminal reports whether no transition leaves the state.
func IsTerminal(s Status) bool {
	allowed, exists := ValidTransitions[s]
	return exists && len(allowed) == 0
}

// IsRetryable reports whether a retry may re-enter pending from s.
func IsRetryable(s Status) bool {
	return s == StatusCancelled || s == StatusFailed
}

// IsCancellable reports whether a cancel is permitted from s. Broadcast
// withdrawals are additionally guarded by the txid check in the service
// layer.
func IsCancellable(s Status) bool {
	return s == StatusUnconfirmed || s == StatusPending
}

// AcceptsConfirmation reports whether admin/user confirmation flags are
// still meaningful in s.
func AcceptsConfirmation(s Status) bool {
	return s == StatusUnconfirmed || s == StatusPending
}
