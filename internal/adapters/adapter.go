// Package adapters defines the capability interface every coin backend
// implements, plus the registry the core resolves symbols through. The
// core never special-cases a coin by name: confirmation semantics,
// address formats and display precision all live behind CoinAdapter.
package adapters

import (
	"context"

	"github.com/shopspring/decimal"
)

// CoinAdapter wraps one wallet backend. Every operation is independently
// failable; errors carry the pkg/errors taxonomy so callers can tell an
// offline backend (BackendUnavailable) from a rejected call
// (ExecutionFailure).
type CoinAdapter interface {
	// Symbol returns the currency code this adapter serves.
	Symbol() string

	// Name returns the human readable backend name.
	Name() string

	// GetBalance reports the current hot wallet balance. A failure means
	// the adapter is offline, never a zero balance.
	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// GetNewAddress issues a fresh receiving address, with an optional
	// extra part (memo/tag) for account-based coins.
	GetNewAddress(ctx context.Context, scope string) (address, extra string, err error)

	// DoWithdraw submits a withdrawal to the backend and returns the
	// external transaction id. Callers invoke it at most once per ledger
	// row.
	DoWithdraw(ctx context.Context, address, extra string, amount decimal.Decimal, comment string) (txid string, err error)

	// Cron is the reconciliation hook: discover deposits and
	// confirmation changes the event-driven path missed and feed them
	// through the same recording path. Repeated calls with no backend
	// activity must be no-ops. Adapters with nothing to poll return nil.
	Cron(ctx context.Context) error

	// DecimalPlaces returns the display precision for the symbol.
	DecimalPlaces() int32

	// FormatAmount renders an amount with the symbol's precision.
	FormatAmount(amount decimal.Decimal) string
}

// DepositNotice is what an adapter reports when it discovers an incoming
// transaction. The reconciliation path and the event-driven path both
// deliver these, so the recording side cannot distinguish the origin.
type DepositNotice struct {
	Scope         string
	Symbol        string
	TxID          string
	Address       string
	Extra         string
	Amount        decimal.Decimal
	Confirmations int
	Comment       string
}

// WithdrawalUpdate reports a confirmation-count change for an already
// broadcast withdrawal.
type WithdrawalUpdate struct {
	Scope         string
	Symbol        string
	TxID          string
	Confirmations int
}

// Sink receives everything an adapter discovers during reconciliation.
// Implemented by the wallet service; recording is idempotent on
// (scope, txid).
type Sink interface {
	RecordDeposit(ctx context.Context, notice DepositNotice) error
	RecordWithdrawalUpdate(ctx context.Context, update WithdrawalUpdate) error
}
