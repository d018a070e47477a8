package wallet

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/custodia/walletcore/internal/ledger"
	"github.com/custodia/walletcore/pkg/errors"
	"github.com/custodia/walletcore/pkg/metrics"
)

// Direction tells the operator which way funds should move to bring the
// hot wallet back to its target float.
type Direction string

const (
	// DirectionDeposit means the hot wallet is short and should be
	// topped up from cold storage.
	DirectionDeposit Direction = "deposit"
	// DirectionWithdraw means the hot wallet holds excess that should
	// be moved to cold storage.
	DirectionWithdraw Direction = "withdraw"
	// DirectionNone means the hot wallet is at target.
	DirectionNone Direction = "none"
)

// Suggestion is the outcome of one rebalancing calculation.
type Suggestion struct {
	Symbol          string          `json:"symbol"`
	Percent         decimal.Decimal `json:"percent"`
	SumUserBalances decimal.Decimal `json:"sum_user_balances"`
	WalletBalance   decimal.Decimal `json:"wallet_balance"`
	Target          decimal.Decimal `json:"target"`
	Direction       Direction       `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
}

// Rebalancer computes how far the hot wallet float has drifted from its
// target share of user balances and executes the moves an operator
// approves. Cold storage rows carry no account and are tagged, keeping
// them out of user balance sums.
type Rebalancer struct {
	svc    *Service
	agg    *ledger.Aggregator
	logger *zap.Logger
}

func NewRebalancer(svc *Service, agg *ledger.Aggregator, logger *zap.Logger) *Rebalancer {
	return &Rebalancer{svc: svc, agg: agg, logger: logger}
}

// Suggest compares the live backend balance against percent of the sum
// of user balances and reports which way funds should move. percent is
// the share of user funds to keep hot, between 0 and 100.
func (r *Rebalancer) Suggest(ctx context.Context, scope, symbol string, percent decimal.Decimal) (*Suggestion, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New(errors.KindInvalidRequest, "percent must be between 0 and 100")
	}
	adapter, err := r.svc.registry.Get(symbol)
	if err != nil {
		return nil, err
	}

	walletBalance, err := adapter.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	metrics.HotWalletBalance.WithLabelValues(symbol).Set(walletBalance.InexactFloat64())

	userSum, err := r.agg.SumOfUserBalances(ctx, scope, symbol)
	if err != nil {
		return nil, err
	}
	metrics.UserBalanceSum.WithLabelValues(symbol).Set(userSum.InexactFloat64())

	target := userSum.Mul(percent).Div(decimal.NewFromInt(100))
	delta := target.Sub(walletBalance)

	suggestion := &Suggestion{
		Symbol:          symbol,
		Percent:         percent,
		SumUserBalances: userSum,
		WalletBalance:   walletBalance,
		Target:          target,
		Direction:       DirectionNone,
	}
	switch {
	case delta.IsPositive():
		suggestion.Direction = DirectionDeposit
		suggestion.Amount = delta
	case delta.IsNegative():
		suggestion.Direction = DirectionWithdraw
		suggestion.Amount = delta.Neg()
	}

	r.logger.Info("cold storage suggestion",
		zap.String("scope", scope),
		zap.String("symbol", symbol),
		zap.String("wallet_balance", walletBalance.String()),
		zap.String("target", target.String()),
		zap.String("direction", string(suggestion.Direction)),
		zap.String("amount", suggestion.Amount.String()),
	)
	return suggestion, nil
}

// WithdrawToCold broadcasts a send from the hot wallet to the given
// cold storage address and records it as an accountless, tagged ledger
// row so user balances are unaffected.
func (r *Rebalancer) WithdrawToCold(ctx context.Context, scope, symbol, address, extra string, amount decimal.Decimal) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.New(errors.KindInvalidRequest, "cold storage amount must be positive")
	}
	adapter, err := r.svc.registry.Get(symbol)
	if err != nil {
		return nil, err
	}

	txid, err := adapter.DoWithdraw(ctx, address, extra, amount, "cold storage sweep")
	if err != nil {
		return nil, err
	}

	row := &ledger.Transaction{
		Scope:    scope,
		Category: ledger.CategoryWithdraw,
		Symbol:   symbol,
		Amount:   amount.Neg(),
		Address:  address,
		Extra:    extra,
		TxID:     txid,
		Comment:  "cold storage sweep",
		Status:   ledger.StatusDone,
	}
	row.AddTag(ledger.TagColdStorage)

	err = r.svc.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		return r.svc.repo.CreateTransactionInTx(ctx, dbTx, row)
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(row.Category), string(ledger.StatusDone)).Inc()

	r.logger.Info("cold storage withdrawal broadcast",
		zap.String("scope", scope),
		zap.String("symbol", symbol),
		zap.String("address", address),
		zap.String("amount", amount.String()),
		zap.String("txid", txid),
	)
	return row, nil
}

// ColdDepositAddress returns the hot wallet address cold storage funds
// should be sent back to. The address is held under the empty account,
// so the matching deposit is recorded accountless and tagged.
func (r *Rebalancer) ColdDepositAddress(ctx context.Context, scope, symbol string) (*ledger.DepositAddress, error) {
	return r.svc.GetDepositAddress(ctx, scope, "", symbol)
}
