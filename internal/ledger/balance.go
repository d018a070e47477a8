package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// amountRow carries a single amount column value out of the store.
type amountRow struct {
	Amount decimal.Decimal
}

// Aggregator derives balances from ledger rows. Results are computed on
// demand from the store and never cached; sums run in Go so decimal
// precision does not depend on the database engine.
type Aggregator struct {
	repo *Repository
}

// NewAggregator creates a balance aggregator over the given repository.
func NewAggregator(repo *Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Balance returns the confirmed balance of (account, symbol): the sum of
// amounts over done rows. Fees are already netted into amounts.
func (a *Aggregator) Balance(ctx context.Context, scope, account, symbol string) (decimal.Decimal, error) {
	return a.sum(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ? AND account = ? AND symbol = ? AND status = ?",
			scope, account, symbol, StatusDone)
	})
}

// AvailableBalance returns the confirmed balance minus the amounts
// reserved by outstanding unconfirmed/pending debits.
func (a *Aggregator) AvailableBalance(ctx context.Context, scope, account, symbol string) (decimal.Decimal, error) {
	balance, err := a.Balance(ctx, scope, account, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	reserved, err := a.sum(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ? AND account = ? AND symbol = ? AND status IN ? AND amount < 0",
			scope, account, symbol, []Status{StatusUnconfirmed, StatusPending})
	})
	if err != nil {
		return decimal.Zero, err
	}
	// reserved is a sum of negative amounts.
	return balance.Add(reserved), nil
}

// AvailableBalanceInTx computes the available balance inside a database
// transaction so a reservation check and the row insert it guards are
// atomic.
func (a *Aggregator) AvailableBalanceInTx(ctx context.Context, dbTx *gorm.DB, scope, account, symbol string) (decimal.Decimal, error) {
	balance, err := a.sumInTx(ctx, dbTx, func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ? AND account = ? AND symbol = ? AND status = ?",
			scope, account, symbol, StatusDone)
	})
	if err != nil {
		return decimal.Zero, err
	}
	reserved, err := a.sumInTx(ctx, dbTx, func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ? AND account = ? AND symbol = ? AND status IN ? AND amount < 0",
			scope, account, symbol, []Status{StatusUnconfirmed, StatusPending})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Add(reserved), nil
}

// SumOfUserBalances returns the total confirmed user holdings of a
// symbol across all accounts. Cold-storage rows carry no account and are
// excluded.
func (a *Aggregator) SumOfUserBalances(ctx context.Context, scope, symbol string) (decimal.Decimal, error) {
	return a.sum(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ? AND symbol = ? AND status = ? AND account <> ''",
			scope, symbol, StatusDone)
	})
}

func (a *Aggregator) sum(ctx context.Context, scoped func(*gorm.DB) *gorm.DB) (decimal.Decimal, error) {
	return a.sumInTx(ctx, a.repo.db, scoped)
}

func (a *Aggregator) sumInTx(ctx context.Context, dbTx *gorm.DB, scoped func(*gorm.DB) *gorm.DB) (decimal.Decimal, error) {
	rows, err := a.repo.pluckAmounts(scoped(dbTx.WithContext(ctx)))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}
