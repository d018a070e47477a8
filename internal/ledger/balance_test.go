package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *Repository, rows ...*Transaction) {
	t.Helper()
	ctx := context.Background()
	for _, row := range rows {
		require.NoError(t, repo.CreateTransaction(ctx, row))
	}
}

func TestBalanceSumsDoneRowsOnly(t *testing.T) {
	repo := newTestRepo(t)
	agg := NewAggregator(repo)
	ctx := context.Background()

	seed(t, repo,
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "2"), Account: "alice", TxID: "d1", Status: StatusDone},
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "1"), Account: "alice", TxID: "d2", Status: StatusPending},
		&Transaction{Scope: "main", Category: CategoryWithdraw, Symbol: "BTC",
			Amount: dec(t, "-0.5"), Fee: dec(t, "0.0005"), Account: "alice", TxID: "w1", Status: StatusDone},
	)

	balance, err := agg.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "1.5")), "got %s", balance)
}

func TestAvailableBalanceReservesInFlightDebits(t *testing.T) {
	repo := newTestRepo(t)
	agg := NewAggregator(repo)
	ctx := context.Background()

	seed(t, repo,
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "10"), Account: "alice", TxID: "d1", Status: StatusDone},
		// Fee already netted into the amount.
		&Transaction{Scope: "main", Category: CategoryWithdraw, Symbol: "BTC",
			Amount: dec(t, "-1.5005"), Fee: dec(t, "0.0005"), Account: "alice", Status: StatusPending},
		// Inbound pending credits do not add to availability.
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "3"), Account: "alice", TxID: "d2", Status: StatusPending},
	)

	balance, err := agg.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "10")), "got %s", balance)

	available, err := agg.AvailableBalance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, available.Equal(dec(t, "8.4995")), "got %s", available)
}

func TestAvailableBalanceCountsUnconfirmedDebits(t *testing.T) {
	repo := newTestRepo(t)
	agg := NewAggregator(repo)
	ctx := context.Background()

	seed(t, repo,
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "5"), Account: "alice", TxID: "d1", Status: StatusDone},
		&Transaction{Scope: "main", Category: CategoryMove, Symbol: "BTC",
			Amount: dec(t, "-2"), Account: "alice", OtherAccount: "bob",
			TxID: "move-1-send", Status: StatusUnconfirmed},
	)

	available, err := agg.AvailableBalance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, available.Equal(dec(t, "3")), "got %s", available)
}

func TestSumOfUserBalancesExcludesColdStorage(t *testing.T) {
	repo := newTestRepo(t)
	agg := NewAggregator(repo)
	ctx := context.Background()

	cold := &Transaction{Scope: "main", Category: CategoryWithdraw, Symbol: "BTC",
		Amount: dec(t, "-4"), TxID: "cs1", Status: StatusDone}
	cold.AddTag(TagColdStorage)

	seed(t, repo,
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "6"), Account: "alice", TxID: "d1", Status: StatusDone},
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "4"), Account: "bob", TxID: "d2", Status: StatusDone},
		cold,
	)

	total, err := agg.SumOfUserBalances(ctx, "main", "BTC")
	require.NoError(t, err)
	assert.True(t, total.Equal(dec(t, "10")), "got %s", total)
}

func TestBalanceScopesAreIsolated(t *testing.T) {
	repo := newTestRepo(t)
	agg := NewAggregator(repo)
	ctx := context.Background()

	seed(t, repo,
		&Transaction{Scope: "main", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "1"), Account: "alice", TxID: "d1", Status: StatusDone},
		&Transaction{Scope: "staging", Category: CategoryDeposit, Symbol: "BTC",
			Amount: dec(t, "9"), Account: "alice", TxID: "d1", Status: StatusDone},
	)

	balance, err := agg.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "1")), "got %s", balance)
}
