package wallet

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/custodia/walletcore/internal/adapters"
	"github.com/custodia/walletcore/internal/ledger"
	"github.com/custodia/walletcore/internal/wallet/events"
	"github.com/custodia/walletcore/pkg/errors"
)

type fakeWithdraw struct {
	Address string
	Amount  decimal.Decimal
}

// fakeAdapter is an in-memory CoinAdapter for tests.
type fakeAdapter struct {
	symbol      string
	balance     decimal.Decimal
	withdrawErr error
	withdraws   []fakeWithdraw
	addrSeq     int
	txidSeq     int
}

func newFakeAdapter(symbol string) *fakeAdapter {
	return &fakeAdapter{symbol: symbol}
}

func (f *fakeAdapter) Symbol() string { return f.symbol }
func (f *fakeAdapter) Name() string   { return "Fake " + f.symbol }

func (f *fakeAdapter) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeAdapter) GetNewAddress(ctx context.Context, scope string) (string, string, error) {
	f.addrSeq++
	return fmt.Sprintf("%s-addr-%d", f.symbol, f.addrSeq), "", nil
}

func (f *fakeAdapter) DoWithdraw(ctx context.Context, address, extra string, amount decimal.Decimal, comment string) (string, error) {
	if f.withdrawErr != nil {
		return "", f.withdrawErr
	}
	f.withdraws = append(f.withdraws, fakeWithdraw{Address: address, Amount: amount})
	f.txidSeq++
	return fmt.Sprintf("broadcast-%d", f.txidSeq), nil
}

func (f *fakeAdapter) Cron(ctx context.Context) error { return nil }

func (f *fakeAdapter) DecimalPlaces() int32 { return 8 }

func (f *fakeAdapter) FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(8) + " " + f.symbol
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) byType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T, cfg Config) (*Service, *fakeAdapter, *recordingNotifier) {
	t.Helper()
	// An in-memory sqlite DSN gives each pooled connection its own empty
	// database; use a per-test file so every connection sees one schema.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "wallet.db")), &gorm.Config{})
	require.NoError(t, err)
	repo := ledger.NewRepository(db, zap.NewNop())
	require.NoError(t, repo.AutoMigrate())
	agg := ledger.NewAggregator(repo)

	registry := adapters.NewRegistry()
	fake := newFakeAdapter("BTC")
	registry.Register(fake)

	notifier := &recordingNotifier{}
	svc := NewService(repo, agg, registry, notifier, cfg, zap.NewNop())
	return svc, fake, notifier
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func seedDeposit(t *testing.T, svc *Service, account, amount, txid string) {
	t.Helper()
	require.NoError(t, svc.repo.CreateTransaction(context.Background(), &ledger.Transaction{
		Scope:    "main",
		Category: ledger.CategoryDeposit,
		Symbol:   "BTC",
		Amount:   dec(t, amount),
		Account:  account,
		TxID:     txid,
		Status:   ledger.StatusDone,
	}))
}

func TestCreateWithdrawalHappyPath(t *testing.T) {
	svc, fake, notifier := newTestService(t, Config{
		WithdrawFees: map[string]decimal.Decimal{"BTC": dec(t, "0.0005")},
	})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1.5"),
	})
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, ledger.StatusDone, row.Status)
	assert.True(t, row.Amount.Equal(dec(t, "-1.5005")), "got %s", row.Amount)
	assert.True(t, row.Fee.Equal(dec(t, "0.0005")))
	assert.NotEmpty(t, row.TxID)
	assert.Zero(t, row.Retries)

	// The adapter sees the net amount; the fee stays with the operator.
	require.Len(t, fake.withdraws, 1)
	assert.Equal(t, "dest-addr", fake.withdraws[0].Address)
	assert.True(t, fake.withdraws[0].Amount.Equal(dec(t, "1.5")))

	balance, err := svc.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "8.4995")), "got %s", balance)

	assert.Len(t, notifier.byType(events.TypeWithdraw), 1)
}

func TestCreateWithdrawalInsufficientBalance(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "1", "seed-1")

	_, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "2"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindInsufficientBalance, errors.KindOf(err))
	assert.Empty(t, fake.withdraws)

	rows, err := svc.ListTransactions(ctx, "main", "alice", 10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCreateWithdrawalUnknownSymbol(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, err := svc.CreateWithdrawal(context.Background(), WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "DOGE",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidRequest, errors.KindOf(err))
}

func TestWithdrawalConfirmationFlow(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{
		ConfirmWithdrawAdmin: true,
		ConfirmWithdrawUser:  true,
	})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnconfirmed, row.Status)
	assert.Empty(t, fake.withdraws)

	// The hold applies while the withdrawal waits for confirmation.
	available, err := svc.AvailableBalance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, available.Equal(dec(t, "9")), "got %s", available)

	row, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnconfirmed, row.Status)
	assert.True(t, row.AdminConfirm)
	assert.Empty(t, fake.withdraws)

	row, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByUser)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, row.Status)
	require.Len(t, fake.withdraws, 1)
}

func TestUnconfirmClearsFlag(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{
		ConfirmWithdrawAdmin: true,
		ConfirmWithdrawUser:  true,
	})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)

	row, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.True(t, row.AdminConfirm)

	row, err = svc.Unconfirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.False(t, row.AdminConfirm)
	assert.Equal(t, ledger.StatusUnconfirmed, row.Status)
	assert.Empty(t, fake.withdraws)
}

func TestConfirmIdempotentAfterBroadcast(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{
		ConfirmWithdrawAdmin: true,
		ConfirmTargets:       map[string]int{"BTC": 2},
	})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)

	// The confirmation broadcasts; with a confirm target the row waits
	// in pending with its txid set.
	row, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, row.Status)
	require.NotEmpty(t, row.TxID)
	require.Len(t, fake.withdraws, 1)

	// Repeating the confirmation only re-records the flag; it must not
	// resubmit or conflict.
	row, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.True(t, row.AdminConfirm)
	require.Len(t, fake.withdraws, 1)

	// An unconfirm on the in-flight row clears the flag and nothing
	// else; the broadcast already happened.
	row, err = svc.Unconfirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)
	assert.False(t, row.AdminConfirm)
	assert.Equal(t, ledger.StatusPending, row.Status)
	require.Len(t, fake.withdraws, 1)
}

func TestFailedWithdrawalCommitsFailureAndRetries(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{MaxRetries: 3})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	fake.withdrawErr = errors.New(errors.KindBackendUnavailable, "node is down")

	row, execErr := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.Error(t, execErr)
	require.NotNil(t, row)

	// The debit row survives the failed broadcast.
	assert.Equal(t, ledger.StatusFailed, row.Status)
	assert.Equal(t, 1, row.Retries)
	assert.Empty(t, row.TxID)

	// Failed rows hold no reservation.
	available, err := svc.AvailableBalance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, available.Equal(dec(t, "10")), "got %s", available)

	// A retry after the backend recovers completes the withdrawal
	// without touching the counter.
	fake.withdrawErr = nil
	row, err = svc.Retry(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, row.Status)
	assert.Equal(t, 1, row.Retries)
	require.Len(t, fake.withdraws, 1)
}

func TestRetryExhaustion(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{MaxRetries: 2})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	fake.withdrawErr = errors.New(errors.KindBackendUnavailable, "node is down")

	row, execErr := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.Error(t, execErr)
	assert.Equal(t, 1, row.Retries)

	_, err := svc.Retry(ctx, row.ID)
	require.Error(t, err)
	assert.Equal(t, 2, mustGet(t, svc, row.ID).Retries)

	// Two failures against MaxRetries=2 exhaust the budget.
	_, err = svc.Retry(ctx, row.ID)
	require.Error(t, err)
	assert.Equal(t, errors.KindExecutionFailure, errors.KindOf(err))
}

func mustGet(t *testing.T, svc *Service, id uint64) *ledger.Transaction {
	t.Helper()
	row, err := svc.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return row
}

func TestCancelGuards(t *testing.T) {
	svc, _, _ := newTestService(t, Config{ConfirmWithdrawAdmin: true})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, cancelled.Status)

	// Cancelling again conflicts.
	_, err = svc.Cancel(ctx, row.ID)
	require.Error(t, err)
	assert.Equal(t, errors.KindStateConflict, errors.KindOf(err))

	// The reservation is released.
	available, err := svc.AvailableBalance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, available.Equal(dec(t, "10")))
}

func TestCancelRefusesBroadcastWithdrawal(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	row := &ledger.Transaction{
		Scope: "main", Category: ledger.CategoryWithdraw, Symbol: "BTC",
		Amount: dec(t, "-1"), Account: "alice", TxID: "already-sent",
		Status: ledger.StatusPending,
	}
	require.NoError(t, svc.repo.CreateTransaction(ctx, row))

	_, err := svc.Cancel(ctx, row.ID)
	require.Error(t, err)
	assert.Equal(t, errors.KindStateConflict, errors.KindOf(err))
}

func TestDoneWithdrawalIsImmutable(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusDone, row.Status)

	_, err = svc.Cancel(ctx, row.ID)
	assert.Equal(t, errors.KindStateConflict, errors.KindOf(err))
	_, err = svc.Retry(ctx, row.ID)
	assert.Equal(t, errors.KindStateConflict, errors.KindOf(err))
	_, err = svc.Confirm(ctx, row.ID, ledger.ConfirmedByAdmin)
	assert.Equal(t, errors.KindStateConflict, errors.KindOf(err))
}

func TestTransferPairReachesDoneTogether(t *testing.T) {
	svc, _, notifier := newTestService(t, Config{MoveFee: dec(t, "0.1")})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	send, recv, err := svc.CreateTransfer(ctx, TransferRequest{
		Scope: "main", FromAccount: "alice", ToAccount: "bob",
		Symbol: "BTC", Amount: dec(t, "2"),
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusDone, send.Status)
	assert.Equal(t, ledger.StatusDone, recv.Status)
	assert.Equal(t, send.PairBase(), recv.PairBase())
	assert.True(t, send.Amount.Equal(dec(t, "-2.1")), "got %s", send.Amount)
	assert.True(t, recv.Amount.Equal(dec(t, "2")))
	assert.True(t, recv.Fee.IsZero())

	aliceBalance, err := svc.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, aliceBalance.Equal(dec(t, "7.9")), "got %s", aliceBalance)

	bobBalance, err := svc.Balance(ctx, "main", "bob", "BTC")
	require.NoError(t, err)
	assert.True(t, bobBalance.Equal(dec(t, "2")))

	assert.Len(t, notifier.byType(events.TypeMoveSend), 1)
	assert.Len(t, notifier.byType(events.TypeMoveReceive), 1)
}

func TestTransferConfirmationAppliesToBothSides(t *testing.T) {
	svc, _, _ := newTestService(t, Config{ConfirmMoveAdmin: true})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	send, recv, err := svc.CreateTransfer(ctx, TransferRequest{
		Scope: "main", FromAccount: "alice", ToAccount: "bob",
		Symbol: "BTC", Amount: dec(t, "2"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnconfirmed, send.Status)
	assert.Equal(t, ledger.StatusUnconfirmed, recv.Status)

	// The receive side does not add to bob's balance yet.
	bobBalance, err := svc.Balance(ctx, "main", "bob", "BTC")
	require.NoError(t, err)
	assert.True(t, bobBalance.IsZero())

	// Confirming either side settles both.
	_, err = svc.Confirm(ctx, recv.ID, ledger.ConfirmedByAdmin)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusDone, mustGet(t, svc, send.ID).Status)
	assert.Equal(t, ledger.StatusDone, mustGet(t, svc, recv.ID).Status)
}

func TestTransferCancelCancelsBothSides(t *testing.T) {
	svc, _, _ := newTestService(t, Config{ConfirmMoveAdmin: true})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	send, recv, err := svc.CreateTransfer(ctx, TransferRequest{
		Scope: "main", FromAccount: "alice", ToAccount: "bob",
		Symbol: "BTC", Amount: dec(t, "2"),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, send.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, mustGet(t, svc, send.ID).Status)
	assert.Equal(t, ledger.StatusCancelled, mustGet(t, svc, recv.ID).Status)
}

func TestTransferToSelfRejected(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})

	_, _, err := svc.CreateTransfer(context.Background(), TransferRequest{
		Scope: "main", FromAccount: "alice", ToAccount: "alice",
		Symbol: "BTC", Amount: dec(t, "1"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidRequest, errors.KindOf(err))
}

func TestRecordDepositLifecycle(t *testing.T) {
	svc, _, notifier := newTestService(t, Config{
		ConfirmTargets: map[string]int{"BTC": 2},
	})
	ctx := context.Background()

	addr, err := svc.RotateDepositAddress(ctx, "main", "alice", "BTC")
	require.NoError(t, err)

	notice := adapters.DepositNotice{
		Scope: "main", Symbol: "BTC", TxID: "dep-1",
		Address: addr.Address, Amount: dec(t, "0.75"), Confirmations: 0,
	}
	require.NoError(t, svc.RecordDeposit(ctx, notice))

	row, err := svc.repo.GetByTxID(ctx, "main", "dep-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, ledger.StatusPending, row.Status)
	assert.Equal(t, "alice", row.Account)
	assert.Empty(t, notifier.byType(events.TypeDeposit))

	// Repeated cron delivery of the same state changes nothing.
	require.NoError(t, svc.RecordDeposit(ctx, notice))
	rows, err := svc.repo.ListAll(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// Reaching the confirmation target finalizes and notifies once.
	notice.Confirmations = 2
	require.NoError(t, svc.RecordDeposit(ctx, notice))
	require.NoError(t, svc.RecordDeposit(ctx, notice))

	row, err = svc.repo.GetByTxID(ctx, "main", "dep-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDone, row.Status)
	assert.Equal(t, 2, row.Confirmations)
	assert.Len(t, notifier.byType(events.TypeDeposit), 1)

	balance, err := svc.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "0.75")))
}

func TestRecordDepositToOldAddressStillCredits(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	first, err := svc.RotateDepositAddress(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	_, err = svc.RotateDepositAddress(ctx, "main", "alice", "BTC")
	require.NoError(t, err)

	require.NoError(t, svc.RecordDeposit(ctx, adapters.DepositNotice{
		Scope: "main", Symbol: "BTC", TxID: "late-1",
		Address: first.Address, Amount: dec(t, "1"), Confirmations: 6,
	}))

	balance, err := svc.Balance(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "1")))
}

func TestRecordDepositUnknownAddressIgnored(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()

	require.NoError(t, svc.RecordDeposit(ctx, adapters.DepositNotice{
		Scope: "main", Symbol: "BTC", TxID: "stray-1",
		Address: "not-ours", Amount: dec(t, "1"), Confirmations: 6,
	}))

	rows, err := svc.repo.ListAll(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecordWithdrawalUpdateFinalizes(t *testing.T) {
	svc, _, notifier := newTestService(t, Config{
		ConfirmTargets: map[string]int{"BTC": 2},
	})
	ctx := context.Background()
	seedDeposit(t, svc, "alice", "10", "seed-1")

	row, err := svc.CreateWithdrawal(ctx, WithdrawalRequest{
		Scope: "main", Account: "alice", Symbol: "BTC",
		Address: "dest-addr", Amount: dec(t, "1"),
	})
	require.NoError(t, err)
	// With a confirmation target the broadcast leaves the row pending.
	assert.Equal(t, ledger.StatusPending, row.Status)
	require.NotEmpty(t, row.TxID)
	assert.Empty(t, notifier.byType(events.TypeWithdraw))

	require.NoError(t, svc.RecordWithdrawalUpdate(ctx, adapters.WithdrawalUpdate{
		Scope: "main", Symbol: "BTC", TxID: row.TxID, Confirmations: 1,
	}))
	assert.Equal(t, ledger.StatusPending, mustGet(t, svc, row.ID).Status)

	require.NoError(t, svc.RecordWithdrawalUpdate(ctx, adapters.WithdrawalUpdate{
		Scope: "main", Symbol: "BTC", TxID: row.TxID, Confirmations: 2,
	}))
	final := mustGet(t, svc, row.ID)
	assert.Equal(t, ledger.StatusDone, final.Status)
	assert.Equal(t, 2, final.Confirmations)
	assert.Len(t, notifier.byType(events.TypeWithdraw), 1)
}

func TestGetDepositAddressRotatesOnFirstUse(t *testing.T) {
	svc, fake, _ := newTestService(t, Config{})
	ctx := context.Background()

	addr, err := svc.GetDepositAddress(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.Equal(t, "BTC-addr-1", addr.Address)

	// Subsequent calls return the same address without hitting the
	// backend again.
	again, err := svc.GetDepositAddress(ctx, "main", "alice", "BTC")
	require.NoError(t, err)
	assert.Equal(t, addr.Address, again.Address)
	assert.Equal(t, 1, fake.addrSeq)
}
