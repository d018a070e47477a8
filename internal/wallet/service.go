package wallet

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/custodia/walletcore/internal/adapters"
	"github.com/custodia/walletcore/internal/ledger"
	"github.com/custodia/walletcore/internal/wallet/events"
	"github.com/custodia/walletcore/pkg/errors"
	"github.com/custodia/walletcore/pkg/metrics"
)

// Notifier emits ledger lifecycle events. Satisfied by events.Bus.
type Notifier interface {
	Notify(ctx context.Context, event events.Event)
}

// Config carries the confirmation policy and fee schedule.
type Config struct {
	ConfirmWithdrawAdmin bool
	ConfirmWithdrawUser  bool
	ConfirmMoveAdmin     bool
	ConfirmMoveUser      bool

	// MaxRetries bounds how often a failed withdrawal may be pushed
	// back to pending.
	MaxRetries int

	// MoveFee is charged to the sender of every internal transfer.
	MoveFee decimal.Decimal

	// WithdrawFees maps symbol to the flat fee charged on withdrawals.
	WithdrawFees map[string]decimal.Decimal

	// ConfirmTargets maps symbol to the on-chain confirmation count at
	// which deposits and withdrawals are considered final. Zero means
	// finalize immediately.
	ConfirmTargets map[string]int
}

// Service is the transactional core. Every operation that touches
// ledger state runs inside a single database transaction; events are
// emitted only after that transaction commits.
type Service struct {
	repo     *ledger.Repository
	agg      *ledger.Aggregator
	registry *adapters.Registry
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	validate *validator.Validate
}

func NewService(repo *ledger.Repository, agg *ledger.Aggregator, registry *adapters.Registry, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Service{
		repo:     repo,
		agg:      agg,
		registry: registry,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

// WithdrawalRequest describes an on-chain withdrawal to create.
type WithdrawalRequest struct {
	Scope   string          `json:"scope" validate:"required"`
	Account string          `json:"account" validate:"required"`
	Symbol  string          `json:"symbol" validate:"required"`
	Address string          `json:"address" validate:"required"`
	Extra   string          `json:"extra"`
	Amount  decimal.Decimal `json:"amount" validate:"required"`
	Comment string          `json:"comment"`
	Tags    []string        `json:"tags"`
}

// TransferRequest describes an internal move between two accounts.
type TransferRequest struct {
	Scope       string          `json:"scope" validate:"required"`
	FromAccount string          `json:"from_account" validate:"required"`
	ToAccount   string          `json:"to_account" validate:"required"`
	Symbol      string          `json:"symbol" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Comment     string          `json:"comment"`
	Tags        []string        `json:"tags"`
}

// CreateWithdrawal records a debit of amount plus fee against the
// account and, when no confirmation is required, immediately hands the
// withdrawal to the coin adapter. The debit row is written even when
// the broadcast fails; the failure is reflected in its status.
func (s *Service) CreateWithdrawal(ctx context.Context, req WithdrawalRequest) (*ledger.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(errors.KindInvalidRequest, "invalid withdrawal request", err)
	}
	if !req.Amount.IsPositive() {
		return nil, errors.New(errors.KindInvalidRequest, "withdrawal amount must be positive")
	}
	if _, err := s.registry.Get(req.Symbol); err != nil {
		return nil, err
	}

	fee := s.cfg.WithdrawFees[req.Symbol]
	total := req.Amount.Add(fee)

	status := ledger.StatusPending
	if s.cfg.ConfirmWithdrawAdmin || s.cfg.ConfirmWithdrawUser {
		status = ledger.StatusUnconfirmed
	}

	row := &ledger.Transaction{
		Scope:    req.Scope,
		Category: ledger.CategoryWithdraw,
		Symbol:   req.Symbol,
		Amount:   total.Neg(),
		Fee:      fee,
		Account:  req.Account,
		Address:  req.Address,
		Extra:    req.Extra,
		Comment:  req.Comment,
		Tags:     strings.Join(req.Tags, " "),
		Status:   status,
	}

	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		available, err := s.agg.AvailableBalanceInTx(ctx, dbTx, req.Scope, req.Account, req.Symbol)
		if err != nil {
			return err
		}
		if available.LessThan(total) {
			return errors.Newf(errors.KindInsufficientBalance,
				"available balance %s is below requested %s %s",
				available.String(), total.String(), req.Symbol)
		}
		return s.repo.CreateTransactionInTx(ctx, dbTx, row)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal created",
		zap.Uint64("id", row.ID),
		zap.String("scope", req.Scope),
		zap.String("account", req.Account),
		zap.String("symbol", req.Symbol),
		zap.String("amount", row.Amount.String()),
		zap.String("status", string(row.Status)),
	)

	var execErr error
	if status == ledger.StatusPending {
		execErr = s.ExecuteWithdrawal(ctx, row.ID)
	}

	reloaded, err := s.repo.GetTransaction(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	return reloaded, execErr
}

// ExecuteWithdrawal hands a pending withdrawal to its coin adapter.
// A broadcast failure is committed as status failed with the retry
// counter bumped, and the adapter error is returned to the caller.
// Rows that already carry a backend txid are never resubmitted.
func (s *Service) ExecuteWithdrawal(ctx context.Context, id uint64) error {
	var (
		execErr error
		emit    *events.Event
	)
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, err := s.repo.GetTransactionForUpdateInTx(ctx, dbTx, id)
		if err != nil {
			return err
		}
		if row.Category != ledger.CategoryWithdraw {
			return errors.Newf(errors.KindInvalidRequest, "transaction %d is not a withdrawal", id)
		}
		if row.Status != ledger.StatusPending {
			execErr = errors.Newf(errors.KindStateConflict,
				"withdrawal %d is %s, not pending", id, row.Status)
			return nil
		}
		if row.TxID != "" {
			execErr = errors.Newf(errors.KindStateConflict,
				"withdrawal %d already broadcast as %s, refusing to resubmit", id, row.TxID)
			return nil
		}

		adapter, err := s.registry.Get(row.Symbol)
		if err != nil {
			return err
		}

		// The fee stays with the operator; only the net amount leaves
		// the hot wallet.
		sendAmount := row.Amount.Neg().Sub(row.Fee)
		txid, sendErr := adapter.DoWithdraw(ctx, row.Address, row.Extra, sendAmount, row.Comment)
		if sendErr != nil {
			if err := ledger.ApplyTransition(row, ledger.StatusFailed); err != nil {
				return err
			}
			row.Retries++
			if err := s.repo.UpdateTransactionInTx(ctx, dbTx, row); err != nil {
				return err
			}
			s.logger.Warn("withdrawal broadcast failed",
				zap.Uint64("id", row.ID),
				zap.String("symbol", row.Symbol),
				zap.Int("retries", row.Retries),
				zap.Error(sendErr),
			)
			// Returning nil commits the failure state; the adapter
			// error travels out of the closure separately.
			execErr = sendErr
			return nil
		}

		row.TxID = txid
		if s.confirmTarget(row.Symbol) <= 0 {
			if err := ledger.ApplyTransition(row, ledger.StatusDone); err != nil {
				return err
			}
			emit = s.eventFor(events.TypeWithdraw, row)
		}
		return s.repo.UpdateTransactionInTx(ctx, dbTx, row)
	})
	if err != nil {
		return err
	}
	if emit != nil {
		s.notifier.Notify(ctx, *emit)
	}
	return execErr
}

// CreateTransfer writes a matched debit/credit pair for an internal
// move. The two rows share a txid base and always change status
// together.
func (s *Service) CreateTransfer(ctx context.Context, req TransferRequest) (*ledger.Transaction, *ledger.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, errors.Wrap(errors.KindInvalidRequest, "invalid transfer request", err)
	}
	if !req.Amount.IsPositive() {
		return nil, nil, errors.New(errors.KindInvalidRequest, "transfer amount must be positive")
	}
	if req.FromAccount == req.ToAccount {
		return nil, nil, errors.New(errors.KindInvalidRequest, "transfer endpoints must differ")
	}

	fee := s.cfg.MoveFee
	total := req.Amount.Add(fee)
	base := "move-" + uuid.NewString()

	status := ledger.StatusPending
	if s.cfg.ConfirmMoveAdmin || s.cfg.ConfirmMoveUser {
		status = ledger.StatusUnconfirmed
	}

	send := &ledger.Transaction{
		Scope:        req.Scope,
		Category:     ledger.CategoryMove,
		Symbol:       req.Symbol,
		Amount:       total.Neg(),
		Fee:          fee,
		Account:      req.FromAccount,
		OtherAccount: req.ToAccount,
		TxID:         base + ledger.PairSuffixSend,
		Comment:      req.Comment,
		Tags:         strings.Join(req.Tags, " "),
		Status:       status,
	}
	recv := &ledger.Transaction{
		Scope:        req.Scope,
		Category:     ledger.CategoryMove,
		Symbol:       req.Symbol,
		Amount:       req.Amount,
		Account:      req.ToAccount,
		OtherAccount: req.FromAccount,
		TxID:         base + ledger.PairSuffixReceive,
		Comment:      req.Comment,
		Tags:         strings.Join(req.Tags, " "),
		Status:       status,
	}

	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		available, err := s.agg.AvailableBalanceInTx(ctx, dbTx, req.Scope, req.FromAccount, req.Symbol)
		if err != nil {
			return err
		}
		if available.LessThan(total) {
			return errors.Newf(errors.KindInsufficientBalance,
				"available balance %s is below requested %s %s",
				available.String(), total.String(), req.Symbol)
		}
		if err := s.repo.CreateTransactionInTx(ctx, dbTx, send); err != nil {
			return err
		}
		return s.repo.CreateTransactionInTx(ctx, dbTx, recv)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("transfer created",
		zap.String("scope", req.Scope),
		zap.String("from", req.FromAccount),
		zap.String("to", req.ToAccount),
		zap.String("symbol", req.Symbol),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(status)),
	)

	if status == ledger.StatusPending {
		if err := s.FinalizePair(ctx, send.ID); err != nil {
			return nil, nil, err
		}
	}

	sendRow, err := s.repo.GetTransaction(ctx, send.ID)
	if err != nil {
		return nil, nil, err
	}
	recvRow, err := s.repo.GetTransaction(ctx, recv.ID)
	if err != nil {
		return nil, nil, err
	}
	return sendRow, recvRow, nil
}

// FinalizePair moves both sides of a pending move or trade to done in
// one transaction. Neither side ever reaches done without the other.
func (s *Service) FinalizePair(ctx context.Context, id uint64) error {
	var emit []events.Event
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, partner, err := s.pairForUpdate(ctx, dbTx, id)
		if err != nil {
			return err
		}
		if partner == nil {
			return errors.Newf(errors.KindInvalidRequest, "transaction %d is not part of a pair", id)
		}
		if row.Status != ledger.StatusPending || partner.Status != ledger.StatusPending {
			return errors.Newf(errors.KindStateConflict,
				"pair %s is %s/%s, not pending", row.PairBase(), row.Status, partner.Status)
		}
		for _, side := range []*ledger.Transaction{row, partner} {
			if err := ledger.ApplyTransition(side, ledger.StatusDone); err != nil {
				return err
			}
			if err := s.repo.UpdateTransactionInTx(ctx, dbTx, side); err != nil {
				return err
			}
			eventType := events.TypeMoveReceive
			if side.IsDebit() {
				eventType = events.TypeMoveSend
			}
			emit = append(emit, *s.eventFor(eventType, side))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, event := range emit {
		s.notifier.Notify(ctx, event)
	}
	return nil
}

// Confirm records an admin or user confirmation. Confirmations apply
// to both sides of a pair, and once every required confirmation is
// present the transaction leaves unconfirmed and is carried forward.
func (s *Service) Confirm(ctx context.Context, id uint64, by ledger.ConfirmedBy) (*ledger.Transaction, error) {
	return s.setConfirmation(ctx, id, by, true)
}

// Unconfirm withdraws a previously given confirmation. Only rows still
// in unconfirmed accept it.
func (s *Service) Unconfirm(ctx context.Context, id uint64, by ledger.ConfirmedBy) (*ledger.Transaction, error) {
	return s.setConfirmation(ctx, id, by, false)
}

func (s *Service) setConfirmation(ctx context.Context, id uint64, by ledger.ConfirmedBy, value bool) (*ledger.Transaction, error) {
	var promoted *ledger.Transaction
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, partner, err := s.pairForUpdate(ctx, dbTx, id)
		if err != nil {
			return err
		}
		if !ledger.AcceptsConfirmation(row.Status) {
			return errors.Newf(errors.KindStateConflict,
				"transaction %d is %s and no longer accepts confirmation changes", id, row.Status)
		}

		sides := []*ledger.Transaction{row}
		if partner != nil {
			sides = append(sides, partner)
		}
		for _, side := range sides {
			switch by {
			case ledger.ConfirmedByAdmin:
				side.AdminConfirm = value
			case ledger.ConfirmedByUser:
				side.UserConfirm = value
			default:
				return errors.Newf(errors.KindInvalidRequest, "unknown confirmer %q", by)
			}
			// Only a confirmation that actually lifts this row out of
			// unconfirmed carries it forward; repeated confirms and
			// unconfirms on an in-flight row change flags only.
			if value && side.Status == ledger.StatusUnconfirmed && s.confirmationsMet(side) {
				if err := ledger.ApplyTransition(side, ledger.StatusPending); err != nil {
					return err
				}
				if side.ID == row.ID {
					promoted = row
				}
			}
			if err := s.repo.UpdateTransactionInTx(ctx, dbTx, side); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Promoted rows are carried forward outside the confirmation
	// transaction so a broadcast failure cannot roll back the
	// confirmation itself.
	var execErr error
	if promoted != nil {
		switch promoted.Category {
		case ledger.CategoryWithdraw:
			execErr = s.ExecuteWithdrawal(ctx, promoted.ID)
		case ledger.CategoryMove, ledger.CategoryTrade:
			execErr = s.FinalizePair(ctx, promoted.ID)
		}
	}

	reloaded, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return reloaded, execErr
}

// Cancel aborts a transaction that has not yet taken effect. Paired
// rows are cancelled together. Withdrawals that already carry a
// backend txid cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uint64) (*ledger.Transaction, error) {
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, partner, err := s.pairForUpdate(ctx, dbTx, id)
		if err != nil {
			return err
		}
		if !ledger.IsCancellable(row.Status) {
			return errors.Newf(errors.KindStateConflict,
				"transaction %d is %s and cannot be cancelled", id, row.Status)
		}
		if row.Category == ledger.CategoryWithdraw && row.TxID != "" {
			return errors.Newf(errors.KindStateConflict,
				"withdrawal %d already broadcast as %s and cannot be cancelled", id, row.TxID)
		}

		sides := []*ledger.Transaction{row}
		if partner != nil {
			sides = append(sides, partner)
		}
		for _, side := range sides {
			if err := ledger.ApplyTransition(side, ledger.StatusCancelled); err != nil {
				return err
			}
			if err := s.repo.UpdateTransactionInTx(ctx, dbTx, side); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetTransaction(ctx, id)
}

// Retry pushes a failed or cancelled transaction back to pending and
// carries it forward. The retry counter is not touched here; it only
// moves when a broadcast attempt actually fails.
func (s *Service) Retry(ctx context.Context, id uint64) (*ledger.Transaction, error) {
	var target *ledger.Transaction
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, partner, err := s.pairForUpdate(ctx, dbTx, id)
		if err != nil {
			return err
		}
		if !ledger.IsRetryable(row.Status) {
			return errors.Newf(errors.KindStateConflict,
				"transaction %d is %s and cannot be retried", id, row.Status)
		}
		if row.Retries >= s.cfg.MaxRetries {
			return errors.Newf(errors.KindExecutionFailure,
				"transaction %d exhausted its %d retries", id, s.cfg.MaxRetries)
		}
		if row.Category == ledger.CategoryWithdraw && row.TxID != "" {
			return errors.Newf(errors.KindStateConflict,
				"withdrawal %d already broadcast as %s and cannot be retried", id, row.TxID)
		}

		sides := []*ledger.Transaction{row}
		if partner != nil {
			sides = append(sides, partner)
		}
		for _, side := range sides {
			if err := ledger.ApplyTransition(side, ledger.StatusPending); err != nil {
				return err
			}
			if err := s.repo.UpdateTransactionInTx(ctx, dbTx, side); err != nil {
				return err
			}
		}
		target = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	var execErr error
	switch target.Category {
	case ledger.CategoryWithdraw:
		execErr = s.ExecuteWithdrawal(ctx, target.ID)
	case ledger.CategoryMove, ledger.CategoryTrade:
		execErr = s.FinalizePair(ctx, target.ID)
	}

	reloaded, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return reloaded, execErr
}

// RecordDeposit ingests one deposit discovered by an adapter cron run.
// It is idempotent on (scope, txid): a known txid only refreshes the
// confirmation count. Deposits to addresses the ledger never issued
// are ignored.
func (s *Service) RecordDeposit(ctx context.Context, notice adapters.DepositNotice) error {
	var emit *events.Event
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		existing, err := s.repo.GetByTxIDInTx(ctx, dbTx, notice.Scope, notice.TxID)
		if err != nil {
			return err
		}
		target := s.confirmTarget(notice.Symbol)

		if existing != nil {
			if existing.Confirmations == notice.Confirmations && existing.Status != ledger.StatusPending {
				return nil
			}
			existing.Confirmations = notice.Confirmations
			if existing.Status == ledger.StatusPending && notice.Confirmations >= target {
				if err := ledger.ApplyTransition(existing, ledger.StatusDone); err != nil {
					return err
				}
				emit = s.eventFor(events.TypeDeposit, existing)
			}
			return s.repo.UpdateTransactionInTx(ctx, dbTx, existing)
		}

		addr, err := s.repo.FindAddress(ctx, notice.Scope, notice.Symbol, notice.Address, notice.Extra)
		if err != nil {
			return err
		}
		if addr == nil {
			// Not one of ours; the backend wallet may hold unrelated
			// funds.
			return nil
		}

		status := ledger.StatusPending
		if notice.Confirmations >= target {
			status = ledger.StatusDone
		}
		row := &ledger.Transaction{
			Scope:         notice.Scope,
			Category:      ledger.CategoryDeposit,
			Symbol:        notice.Symbol,
			Amount:        notice.Amount,
			Account:       addr.Account,
			Address:       notice.Address,
			Extra:         notice.Extra,
			TxID:          notice.TxID,
			Comment:       notice.Comment,
			Confirmations: notice.Confirmations,
			Status:        status,
		}
		if addr.Account == "" {
			row.AddTag(ledger.TagColdStorage)
		}
		if err := s.repo.CreateTransactionInTx(ctx, dbTx, row); err != nil {
			return err
		}
		metrics.Transitions.WithLabelValues(string(row.Category), string(status)).Inc()
		if status == ledger.StatusDone {
			emit = s.eventFor(events.TypeDeposit, row)
		}
		s.logger.Info("deposit recorded",
			zap.String("scope", notice.Scope),
			zap.String("symbol", notice.Symbol),
			zap.String("txid", notice.TxID),
			zap.String("account", addr.Account),
			zap.String("amount", notice.Amount.String()),
			zap.String("status", string(status)),
		)
		return nil
	})
	if err != nil {
		return err
	}
	if emit != nil {
		s.notifier.Notify(ctx, *emit)
	}
	return nil
}

// RecordWithdrawalUpdate refreshes the confirmation count of a
// broadcast withdrawal and finalizes it once the target is reached.
func (s *Service) RecordWithdrawalUpdate(ctx context.Context, update adapters.WithdrawalUpdate) error {
	var emit *events.Event
	err := s.repo.Transaction(ctx, func(dbTx *gorm.DB) error {
		row, err := s.repo.GetByTxIDInTx(ctx, dbTx, update.Scope, update.TxID)
		if err != nil {
			return err
		}
		if row == nil || row.Category != ledger.CategoryWithdraw {
			return nil
		}
		if row.Confirmations == update.Confirmations && row.Status != ledger.StatusPending {
			return nil
		}
		row.Confirmations = update.Confirmations
		if row.Status == ledger.StatusPending && update.Confirmations >= s.confirmTarget(update.Symbol) {
			if err := ledger.ApplyTransition(row, ledger.StatusDone); err != nil {
				return err
			}
			emit = s.eventFor(events.TypeWithdraw, row)
		}
		return s.repo.UpdateTransactionInTx(ctx, dbTx, row)
	})
	if err != nil {
		return err
	}
	if emit != nil {
		s.notifier.Notify(ctx, *emit)
	}
	return nil
}

// GetDepositAddress returns the account's current deposit address,
// asking the adapter for a fresh one on first use.
func (s *Service) GetDepositAddress(ctx context.Context, scope, account, symbol string) (*ledger.DepositAddress, error) {
	addr, err := s.repo.CurrentAddress(ctx, scope, account, symbol)
	if err != nil {
		return nil, err
	}
	if addr != nil {
		return addr, nil
	}
	return s.RotateDepositAddress(ctx, scope, account, symbol)
}

// RotateDepositAddress fetches a new address from the adapter and makes
// it current. Old addresses stay resolvable so late deposits to them
// still credit the account.
func (s *Service) RotateDepositAddress(ctx context.Context, scope, account, symbol string) (*ledger.DepositAddress, error) {
	adapter, err := s.registry.Get(symbol)
	if err != nil {
		return nil, err
	}
	address, extra, err := adapter.GetNewAddress(ctx, scope)
	if err != nil {
		return nil, err
	}
	rotated, err := s.repo.RotateAddress(ctx, scope, account, symbol, address, extra)
	if err != nil {
		return nil, err
	}
	s.logger.Info("deposit address rotated",
		zap.String("scope", scope),
		zap.String("account", account),
		zap.String("symbol", symbol),
		zap.String("address", address),
	)
	return rotated, nil
}

// Balance reports the sum over the account's done rows.
func (s *Service) Balance(ctx context.Context, scope, account, symbol string) (decimal.Decimal, error) {
	return s.agg.Balance(ctx, scope, account, symbol)
}

// AvailableBalance additionally subtracts holds from rows still in
// flight.
func (s *Service) AvailableBalance(ctx context.Context, scope, account, symbol string) (decimal.Decimal, error) {
	return s.agg.AvailableBalance(ctx, scope, account, symbol)
}

// ListTransactions pages through an account's ledger history.
func (s *Service) ListTransactions(ctx context.Context, scope, account string, limit, offset int) ([]*ledger.Transaction, error) {
	return s.repo.ListByAccount(ctx, scope, account, limit, offset)
}

// GetTransaction fetches one ledger row by id.
func (s *Service) GetTransaction(ctx context.Context, id uint64) (*ledger.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// pairForUpdate locks the row and, when it belongs to a pair, loads its
// partner in the same transaction. The partner is nil for unpaired
// rows.
func (s *Service) pairForUpdate(ctx context.Context, dbTx *gorm.DB, id uint64) (*ledger.Transaction, *ledger.Transaction, error) {
	row, err := s.repo.GetTransactionForUpdateInTx(ctx, dbTx, id)
	if err != nil {
		return nil, nil, err
	}
	if !row.IsPaired() {
		return row, nil, nil
	}
	partner, err := s.repo.GetByTxIDInTx(ctx, dbTx, row.Scope, row.PartnerTxID())
	if err != nil {
		return nil, nil, err
	}
	if partner == nil {
		return nil, nil, errors.Newf(errors.KindPersistenceError,
			"transaction %d is paired but %s has no row", id, row.PartnerTxID())
	}
	return row, partner, nil
}

func (s *Service) confirmationsMet(tx *ledger.Transaction) bool {
	switch tx.Category {
	case ledger.CategoryWithdraw:
		return (!s.cfg.ConfirmWithdrawAdmin || tx.AdminConfirm) &&
			(!s.cfg.ConfirmWithdrawUser || tx.UserConfirm)
	case ledger.CategoryMove, ledger.CategoryTrade:
		return (!s.cfg.ConfirmMoveAdmin || tx.AdminConfirm) &&
			(!s.cfg.ConfirmMoveUser || tx.UserConfirm)
	}
	return true
}

func (s *Service) confirmTarget(symbol string) int {
	return s.cfg.ConfirmTargets[symbol]
}

func (s *Service) eventFor(eventType string, tx *ledger.Transaction) *events.Event {
	return &events.Event{
		Type:          eventType,
		Scope:         tx.Scope,
		Account:       tx.Account,
		OtherAccount:  tx.OtherAccount,
		Symbol:        tx.Symbol,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		TxID:          tx.TxID,
		Address:       tx.Address,
		Status:        string(tx.Status),
		Confirmations: tx.Confirmations,
	}
}
