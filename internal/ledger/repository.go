package ledger

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/custodia/walletcore/pkg/errors"
)

// Repository is the data access layer for the ledger store.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRepository creates a new ledger repository.
func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// AutoMigrate creates or updates the ledger tables.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Transaction{}, &DepositAddress{})
}

// Transaction runs fn inside a database transaction. All multi-row
// mutations (pair updates, address rotation, balance check-and-insert)
// go through here so they commit or roll back atomically.
func (r *Repository) Transaction(ctx context.Context, fn func(dbTx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Transaction operations

// CreateTransaction inserts a new ledger row.
func (r *Repository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return errors.Wrap(errors.KindPersistenceError, "failed to create ledger transaction", err)
	}
	return nil
}

// CreateTransactionInTx inserts a new ledger row within a database
// transaction.
func (r *Repository) CreateTransactionInTx(ctx context.Context, dbTx *gorm.DB, tx *Transaction) error {
	if err := dbTx.WithContext(ctx).Create(tx).Error; err != nil {
		return errors.Wrap(errors.KindPersistenceError, "failed to create ledger transaction", err)
	}
	return nil
}

// GetTransaction retrieves a ledger row by id.
func (r *Repository) GetTransaction(ctx context.Context, id uint64) (*Transaction, error) {
	var tx Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// lockForUpdate adds a SELECT ... FOR UPDATE clause. The sqlite driver
// drops it, so tests run unlocked while postgres serializes per row.
func lockForUpdate(dbTx *gorm.DB) *gorm.DB {
	return dbTx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetTransactionForUpdateInTx retrieves a ledger row with a row lock
// within a database transaction.
func (r *Repository) GetTransactionForUpdateInTx(ctx context.Context, dbTx *gorm.DB, id uint64) (*Transaction, error) {
	var tx Transaction
	err := lockForUpdate(dbTx.WithContext(ctx)).
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByTxID retrieves a ledger row by its external transaction id.
func (r *Repository) GetByTxID(ctx context.Context, scope, txid string) (*Transaction, error) {
	return r.GetByTxIDInTx(ctx, r.db, scope, txid)
}

// GetByTxIDInTx retrieves a ledger row by external transaction id within
// a database transaction. Returns nil without error when no row matches.
func (r *Repository) GetByTxIDInTx(ctx context.Context, dbTx *gorm.DB, scope, txid string) (*Transaction, error) {
	var tx Transaction
	err := dbTx.WithContext(ctx).
		Where("scope = ? AND txid = ?", scope, txid).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateTransactionInTx persists row changes within a database
// transaction.
func (r *Repository) UpdateTransactionInTx(ctx context.Context, dbTx *gorm.DB, tx *Transaction) error {
	if err := dbTx.WithContext(ctx).Save(tx).Error; err != nil {
		return errors.Wrap(errors.KindPersistenceError, "failed to update ledger transaction", err)
	}
	return nil
}

// ListByAccount retrieves the transactions of one account, newest first.
func (r *Repository) ListByAccount(ctx context.Context, scope, account string, limit, offset int) ([]*Transaction, error) {
	var txs []*Transaction
	err := r.db.WithContext(ctx).
		Where("scope = ? AND account = ?", scope, account).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	return txs, err
}

// ListByStatus retrieves all transactions currently in one of the given
// statuses.
func (r *Repository) ListByStatus(ctx context.Context, scope string, statuses []Status) ([]*Transaction, error) {
	var txs []*Transaction
	err := r.db.WithContext(ctx).
		Where("scope = ? AND status IN ?", scope, statuses).
		Order("id").
		Find(&txs).Error
	return txs, err
}

// ListAll retrieves every transaction of a scope in insertion order. Used
// by the CSV export.
func (r *Repository) ListAll(ctx context.Context, scope string) ([]*Transaction, error) {
	var txs []*Transaction
	err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("id").
		Find(&txs).Error
	return txs, err
}

// Address operations

// CreateAddressInTx inserts a deposit address within a database
// transaction.
func (r *Repository) CreateAddressInTx(ctx context.Context, dbTx *gorm.DB, addr *DepositAddress) error {
	if err := dbTx.WithContext(ctx).Create(addr).Error; err != nil {
		return errors.Wrap(errors.KindPersistenceError, "failed to create deposit address", err)
	}
	return nil
}

// CurrentAddress returns the active deposit address for (account,
// symbol), or nil when none has been assigned yet.
func (r *Repository) CurrentAddress(ctx context.Context, scope, account, symbol string) (*DepositAddress, error) {
	var addr DepositAddress
	err := r.db.WithContext(ctx).
		Where("scope = ? AND account = ? AND symbol = ? AND status = ?", scope, account, symbol, AddressStatusCurrent).
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &addr, nil
}

// FindAddress resolves an on-chain address back to its owner. Old
// addresses still resolve so deposits to them keep crediting the same
// account.
func (r *Repository) FindAddress(ctx context.Context, scope, symbol, address, extra string) (*DepositAddress, error) {
	var addr DepositAddress
	query := r.db.WithContext(ctx).
		Where("scope = ? AND symbol = ? AND address = ?", scope, symbol, address)
	if extra != "" {
		query = query.Where("extra = ?", extra)
	}
	err := query.First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &addr, nil
}

// ListAddresses retrieves every address ever assigned to (account,
// symbol), newest first.
func (r *Repository) ListAddresses(ctx context.Context, scope, account, symbol string) ([]*DepositAddress, error) {
	var addrs []*DepositAddress
	err := r.db.WithContext(ctx).
		Where("scope = ? AND account = ? AND symbol = ?", scope, account, symbol).
		Order("created_at DESC").
		Find(&addrs).Error
	return addrs, err
}

// RotateAddress demotes the current address of (account, symbol) to old
// and installs the given address as the new current one, atomically.
func (r *Repository) RotateAddress(ctx context.Context, scope, account, symbol, address, extra string) (*DepositAddress, error) {
	newAddr := &DepositAddress{
		Scope:   scope,
		Symbol:  symbol,
		Account: account,
		Address: address,
		Extra:   extra,
		Status:  AddressStatusCurrent,
	}
	err := r.Transaction(ctx, func(dbTx *gorm.DB) error {
		err := dbTx.Model(&DepositAddress{}).
			Where("scope = ? AND account = ? AND symbol = ? AND status = ?", scope, account, symbol, AddressStatusCurrent).
			Update("status", AddressStatusOld).Error
		if err != nil {
			return errors.Wrap(errors.KindPersistenceError, "failed to demote deposit address", err)
		}
		return r.CreateAddressInTx(ctx, dbTx, newAddr)
	})
	if err != nil {
		return nil, err
	}
	return newAddr, nil
}

// pluckAmounts loads the amount column for the matching rows. Summation
// happens in Go with exact decimal arithmetic.
func (r *Repository) pluckAmounts(tx *gorm.DB) ([]amountRow, error) {
	var rows []amountRow
	err := tx.Model(&Transaction{}).Select("amount").Find(&rows).Error
	return rows, err
}
