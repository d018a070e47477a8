// Package ledger holds the durable transaction and deposit-address
// records plus the status transition rules. It is the single source of
// truth for balances: every balance anywhere in walletcore is derived
// from rows in this package, never cached.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a ledger transaction.
type Category string

const (
	CategoryDeposit  Category = "deposit"
	CategoryWithdraw Category = "withdraw"
	CategoryMove     Category = "move"
	CategoryTrade    Category = "trade"
)

// Status is the lifecycle state of a ledger transaction.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusPending     Status = "pending"
	StatusDone        Status = "done"
	StatusCancelled   Status = "cancelled"
	StatusFailed      Status = "failed"
)

// ConfirmedBy identifies who signs off a gated transaction.
type ConfirmedBy string

const (
	ConfirmedByAdmin ConfirmedBy = "admin"
	ConfirmedByUser  ConfirmedBy = "user"
)

// TagColdStorage marks transactions that move funds between the hot
// wallet and cold storage. They carry no account and are excluded from
// user balance accounting.
const TagColdStorage = "cold_storage"

// Transaction is one ledger entry. Amounts are signed: credits are
// positive, debits negative. Fees are charged on debits only and are
// netted into Amount at write time, so Balance is a plain sum over done
// rows.
type Transaction struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Scope         string          `json:"scope" gorm:"size:64;index:idx_ledger_scope_txid,priority:1;index:idx_ledger_account,priority:1"`
	Category      Category        `json:"category" gorm:"size:16;index"`
	Symbol        string          `json:"symbol" gorm:"size:16;index:idx_ledger_account,priority:3"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(32,18)"`
	Fee           decimal.Decimal `json:"fee" gorm:"type:decimal(32,18)"`
	Account       string          `json:"account" gorm:"size:64;index:idx_ledger_account,priority:2"`
	OtherAccount  string          `json:"other_account" gorm:"size:64"`
	Address       string          `json:"address" gorm:"size:255;index"`
	Extra         string          `json:"extra" gorm:"size:255"`
	// TxID stays empty until a withdrawal is broadcast, so the unique
	// index covers non-empty txids only.
	TxID          string          `json:"txid" gorm:"column:txid;size:255;index:idx_ledger_scope_txid,unique,where:txid <> '',priority:2"`
	Comment       string          `json:"comment" gorm:"type:text"`
	Tags          string          `json:"tags" gorm:"size:255"`
	Confirmations int             `json:"confirmations" gorm:"default:0"`
	Status        Status          `json:"status" gorm:"size:16;index"`
	Retries       int             `json:"retries" gorm:"default:0"`
	AdminConfirm  bool            `json:"admin_confirm" gorm:"default:false"`
	UserConfirm   bool            `json:"user_confirm" gorm:"default:false"`
	CreatedAt     time.Time       `json:"created_time"`
	UpdatedAt     time.Time       `json:"updated_time"`
}

// TableName implements the gorm naming convention override.
func (Transaction) TableName() string {
	return "ledger_transactions"
}

// IsDebit reports whether the row removes funds from its account.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// TagList splits the stored tag string into labels.
func (t *Transaction) TagList() []string {
	return strings.Fields(t.Tags)
}

// HasTag reports whether the transaction carries the given label.
func (t *Transaction) HasTag(tag string) bool {
	for _, existing := range t.TagList() {
		if existing == tag {
			return true
		}
	}
	return false
}

// AddTag appends a label unless it is already present.
func (t *Transaction) AddTag(tag string) {
	if tag == "" || t.HasTag(tag) {
		return
	}
	if t.Tags == "" {
		t.Tags = tag
		return
	}
	t.Tags += " " + tag
}

// Pair suffixes for internal transfers. A move or trade always creates a
// matched pair of rows sharing a txid base: <base>-send and
// <base>-receive. Both sides reach done together.
const (
	PairSuffixSend    = "-send"
	PairSuffixReceive = "-receive"
)

// IsPaired reports whether the row is one side of a move/trade pair.
func (t *Transaction) IsPaired() bool {
	return t.Category == CategoryMove || t.Category == CategoryTrade
}

// PairBase returns the shared txid base of a paired row, or the empty
// string for unpaired rows.
func (t *Transaction) PairBase() string {
	if !t.IsPaired() {
		return ""
	}
	if base, ok := strings.CutSuffix(t.TxID, PairSuffixSend); ok {
		return base
	}
	if base, ok := strings.CutSuffix(t.TxID, PairSuffixReceive); ok {
		return base
	}
	return ""
}

// PartnerTxID returns the txid of the other side of a pair, or the empty
// string for unpaired rows.
func (t *Transaction) PartnerTxID() string {
	base := t.PairBase()
	if base == "" {
		return ""
	}
	if strings.HasSuffix(t.TxID, PairSuffixSend) {
		return base + PairSuffixReceive
	}
	return base + PairSuffixSend
}

// AddressStatus tracks whether a deposit address is the active one for
// its (account, symbol) or a superseded predecessor.
type AddressStatus string

const (
	AddressStatusCurrent AddressStatus = "current"
	AddressStatusOld     AddressStatus = "old"
)

// DepositAddress is an externally visible receiving address assigned to
// an account. Rotation demotes the previous current address to old but
// never deletes it: deposits to old addresses keep crediting the owner.
type DepositAddress struct {
	ID        uint64        `json:"id" gorm:"primaryKey;autoIncrement"`
	Scope     string        `json:"scope" gorm:"size:64;index:idx_addr_owner,priority:1"`
	Symbol    string        `json:"symbol" gorm:"size:16;index:idx_addr_owner,priority:3"`
	Account   string        `json:"account" gorm:"size:64;index:idx_addr_owner,priority:2"`
	Address   string        `json:"address" gorm:"size:255;index"`
	Extra     string        `json:"extra" gorm:"size:255"`
	Status    AddressStatus `json:"status" gorm:"size:16"`
	CreatedAt time.Time     `json:"created_time"`
}

// TableName implements the gorm naming convention override.
func (DepositAddress) TableName() string {
	return "deposit_addresses"
}
