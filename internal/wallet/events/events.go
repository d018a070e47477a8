// Package events delivers fire-and-forget ledger notifications to
// external collaborators (mail, audit log). Publish failures are logged
// and never propagate into ledger mutations.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types emitted by the ledger.
const (
	TypeDeposit     = "on_deposit"
	TypeWithdraw    = "on_withdraw"
	TypeMoveSend    = "on_move_send"
	TypeMoveReceive = "on_move_receive"
)

// Event is the typed notification payload.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Scope         string          `json:"scope"`
	Account       string          `json:"account"`
	OtherAccount  string          `json:"other_account,omitempty"`
	Symbol        string          `json:"symbol"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	TxID          string          `json:"txid"`
	Address       string          `json:"address,omitempty"`
	Status        string          `json:"status"`
	Confirmations int             `json:"confirmations"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Publisher delivers a serialized event to one destination.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, event interface{}) error
}

// Bus fans events out to every configured publisher.
type Bus struct {
	topic      string
	publishers []Publisher
	logger     *zap.Logger
}

// NewBus creates an event bus publishing to topic.
func NewBus(topic string, publishers []Publisher, logger *zap.Logger) *Bus {
	return &Bus{topic: topic, publishers: publishers, logger: logger}
}

// Notify delivers the event to all publishers. Failures are logged per
// publisher and swallowed.
func (b *Bus) Notify(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for i, publisher := range b.publishers {
		if err := publisher.PublishEvent(ctx, b.topic, event); err != nil {
			b.logger.Error("failed to publish ledger event",
				zap.Int("publisher_index", i),
				zap.String("event_type", event.Type),
				zap.String("txid", event.TxID),
				zap.Error(err),
			)
		}
	}

	b.logger.Info("published ledger event",
		zap.String("event_type", event.Type),
		zap.String("scope", event.Scope),
		zap.String("account", event.Account),
		zap.String("symbol", event.Symbol),
		zap.String("txid", event.TxID),
		zap.String("status", event.Status),
	)
}
