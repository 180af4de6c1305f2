package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/maxmarketing/backend/pkg/types"
)

// PaymentTransaction is the append-only ledger of individual charges,
// one row per provider transaction id. Replayed webhook deliveries are
// absorbed by the unique index (insert-or-ignore).
type PaymentTransaction struct {
	ID                    string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID                string                  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	SubscriptionID        *string                 `gorm:"column:subscription_id;type:uuid" json:"subscription_id"`
	Provider              types.PaymentProvider   `gorm:"column:provider;type:varchar(16);not null;uniqueIndex:uniq_provider_transaction,priority:1" json:"provider"`
	ProviderTransactionID string                  `gorm:"column:provider_transaction_id;type:varchar(128);not null;uniqueIndex:uniq_provider_transaction,priority:2" json:"provider_transaction_id"`
	AmountCents           int64                   `gorm:"column:amount_cents;type:bigint;not null" json:"amount_cents"`
	Currency              string                  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status                types.TransactionStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Payload               datatypes.JSON          `gorm:"column:payload;type:jsonb" json:"payload"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
