package models

import (
	"time"

	"github.com/maxmarketing/backend/pkg/types"
)

// Subscription is one row of the entitlement ledger: exactly one row per
// (provider, provider_subscription_id). Upserts overwrite status and
// period fields with the provider's snapshot; the id columns never
// change once created.
type Subscription struct {
	ID                     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID                 string                   `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Provider               types.PaymentProvider    `gorm:"column:provider;type:varchar(16);not null;uniqueIndex:uniq_provider_subscription,priority:1" json:"provider"`
	ProviderSubscriptionID string                   `gorm:"column:provider_subscription_id;type:varchar(128);not null;uniqueIndex:uniq_provider_subscription,priority:2" json:"provider_subscription_id"`
	Status                 types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CurrentPeriodEnd       *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd      bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CanceledAt             *time.Time               `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	CreatedAt              time.Time                `json:"created_at"`
	UpdatedAt              time.Time                `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Current reports whether this row grants entitlement at time now.
func (s *Subscription) Current(now time.Time) bool {
	return s != nil && s.Status.Current(s.CurrentPeriodEnd, now)
}
