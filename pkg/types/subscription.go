package types

import "time"

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderPayPal PaymentProvider = "paypal"
)

// SubscriptionStatus is the abstract subscription state machine both
// providers map onto. "canceled" is terminal; a resubscription shows up
// as a new provider subscription id, never as a revived row.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
)

// Current reports whether the status grants entitlement at time now,
// given the row's current period end. Trials stay entitled until their
// period end passes.
func (s SubscriptionStatus) Current(periodEnd *time.Time, now time.Time) bool {
	switch s {
	case SubscriptionStatusActive:
		return true
	case SubscriptionStatusTrialing:
		return periodEnd != nil && periodEnd.After(now)
	default:
		return false
	}
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type SubscriptionInfo struct {
	Subscribed      bool       `json:"subscribed"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}
