package models

import (
	"fmt"
	"time"
)

// User is the identity row. Email is stored lowercased so lookups are
// case-insensitive. IsPremium is a denormalized cache of the entitlement
// decision, refreshed by the webhook ingestor; security-relevant checks
// recompute from the subscription ledger instead of trusting it.
type User struct {
	ID           string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email        string  `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Username     *string `gorm:"column:username;type:varchar(64)" json:"username"`
	PasswordHash string  `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`

	IsPremium    bool       `gorm:"column:is_premium;not null;default:false" json:"is_premium"`
	PremiumSince *time.Time `gorm:"column:premium_since;default:null" json:"premium_since"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;type:varchar(64);index" json:"-"`
	PayPalCustomerID *string `gorm:"column:paypal_customer_id;type:varchar(64);index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// AnonymizedEmail is the placeholder address written by data erasure.
// The row survives so subscription and transaction history keep a valid
// owner for audit purposes.
func (u *User) AnonymizedEmail() string {
	return fmt.Sprintf("%s@example.invalid", u.ID)
}
