package models

import "time"

// PasswordReset is a single-use reset token; rows are deleted once
// consumed or on expiry.
type PasswordReset struct {
	Token     string    `gorm:"column:token;type:varchar(128);primary_key" json:"-"`
	UserID    string    `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (PasswordReset) TableName() string { return "password_resets" }

func (r *PasswordReset) Expired(now time.Time) bool {
	return r == nil || now.After(r.ExpiresAt)
}
