package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/maxmarketing/backend/pkg/types"
)

type WebhookEventStatus string

const (
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusError     WebhookEventStatus = "error"
)

// WebhookEvent is the append-only idempotency log. The unique index on
// (provider, event_id) is what makes concurrent redeliveries of the same
// event collapse to a single processing; the insert races at the
// database, never in application code. Rows are never deleted, only
// their status/result may change (processed -> error is impossible, the
// status is decided before commit).
type WebhookEvent struct {
	ID       string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider types.PaymentProvider `gorm:"column:provider;type:varchar(16);not null;uniqueIndex:uniq_provider_event,priority:1" json:"provider"`
	EventID  string                `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:uniq_provider_event,priority:2" json:"event_id"`
	Payload  datatypes.JSON        `gorm:"column:payload;type:jsonb" json:"payload"`
	Status   WebhookEventStatus    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Result   *datatypes.JSON       `gorm:"column:result;type:jsonb" json:"result"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
