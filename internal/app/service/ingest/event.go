package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maxmarketing/backend/pkg/types"
)

// ErrSignatureInvalid means the delivery could not be proven to come
// from the provider. The delivery is treated as if it never happened:
// no ledger write, no event log row, so a corrected resend processes
// normally.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// ErrEventAlreadyProcessed is the idempotency short-circuit. Not a
// failure from the provider's perspective; deliveries hitting it are
// acknowledged as success.
var ErrEventAlreadyProcessed = errors.New("webhook event already processed")

// MappingError marks an authentic event whose payload could not be
// translated into a ledger mutation (unknown status vocabulary, missing
// email, unresolvable user). Such events are recorded with status error
// and acknowledged, so the provider does not retry them forever.
type MappingError struct {
	Reason string
}

func (e *MappingError) Error() string { return fmt.Sprintf("event mapping failed: %s", e.Reason) }

func mappingErrf(format string, args ...any) error {
	return &MappingError{Reason: fmt.Sprintf(format, args...)}
}

// EventKind is the provider-neutral event vocabulary. Each provider
// adapter collapses its native event types onto these; nothing outside
// the adapters branches on provider identity.
type EventKind string

const (
	KindCheckoutCompleted    EventKind = "checkout_completed"
	KindSubscriptionSync     EventKind = "subscription_sync"
	KindSubscriptionCanceled EventKind = "subscription_canceled"
	KindPaymentSucceeded     EventKind = "payment_succeeded"
	KindPaymentFailed        EventKind = "payment_failed"
	// KindIgnored acknowledges event types this system has no mapping
	// for; they are still logged for audit.
	KindIgnored EventKind = "ignored"
)

// SubscriptionSnapshot is the provider's authoritative current state of
// one subscription. Events carry full snapshots, not deltas, which is
// why applying them is order-independent last-write-wins.
type SubscriptionSnapshot struct {
	ProviderSubscriptionID string
	Status                 types.SubscriptionStatus
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
}

// PaymentSnapshot describes one charge attempt. Payload carries the raw
// provider resource (invoice, sale) for the transaction audit row.
type PaymentSnapshot struct {
	ProviderTransactionID  string
	ProviderSubscriptionID string
	AmountCents            int64
	Currency               string
	Payload                json.RawMessage
}

// Event is the normalized form of one verified webhook delivery.
type Event struct {
	Kind          EventKind
	CustomerEmail string
	CustomerID    string
	Subscription  *SubscriptionSnapshot
	Payment       *PaymentSnapshot
}

// Adapter is the per-provider translation layer. Verify authenticates
// the raw delivery and extracts the provider event id; Translate turns
// the verified payload into the neutral Event. Verification must see
// the body exactly as delivered: any re-serialization before the
// signature check breaks it.
type Adapter interface {
	Provider() types.PaymentProvider
	Verify(ctx context.Context, body []byte, header http.Header) (eventID string, err error)
	Translate(ctx context.Context, body json.RawMessage) (*Event, error)
}
