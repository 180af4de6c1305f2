package ingest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/config"
	"github.com/maxmarketing/backend/pkg/types"
)

const testWebhookSecret = "whsec_test"

// stripeSignature builds a Stripe-Signature header the same way Stripe
// does: v1 = HMAC-SHA256(secret, "<timestamp>.<payload>").
func stripeSignature(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

type fakeFetcher struct {
	snap *SubscriptionSnapshot
	err  error
}

func (f *fakeFetcher) FetchSubscription(context.Context, string) (*SubscriptionSnapshot, error) {
	return f.snap, f.err
}

func newStripeAdapter(fetcher SubscriptionFetcher) *StripeAdapter {
	cfg := &config.Config{}
	cfg.Stripe.WebhookSecret = testWebhookSecret
	return NewStripeAdapter(cfg, fetcher, zap.NewNop().Sugar())
}

func TestStripeVerifyAcceptsSignedPayload(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{"id":"evt_123","type":"invoice.payment_succeeded"}`)
	header := http.Header{}
	header.Set("Stripe-Signature", stripeSignature(testWebhookSecret, body, time.Now()))

	eventID, err := a.Verify(context.Background(), body, header)
	require.NoError(t, err)
	require.Equal(t, "evt_123", eventID)
}

func TestStripeVerifyRejectsBadSignature(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{"id":"evt_123"}`)

	header := http.Header{}
	header.Set("Stripe-Signature", stripeSignature("whsec_other", body, time.Now()))
	_, err := a.Verify(context.Background(), body, header)
	require.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = a.Verify(context.Background(), body, http.Header{})
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestStripeVerifyRejectsTamperedBody(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{"id":"evt_123","amount":100}`)
	header := http.Header{}
	header.Set("Stripe-Signature", stripeSignature(testWebhookSecret, body, time.Now()))

	tampered := []byte(`{"id":"evt_123","amount":999}`)
	_, err := a.Verify(context.Background(), tampered, header)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestStripeTranslateSubscriptionUpdated(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "trialing",
			"cancel_at_period_end": true,
			"items": {"data": [{"current_period_end": 1770000000}, {"current_period_end": 1780000000}]}
		}}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindSubscriptionSync, evt.Kind)
	require.Equal(t, "cus_1", evt.CustomerID)
	require.Equal(t, "sub_1", evt.Subscription.ProviderSubscriptionID)
	require.Equal(t, types.SubscriptionStatusTrialing, evt.Subscription.Status)
	require.True(t, evt.Subscription.CancelAtPeriodEnd)
	// Latest item period end wins when the top-level field is absent.
	require.Equal(t, time.Unix(1780000000, 0).UTC(), *evt.Subscription.CurrentPeriodEnd)
}

func TestStripeTranslateDeletedForcesCanceled(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "status": "canceled", "canceled_at": 1770000000}}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindSubscriptionCanceled, evt.Kind)
	require.Equal(t, types.SubscriptionStatusCanceled, evt.Subscription.Status)
	require.Equal(t, time.Unix(1770000000, 0).UTC(), *evt.Subscription.CanceledAt)
}

func TestStripeTranslateUnknownStatusIsMappingError(t *testing.T) {
	a := newStripeAdapter(nil)
	body := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.updated",
		"data": {"object": {"id": "sub_1", "status": "paused"}}
	}`)

	_, err := a.Translate(context.Background(), body)
	var me *MappingError
	require.ErrorAs(t, err, &me)
}

func TestStripeTranslateCheckoutFetchesSubscription(t *testing.T) {
	fetcher := &fakeFetcher{snap: &SubscriptionSnapshot{
		ProviderSubscriptionID: "sub_9",
		Status:                 types.SubscriptionStatusTrialing,
	}}
	a := newStripeAdapter(fetcher)
	body := []byte(`{
		"id": "evt_4",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "subscription",
			"customer": "cus_1",
			"customer_details": {"email": "Alice@Example.com"},
			"subscription": "sub_9"
		}}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindCheckoutCompleted, evt.Kind)
	require.Equal(t, "Alice@Example.com", evt.CustomerEmail)
	require.Equal(t, "cus_1", evt.CustomerID)
	require.Equal(t, "sub_9", evt.Subscription.ProviderSubscriptionID)
}

func TestStripeTranslateCheckoutFetchFailureIsNotMappingError(t *testing.T) {
	a := newStripeAdapter(&fakeFetcher{err: errors.New("api unreachable")})
	body := []byte(`{
		"id": "evt_5",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "mode": "subscription", "subscription": "sub_9"}}
	}`)

	_, err := a.Translate(context.Background(), body)
	require.Error(t, err)
	var me *MappingError
	require.False(t, errors.As(err, &me))
}

func TestStripeTranslateInvoices(t *testing.T) {
	a := newStripeAdapter(nil)

	paid := []byte(`{
		"id": "evt_6",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_1", "customer": "cus_1", "customer_email": "a@b.c",
			"amount_paid": 1999, "currency": "eur",
			"parent": {"subscription_details": {"subscription": "sub_1"}}
		}}
	}`)
	evt, err := a.Translate(context.Background(), paid)
	require.NoError(t, err)
	require.Equal(t, KindPaymentSucceeded, evt.Kind)
	require.Equal(t, int64(1999), evt.Payment.AmountCents)
	require.Equal(t, "sub_1", evt.Payment.ProviderSubscriptionID)
	// The raw invoice travels with the snapshot for the audit row.
	require.Contains(t, string(evt.Payment.Payload), `"in_1"`)

	failed := []byte(`{
		"id": "evt_7",
		"type": "invoice.payment_failed",
		"data": {"object": {"id": "in_2", "subscription": "sub_1", "amount_due": 2999, "currency": "eur"}}
	}`)
	evt, err = a.Translate(context.Background(), failed)
	require.NoError(t, err)
	require.Equal(t, KindPaymentFailed, evt.Kind)
	require.Equal(t, int64(2999), evt.Payment.AmountCents)
}

func TestStripeTranslateUnhandledTypeIsIgnored(t *testing.T) {
	a := newStripeAdapter(nil)
	evt, err := a.Translate(context.Background(), []byte(`{"id":"evt_8","type":"charge.refunded","data":{"object":{}}}`))
	require.NoError(t, err)
	require.Equal(t, KindIgnored, evt.Kind)
}
