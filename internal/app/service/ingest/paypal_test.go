package ingest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/types"
)

type fakeVerifier struct {
	valid bool
	err   error
}

func (v *fakeVerifier) VerifyWebhook(context.Context, []byte, http.Header) (bool, error) {
	return v.valid, v.err
}

func TestPayPalVerify(t *testing.T) {
	body := []byte(`{"id":"WH-1","event_type":"BILLING.SUBSCRIPTION.ACTIVATED"}`)

	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	eventID, err := a.Verify(context.Background(), body, nil)
	require.NoError(t, err)
	require.Equal(t, "WH-1", eventID)

	a = NewPayPalAdapter(&fakeVerifier{valid: false}, zap.NewNop().Sugar())
	_, err = a.Verify(context.Background(), body, nil)
	require.ErrorIs(t, err, ErrSignatureInvalid)

	// A verification-call outage is treated as a rejected delivery, not
	// as a pass-through.
	a = NewPayPalAdapter(&fakeVerifier{err: errors.New("timeout")}, zap.NewNop().Sugar())
	_, err = a.Verify(context.Background(), body, nil)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestPayPalTranslateActivated(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	body := []byte(`{
		"id": "WH-2",
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {
			"id": "I-ABC",
			"status": "ACTIVE",
			"subscriber": {"email_address": "alice@example.com", "payer_id": "PAYER1"},
			"billing_info": {"next_billing_time": "2026-04-01T10:00:00Z"}
		}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindCheckoutCompleted, evt.Kind)
	require.Equal(t, "alice@example.com", evt.CustomerEmail)
	require.Equal(t, "PAYER1", evt.CustomerID)
	require.Equal(t, types.SubscriptionStatusActive, evt.Subscription.Status)
	require.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), evt.Subscription.CurrentPeriodEnd.UTC())
}

func TestPayPalTranslateCancelled(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	body := []byte(`{
		"id": "WH-3",
		"event_type": "BILLING.SUBSCRIPTION.CANCELLED",
		"resource": {"id": "I-ABC", "status": "CANCELLED", "status_update_time": "2026-03-15T08:00:00Z"}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindSubscriptionCanceled, evt.Kind)
	require.Equal(t, types.SubscriptionStatusCanceled, evt.Subscription.Status)
	require.NotNil(t, evt.Subscription.CanceledAt)
}

func TestPayPalTranslateSuspendedMapsPastDue(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	body := []byte(`{
		"id": "WH-4",
		"event_type": "BILLING.SUBSCRIPTION.SUSPENDED",
		"resource": {"id": "I-ABC", "status": "SUSPENDED"}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindSubscriptionSync, evt.Kind)
	require.Equal(t, types.SubscriptionStatusPastDue, evt.Subscription.Status)
}

func TestPayPalTranslateSaleCompleted(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	body := []byte(`{
		"id": "WH-5",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "SALE-1",
			"billing_agreement_id": "I-ABC",
			"amount": {"total": "19.99", "currency": "EUR"}
		}
	}`)

	evt, err := a.Translate(context.Background(), body)
	require.NoError(t, err)
	require.Equal(t, KindPaymentSucceeded, evt.Kind)
	require.Equal(t, "SALE-1", evt.Payment.ProviderTransactionID)
	require.Equal(t, "I-ABC", evt.Payment.ProviderSubscriptionID)
	require.Equal(t, int64(1999), evt.Payment.AmountCents)
	require.Equal(t, "eur", evt.Payment.Currency)
	require.Contains(t, string(evt.Payment.Payload), `"SALE-1"`)
}

func TestPayPalTranslateUnknownStatusIsMappingError(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	body := []byte(`{
		"id": "WH-6",
		"event_type": "BILLING.SUBSCRIPTION.UPDATED",
		"resource": {"id": "I-ABC", "status": "FROZEN"}
	}`)

	_, err := a.Translate(context.Background(), body)
	var me *MappingError
	require.ErrorAs(t, err, &me)
}

func TestPayPalTranslateUnhandledTypeIsIgnored(t *testing.T) {
	a := NewPayPalAdapter(&fakeVerifier{valid: true}, zap.NewNop().Sugar())
	evt, err := a.Translate(context.Background(), []byte(`{"id":"WH-7","event_type":"CUSTOMER.DISPUTE.CREATED","resource":{}}`))
	require.NoError(t, err)
	require.Equal(t, KindIgnored, evt.Kind)
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"19.99", 1999, true},
		{"19.9", 1990, true},
		{"19", 1900, true},
		{"0.05", 5, true},
		{"19.999", 1999, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := parseAmountCents(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}
