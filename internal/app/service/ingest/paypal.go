package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/types"
)

// PayPalVerifier calls PayPal's verify-webhook-signature endpoint.
// valid=false with a nil error means PayPal examined the delivery and
// rejected it.
type PayPalVerifier interface {
	VerifyWebhook(ctx context.Context, body []byte, header http.Header) (valid bool, err error)
}

type PayPalAdapter struct {
	verifier PayPalVerifier
	log      *zap.SugaredLogger
}

func NewPayPalAdapter(verifier PayPalVerifier, log *zap.SugaredLogger) *PayPalAdapter {
	return &PayPalAdapter{verifier: verifier, log: log}
}

func (a *PayPalAdapter) Provider() types.PaymentProvider { return types.PaymentProviderPayPal }

// Verify treats a failed verification call the same as a rejected
// signature: the delivery is dropped unprocessed and PayPal retries it,
// so a transient verification outage never lets an unverified payload
// through.
func (a *PayPalAdapter) Verify(ctx context.Context, body []byte, header http.Header) (string, error) {
	valid, err := a.verifier.VerifyWebhook(ctx, body, header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !valid {
		return "", ErrSignatureInvalid
	}
	var env paypalEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.ID == "" {
		return "", fmt.Errorf("%w: missing event id", ErrSignatureInvalid)
	}
	return env.ID, nil
}

type paypalEnvelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalSubscriptionResource struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
		PayerID      string `json:"payer_id"`
	} `json:"subscriber"`
	BillingInfo struct {
		NextBillingTime *time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
	StatusUpdateTime *time.Time `json:"status_update_time"`
}

type paypalSaleResource struct {
	ID                 string `json:"id"`
	BillingAgreementID string `json:"billing_agreement_id"`
	Amount             struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

func (a *PayPalAdapter) Translate(_ context.Context, body json.RawMessage) (*Event, error) {
	var env paypalEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, mappingErrf("malformed paypal event: %v", err)
	}

	switch env.EventType {
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		return a.translateSubscription(env.Resource, KindCheckoutCompleted)
	case "BILLING.SUBSCRIPTION.UPDATED", "BILLING.SUBSCRIPTION.SUSPENDED":
		return a.translateSubscription(env.Resource, KindSubscriptionSync)
	case "BILLING.SUBSCRIPTION.CANCELLED", "BILLING.SUBSCRIPTION.EXPIRED":
		return a.translateSubscription(env.Resource, KindSubscriptionCanceled)
	case "PAYMENT.SALE.COMPLETED":
		return a.translateSale(env.Resource)
	case "BILLING.SUBSCRIPTION.PAYMENT.FAILED":
		return a.translatePaymentFailure(env.ID, env.Resource)
	default:
		return &Event{Kind: KindIgnored}, nil
	}
}

func (a *PayPalAdapter) translateSubscription(resource json.RawMessage, kind EventKind) (*Event, error) {
	var sub paypalSubscriptionResource
	if err := json.Unmarshal(resource, &sub); err != nil {
		return nil, mappingErrf("malformed paypal subscription resource: %v", err)
	}
	if sub.ID == "" {
		return nil, mappingErrf("paypal subscription resource without id")
	}
	status, err := MapPayPalStatus(sub.Status)
	if err != nil {
		return nil, err
	}
	snap := &SubscriptionSnapshot{
		ProviderSubscriptionID: sub.ID,
		Status:                 status,
		CurrentPeriodEnd:       sub.BillingInfo.NextBillingTime,
	}
	if kind == KindSubscriptionCanceled {
		snap.Status = types.SubscriptionStatusCanceled
		snap.CanceledAt = sub.StatusUpdateTime
		if snap.CanceledAt == nil {
			now := time.Now()
			snap.CanceledAt = &now
		}
	}
	return &Event{
		Kind:          kind,
		CustomerEmail: sub.Subscriber.EmailAddress,
		CustomerID:    sub.Subscriber.PayerID,
		Subscription:  snap,
	}, nil
}

func (a *PayPalAdapter) translateSale(resource json.RawMessage) (*Event, error) {
	var sale paypalSaleResource
	if err := json.Unmarshal(resource, &sale); err != nil {
		return nil, mappingErrf("malformed paypal sale resource: %v", err)
	}
	cents, err := parseAmountCents(sale.Amount.Total)
	if err != nil {
		return nil, mappingErrf("paypal sale %s amount %q: %v", sale.ID, sale.Amount.Total, err)
	}
	return &Event{
		Kind: KindPaymentSucceeded,
		Payment: &PaymentSnapshot{
			ProviderTransactionID:  sale.ID,
			ProviderSubscriptionID: sale.BillingAgreementID,
			AmountCents:            cents,
			Currency:               strings.ToLower(sale.Amount.Currency),
			Payload:                resource,
		},
	}, nil
}

// translatePaymentFailure maps BILLING.SUBSCRIPTION.PAYMENT.FAILED,
// whose resource is the subscription itself rather than a sale. There
// is no sale id for a failed charge, so the webhook event id stands in
// as the transaction id.
func (a *PayPalAdapter) translatePaymentFailure(eventID string, resource json.RawMessage) (*Event, error) {
	var sub paypalSubscriptionResource
	if err := json.Unmarshal(resource, &sub); err != nil {
		return nil, mappingErrf("malformed paypal subscription resource: %v", err)
	}
	if sub.ID == "" {
		return nil, mappingErrf("paypal payment failure without subscription id")
	}
	return &Event{
		Kind:          KindPaymentFailed,
		CustomerEmail: sub.Subscriber.EmailAddress,
		CustomerID:    sub.Subscriber.PayerID,
		Payment: &PaymentSnapshot{
			ProviderTransactionID:  eventID,
			ProviderSubscriptionID: sub.ID,
			Currency:               "eur",
			Payload:                resource,
		},
	}, nil
}

// MapPayPalStatus collapses PayPal's subscription status vocabulary onto
// the ledger's.
func MapPayPalStatus(s string) (types.SubscriptionStatus, error) {
	switch strings.ToUpper(s) {
	case "ACTIVE":
		return types.SubscriptionStatusActive, nil
	case "APPROVAL_PENDING", "APPROVED":
		return types.SubscriptionStatusIncomplete, nil
	case "SUSPENDED":
		return types.SubscriptionStatusPastDue, nil
	case "CANCELLED", "EXPIRED":
		return types.SubscriptionStatusCanceled, nil
	default:
		return "", mappingErrf("unknown paypal subscription status %q", s)
	}
}

// parseAmountCents converts PayPal's decimal string amounts ("9.99")
// to integer cents without floating point.
func parseAmountCents(total string) (int64, error) {
	if total == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(total, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	cents := units * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		sub, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, err
		}
		if units < 0 {
			cents -= sub
		} else {
			cents += sub
		}
	}
	return cents, nil
}
