package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/pkg/config"
	"github.com/maxmarketing/backend/pkg/types"
)

// SubscriptionFetcher pulls the current subscription snapshot from the
// Stripe API. checkout.session.completed carries only the subscription
// id, not its state, so the adapter has to fetch the rest.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
}

type StripeAdapter struct {
	webhookSecret string
	fetcher       SubscriptionFetcher
	log           *zap.SugaredLogger
}

func NewStripeAdapter(cfg *config.Config, fetcher SubscriptionFetcher, log *zap.SugaredLogger) *StripeAdapter {
	return &StripeAdapter{webhookSecret: cfg.Stripe.WebhookSecret, fetcher: fetcher, log: log}
}

func (a *StripeAdapter) Provider() types.PaymentProvider { return types.PaymentProviderStripe }

func (a *StripeAdapter) Verify(ctx context.Context, body []byte, header http.Header) (string, error) {
	event, err := webhook.ConstructEventWithOptions(body, header.Get("Stripe-Signature"), a.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event.ID, nil
}

// Raw payload shapes. Parsed by hand instead of through the SDK structs
// so that one field moving between API versions does not silently zero
// out a snapshot.

type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeCheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Subscription string `json:"subscription"`
}

func (s *stripeCheckoutSession) email() string {
	if s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}

type stripeSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CanceledAt        int64  `json:"canceled_at"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// periodEnd tolerates both payload generations: older API versions put
// current_period_end on the subscription, newer ones on each item.
func (s *stripeSubscription) periodEnd() *time.Time {
	end := s.CurrentPeriodEnd
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > end {
			end = item.CurrentPeriodEnd
		}
	}
	return unixPtr(end)
}

type stripeInvoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	Subscription  string `json:"subscription"`
	AmountPaid    int64  `json:"amount_paid"`
	AmountDue     int64  `json:"amount_due"`
	Currency      string `json:"currency"`
	Parent        struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (i *stripeInvoice) subscriptionID() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	return i.Parent.SubscriptionDetails.Subscription
}

func (a *StripeAdapter) Translate(ctx context.Context, body json.RawMessage) (*Event, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, mappingErrf("malformed stripe event: %v", err)
	}

	switch env.Type {
	case "checkout.session.completed":
		return a.translateCheckout(ctx, env.Data.Object)
	case "customer.subscription.created", "customer.subscription.updated":
		return a.translateSubscription(env.Data.Object, KindSubscriptionSync)
	case "customer.subscription.deleted":
		return a.translateSubscription(env.Data.Object, KindSubscriptionCanceled)
	case "invoice.payment_succeeded":
		return a.translateInvoice(env.Data.Object, KindPaymentSucceeded)
	case "invoice.payment_failed":
		return a.translateInvoice(env.Data.Object, KindPaymentFailed)
	default:
		return &Event{Kind: KindIgnored}, nil
	}
}

func (a *StripeAdapter) translateCheckout(ctx context.Context, object json.RawMessage) (*Event, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(object, &session); err != nil {
		return nil, mappingErrf("malformed checkout session: %v", err)
	}
	if session.Mode != "" && session.Mode != "subscription" {
		return &Event{Kind: KindIgnored}, nil
	}
	if session.Subscription == "" {
		return nil, mappingErrf("checkout session %s has no subscription", session.ID)
	}
	snap, err := a.fetcher.FetchSubscription(ctx, session.Subscription)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", session.Subscription, err)
	}
	return &Event{
		Kind:          KindCheckoutCompleted,
		CustomerEmail: session.email(),
		CustomerID:    session.Customer,
		Subscription:  snap,
	}, nil
}

func (a *StripeAdapter) translateSubscription(object json.RawMessage, kind EventKind) (*Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(object, &sub); err != nil {
		return nil, mappingErrf("malformed subscription object: %v", err)
	}
	status, err := MapStripeStatus(sub.Status)
	if err != nil {
		return nil, err
	}
	snap := &SubscriptionSnapshot{
		ProviderSubscriptionID: sub.ID,
		Status:                 status,
		CurrentPeriodEnd:       sub.periodEnd(),
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		CanceledAt:             unixPtr(sub.CanceledAt),
	}
	if kind == KindSubscriptionCanceled {
		snap.Status = types.SubscriptionStatusCanceled
		if snap.CanceledAt == nil {
			now := time.Now()
			snap.CanceledAt = &now
		}
	}
	return &Event{Kind: kind, CustomerID: sub.Customer, Subscription: snap}, nil
}

func (a *StripeAdapter) translateInvoice(object json.RawMessage, kind EventKind) (*Event, error) {
	var inv stripeInvoice
	if err := json.Unmarshal(object, &inv); err != nil {
		return nil, mappingErrf("malformed invoice object: %v", err)
	}
	amount := inv.AmountPaid
	if kind == KindPaymentFailed {
		amount = inv.AmountDue
	}
	return &Event{
		Kind:          kind,
		CustomerEmail: inv.CustomerEmail,
		CustomerID:    inv.Customer,
		Payment: &PaymentSnapshot{
			ProviderTransactionID:  inv.ID,
			ProviderSubscriptionID: inv.subscriptionID(),
			AmountCents:            amount,
			Currency:               inv.Currency,
			Payload:                object,
		},
	}, nil
}

// MapStripeStatus collapses Stripe's subscription status vocabulary onto
// the ledger's. Statuses outside the known set are a mapping failure,
// not a silent default.
func MapStripeStatus(s string) (types.SubscriptionStatus, error) {
	switch s {
	case "active":
		return types.SubscriptionStatusActive, nil
	case "trialing":
		return types.SubscriptionStatusTrialing, nil
	case "past_due", "unpaid":
		return types.SubscriptionStatusPastDue, nil
	case "canceled", "incomplete_expired":
		return types.SubscriptionStatusCanceled, nil
	case "incomplete":
		return types.SubscriptionStatusIncomplete, nil
	default:
		return "", mappingErrf("unknown stripe subscription status %q", s)
	}
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
