package stripeapi

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/ingest"
	"github.com/maxmarketing/backend/pkg/config"
)

// Client wraps the Stripe REST API for the two things this backend
// needs from it: starting checkout/portal sessions and reading back
// subscription state referenced by webhooks.
type Client struct {
	api *stripeclient.API
	cfg *config.Config
	log *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	api := &stripeclient.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &Client{api: api, cfg: cfg, log: log}
}

// CheckoutArgs identifies who is buying. CustomerID is set when the
// user already has a Stripe customer from a previous subscription.
type CheckoutArgs struct {
	UserID     string
	Email      string
	CustomerID *string
}

// CreateCheckoutSession opens a hosted checkout for the premium plan
// and returns the redirect URL. Nothing is persisted here; entitlement
// state only ever changes through verified webhooks.
func (c *Client) CreateCheckoutSession(ctx context.Context, args CheckoutArgs) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(c.cfg.Stripe.PriceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(c.cfg.Stripe.TrialDays),
			Metadata:        map[string]string{"user_id": args.UserID},
		},
		SuccessURL:          stripe.String(c.cfg.Domain + "/payment-success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(c.cfg.Domain + "/payment-cancelled"),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("user_id", args.UserID)
	if args.CustomerID != nil {
		params.Customer = args.CustomerID
	} else {
		params.CustomerEmail = stripe.String(args.Email)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the Stripe billing portal so the customer
// can manage or cancel the subscription themselves.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.Domain + "/account"),
	}
	params.Context = ctx
	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return session.URL, nil
}

// FindCustomerByEmail returns the id of the first Stripe customer with
// the given email, or "" when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	iter := c.api.Customers.List(params)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}
	return "", nil
}

// FetchSubscription reads a subscription and shapes it for the webhook
// ingestor. The period end lives on the items since the Basil API
// version, so the latest item end is taken.
func (c *Client) FetchSubscription(ctx context.Context, subscriptionID string) (*ingest.SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}
	status, err := ingest.MapStripeStatus(string(sub.Status))
	if err != nil {
		return nil, err
	}
	snap := &ingest.SubscriptionSnapshot{
		ProviderSubscriptionID: sub.ID,
		Status:                 status,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0).UTC()
		snap.CanceledAt = &t
	}
	var end int64
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.CurrentPeriodEnd > end {
				end = item.CurrentPeriodEnd
			}
		}
	}
	if end > 0 {
		t := time.Unix(end, 0).UTC()
		snap.CurrentPeriodEnd = &t
	}
	return snap, nil
}
