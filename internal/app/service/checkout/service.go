package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/platform/paypal"
	"github.com/maxmarketing/backend/internal/platform/stripeapi"
)

// ErrNoBillingAccount means the user has never completed a checkout and
// so has no provider-side account to open a portal for.
var ErrNoBillingAccount = errors.New("no billing account for user")

// Service starts provider checkout flows. It deliberately writes
// nothing to the entitlement ledger: a session is an intent, and only a
// verified webhook turns intent into entitlement.
type Service struct {
	stripe *stripeapi.Client
	paypal *paypal.Client
	store  ledger.Store
	log    *zap.SugaredLogger
}

func NewService(stripe *stripeapi.Client, paypal *paypal.Client, store ledger.Store, log *zap.SugaredLogger) *Service {
	return &Service{stripe: stripe, paypal: paypal, store: store, log: log}
}

// StartStripeCheckout returns the hosted checkout URL for the premium
// plan.
func (s *Service) StartStripeCheckout(ctx context.Context, userID string) (string, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.stripe.CreateCheckoutSession(ctx, stripeapi.CheckoutArgs{
		UserID:     user.ID,
		Email:      user.Email,
		CustomerID: user.StripeCustomerID,
	})
}

// StartPayPalCheckout returns the PayPal approval URL for the premium
// plan.
func (s *Service) StartPayPalCheckout(ctx context.Context, userID string) (string, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.paypal.CreateSubscription(ctx, user.ID, user.Email)
}

// PortalSession opens the Stripe billing portal for self-service plan
// management. Falls back to a provider-side email lookup for accounts
// created before customer ids were linked.
func (s *Service) PortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	} else {
		customerID, err = s.stripe.FindCustomerByEmail(ctx, user.Email)
		if err != nil {
			return "", err
		}
	}
	if customerID == "" {
		return "", ErrNoBillingAccount
	}
	return s.stripe.CreatePortalSession(ctx, customerID)
}
