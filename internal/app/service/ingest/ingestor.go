package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/logctx"
	"github.com/maxmarketing/backend/pkg/types"
)

// Notifier sends the customer-facing emails triggered by billing
// events. All sends are best-effort and must never fail a webhook.
type Notifier interface {
	WelcomePremium(email string)
	SubscriptionCanceled(email string, accessUntil *time.Time)
	PaymentReceipt(email string, amountCents int64, currency string)
	PaymentFailed(email string, amountCents int64, currency string)
}

// Ingestor accepts one raw webhook delivery and applies it to the
// entitlement ledger exactly once.
type Ingestor interface {
	Handle(ctx context.Context, provider types.PaymentProvider, body []byte, header http.Header) error
}

type Service struct {
	store    ledger.Store
	notifier Notifier
	log      *zap.SugaredLogger
	adapters map[types.PaymentProvider]Adapter
}

func NewService(store ledger.Store, notifier Notifier, log *zap.SugaredLogger, stripe *StripeAdapter, paypal *PayPalAdapter) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log,
		adapters: map[types.PaymentProvider]Adapter{
			stripe.Provider(): stripe,
			paypal.Provider(): paypal,
		},
	}
}

// Handle verifies, claims and applies one delivery.
//
// The claim (insert of the webhook_events row) and every ledger
// mutation share one transaction, so a concurrent redelivery either
// loses the claim race and short-circuits, or the whole delivery rolls
// back and the claim with it. Three outcomes reach the caller:
//   - nil: processed (or authentic-but-unmappable, which is logged with
//     status error and still acknowledged so providers stop retrying)
//   - ErrEventAlreadyProcessed / ErrSignatureInvalid
//   - anything else: storage failed; respond 5xx so the provider
//     redelivers later.
func (s *Service) Handle(ctx context.Context, provider types.PaymentProvider, body []byte, header http.Header) error {
	adapter, ok := s.adapters[provider]
	if !ok {
		return fmt.Errorf("unsupported provider: %s", provider)
	}

	eventID, err := adapter.Verify(ctx, body, header)
	if err != nil {
		return err
	}

	var postCommit []func()
	err = s.store.Tx(ctx, func(tx ledger.Store) error {
		claimed, err := tx.ClaimEvent(ctx, &models.WebhookEvent{
			Provider: provider,
			EventID:  eventID,
			Payload:  datatypes.JSON(body),
			Status:   models.WebhookEventStatusProcessed,
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrEventAlreadyProcessed
		}

		evt, aerr := adapter.Translate(ctx, body)
		if aerr == nil {
			aerr = s.apply(ctx, tx, provider, evt, &postCommit)
		}
		if aerr != nil {
			var me *MappingError
			if !errors.As(aerr, &me) {
				// Storage/provider-API failure: roll everything back,
				// including the claim, so the provider retry is not
				// swallowed by the idempotency gate.
				return aerr
			}
			logctx.FromCtx(ctx, s.log).Errorw("webhook_mapping_failed",
				"provider", provider, "event_id", eventID, "error", aerr.Error())
			result, _ := json.Marshal(map[string]string{"error": aerr.Error()})
			postCommit = nil
			return tx.MarkEventError(ctx, provider, eventID, result)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, fn := range postCommit {
		fn()
	}
	return nil
}

func (s *Service) apply(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event, post *[]func()) error {
	switch evt.Kind {
	case KindIgnored:
		return nil
	case KindCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, tx, provider, evt, post)
	case KindSubscriptionSync:
		return s.applySubscriptionSync(ctx, tx, provider, evt)
	case KindSubscriptionCanceled:
		return s.applySubscriptionCanceled(ctx, tx, provider, evt, post)
	case KindPaymentSucceeded:
		return s.applyPaymentSucceeded(ctx, tx, provider, evt, post)
	case KindPaymentFailed:
		return s.applyPaymentFailed(ctx, tx, provider, evt, post)
	default:
		return mappingErrf("unknown event kind %q", evt.Kind)
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event, post *[]func()) error {
	if evt.Subscription == nil {
		return mappingErrf("checkout completion without subscription snapshot")
	}
	user, err := s.resolveUser(ctx, tx, provider, evt)
	if err != nil {
		return err
	}
	if err := tx.LinkCustomer(ctx, user.ID, provider, evt.CustomerID); err != nil {
		return err
	}
	if err := s.upsertSnapshot(ctx, tx, provider, user.ID, evt.Subscription); err != nil {
		return err
	}
	if evt.Payment != nil {
		if err := s.recordPayment(ctx, tx, provider, user.ID, evt.Payment, types.TransactionStatusCompleted); err != nil {
			return err
		}
	}
	entitled, err := s.refreshPremium(ctx, tx, user.ID)
	if err != nil {
		return err
	}
	if entitled {
		email := user.Email
		*post = append(*post, func() { s.notifier.WelcomePremium(email) })
	}
	return nil
}

func (s *Service) applySubscriptionSync(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event) error {
	if evt.Subscription == nil {
		return mappingErrf("subscription sync without subscription snapshot")
	}
	userID, err := s.resolveSubscriptionOwner(ctx, tx, provider, evt)
	if err != nil {
		return err
	}
	if err := s.upsertSnapshot(ctx, tx, provider, userID, evt.Subscription); err != nil {
		return err
	}
	_, err = s.refreshPremium(ctx, tx, userID)
	return err
}

func (s *Service) applySubscriptionCanceled(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event, post *[]func()) error {
	if evt.Subscription == nil {
		return mappingErrf("cancellation without subscription snapshot")
	}
	existing, err := tx.SubscriptionByProviderID(ctx, provider, evt.Subscription.ProviderSubscriptionID)
	if errors.Is(err, ledger.ErrNotFound) {
		return mappingErrf("cancellation for unknown subscription %s", evt.Subscription.ProviderSubscriptionID)
	}
	if err != nil {
		return err
	}
	snap := *evt.Subscription
	snap.Status = types.SubscriptionStatusCanceled
	if snap.CurrentPeriodEnd == nil {
		snap.CurrentPeriodEnd = existing.CurrentPeriodEnd
	}
	if err := s.upsertSnapshot(ctx, tx, provider, existing.UserID, &snap); err != nil {
		return err
	}
	if _, err := s.refreshPremium(ctx, tx, existing.UserID); err != nil {
		return err
	}
	if user, err := tx.UserByID(ctx, existing.UserID); err == nil {
		email, until := user.Email, snap.CurrentPeriodEnd
		*post = append(*post, func() { s.notifier.SubscriptionCanceled(email, until) })
	}
	return nil
}

func (s *Service) applyPaymentSucceeded(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event, post *[]func()) error {
	if evt.Payment == nil {
		return mappingErrf("payment event without payment snapshot")
	}
	userID, err := s.resolvePaymentOwner(ctx, tx, provider, evt)
	if err != nil {
		return err
	}
	if err := s.recordPayment(ctx, tx, provider, userID, evt.Payment, types.TransactionStatusCompleted); err != nil {
		return err
	}
	if evt.CustomerEmail != "" {
		email, amount, currency := evt.CustomerEmail, evt.Payment.AmountCents, evt.Payment.Currency
		*post = append(*post, func() { s.notifier.PaymentReceipt(email, amount, currency) })
	}
	return nil
}

func (s *Service) applyPaymentFailed(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event, post *[]func()) error {
	if evt.Payment == nil {
		return mappingErrf("payment event without payment snapshot")
	}
	existing, err := tx.SubscriptionByProviderID(ctx, provider, evt.Payment.ProviderSubscriptionID)
	if errors.Is(err, ledger.ErrNotFound) {
		return mappingErrf("payment failure for unknown subscription %s", evt.Payment.ProviderSubscriptionID)
	}
	if err != nil {
		return err
	}
	snap := &SubscriptionSnapshot{
		ProviderSubscriptionID: existing.ProviderSubscriptionID,
		Status:                 types.SubscriptionStatusPastDue,
		CurrentPeriodEnd:       existing.CurrentPeriodEnd,
		CancelAtPeriodEnd:      existing.CancelAtPeriodEnd,
		CanceledAt:             existing.CanceledAt,
	}
	if err := s.upsertSnapshot(ctx, tx, provider, existing.UserID, snap); err != nil {
		return err
	}
	if err := s.recordPayment(ctx, tx, provider, existing.UserID, evt.Payment, types.TransactionStatusFailed); err != nil {
		return err
	}
	if _, err := s.refreshPremium(ctx, tx, existing.UserID); err != nil {
		return err
	}
	if user, err := tx.UserByID(ctx, existing.UserID); err == nil {
		email, amount, currency := user.Email, evt.Payment.AmountCents, evt.Payment.Currency
		*post = append(*post, func() { s.notifier.PaymentFailed(email, amount, currency) })
	}
	return nil
}

func (s *Service) upsertSnapshot(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, userID string, snap *SubscriptionSnapshot) error {
	if snap.ProviderSubscriptionID == "" {
		return mappingErrf("subscription snapshot without provider subscription id")
	}
	return tx.UpsertSubscription(ctx, &models.Subscription{
		UserID:                 userID,
		Provider:               provider,
		ProviderSubscriptionID: snap.ProviderSubscriptionID,
		Status:                 snap.Status,
		CurrentPeriodEnd:       snap.CurrentPeriodEnd,
		CancelAtPeriodEnd:      snap.CancelAtPeriodEnd,
		CanceledAt:             snap.CanceledAt,
	})
}

func (s *Service) recordPayment(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, userID string, p *PaymentSnapshot, status types.TransactionStatus) error {
	if p.ProviderTransactionID == "" {
		return mappingErrf("payment snapshot without provider transaction id")
	}
	var subscriptionID *string
	if p.ProviderSubscriptionID != "" {
		if row, err := tx.SubscriptionByProviderID(ctx, provider, p.ProviderSubscriptionID); err == nil {
			subscriptionID = &row.ID
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
	}
	return tx.RecordTransaction(ctx, &models.PaymentTransaction{
		UserID:                userID,
		SubscriptionID:        subscriptionID,
		Provider:              provider,
		ProviderTransactionID: p.ProviderTransactionID,
		AmountCents:           p.AmountCents,
		Currency:              p.Currency,
		Status:                status,
		Payload:               datatypes.JSON(p.Payload),
	})
}

// refreshPremium recomputes the denormalized users.is_premium cache from
// the ledger, inside the same transaction as the mutation that changed
// it.
func (s *Service) refreshPremium(ctx context.Context, tx ledger.Store, userID string) (bool, error) {
	subs, err := tx.SubscriptionsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	d := entitlement.Decide(subs, time.Now())
	if err := tx.SetUserPremium(ctx, userID, d.Entitled); err != nil {
		return false, err
	}
	return d.Entitled, nil
}

func (s *Service) resolveUser(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event) (*models.User, error) {
	if evt.CustomerID != "" {
		u, err := tx.UserByCustomerID(ctx, provider, evt.CustomerID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
	}
	if evt.CustomerEmail != "" {
		u, err := tx.UserByEmail(ctx, evt.CustomerEmail)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
	}
	return nil, mappingErrf("no resolvable user (customer_id=%q email=%q)", evt.CustomerID, evt.CustomerEmail)
}

// resolveSubscriptionOwner prefers the existing ledger row (the
// subscription id is the strongest identity we have), falling back to
// customer id / email for the first event ever seen for a subscription.
func (s *Service) resolveSubscriptionOwner(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event) (string, error) {
	row, err := tx.SubscriptionByProviderID(ctx, provider, evt.Subscription.ProviderSubscriptionID)
	if err == nil {
		return row.UserID, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return "", err
	}
	user, err := s.resolveUser(ctx, tx, provider, evt)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *Service) resolvePaymentOwner(ctx context.Context, tx ledger.Store, provider types.PaymentProvider, evt *Event) (string, error) {
	if evt.Payment.ProviderSubscriptionID != "" {
		row, err := tx.SubscriptionByProviderID(ctx, provider, evt.Payment.ProviderSubscriptionID)
		if err == nil {
			return row.UserID, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return "", err
		}
	}
	user, err := s.resolveUser(ctx, tx, provider, evt)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
