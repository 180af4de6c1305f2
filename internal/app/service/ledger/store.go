package ledger

import (
	"context"
	"errors"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/types"
)

// ErrNotFound is returned by lookups when no row matches. Callers use it
// to distinguish "the payload references something we do not know"
// (a mapping problem) from the store being unreachable (a dependency
// problem that must bubble up so the provider retries).
var ErrNotFound = errors.New("ledger: not found")

// Store is the persistence surface of the entitlement core. The gorm
// implementation backs production; tests substitute an in-memory one.
//
// All conflict resolution lives in the store: ClaimEvent is an
// insert-or-ignore on (provider, event_id) and UpsertSubscription an
// insert-or-update on (provider, provider_subscription_id), so two
// concurrent deliveries of the same event serialize at the database
// rather than through application locks.
type Store interface {
	// Tx runs fn inside one transaction; every Store call made through
	// the argument shares that transaction.
	Tx(ctx context.Context, fn func(Store) error) error

	// ClaimEvent inserts the webhook event row, ignoring conflicts on
	// (provider, event_id). It reports false when the event was already
	// claimed by an earlier (or concurrent) delivery.
	ClaimEvent(ctx context.Context, ev *models.WebhookEvent) (bool, error)
	// MarkEventError flips a claimed event to status error and attaches
	// the failure detail for operator remediation.
	MarkEventError(ctx context.Context, provider types.PaymentProvider, eventID string, result []byte) error

	// UpsertSubscription creates the row or overwrites status,
	// current_period_end, cancel_at_period_end and canceled_at with the
	// snapshot carried by sub. Identity columns are immutable.
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	SubscriptionByProviderID(ctx context.Context, provider types.PaymentProvider, providerSubscriptionID string) (*models.Subscription, error)
	SubscriptionsByUser(ctx context.Context, userID string) ([]*models.Subscription, error)

	// RecordTransaction appends a charge row; replays of the same
	// provider transaction id are ignored.
	RecordTransaction(ctx context.Context, txn *models.PaymentTransaction) error

	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByCustomerID(ctx context.Context, provider types.PaymentProvider, customerID string) (*models.User, error)
	// LinkCustomer stores the provider customer id on the user if not
	// already set.
	LinkCustomer(ctx context.Context, userID string, provider types.PaymentProvider, customerID string) error
	// SetUserPremium refreshes the denormalized premium cache;
	// premium_since is set on the first transition to premium and then
	// left alone.
	SetUserPremium(ctx context.Context, userID string, premium bool) error
}
