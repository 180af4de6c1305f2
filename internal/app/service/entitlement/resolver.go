package entitlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/types"
)

// Decision is the answer to "may this user access premium features
// right now", plus the period end worth surfacing to the client.
type Decision struct {
	Entitled  bool
	PeriodEnd *time.Time
}

// Decide computes entitlement from ledger rows. Any active row grants
// access; otherwise a trialing row whose period end is still in the
// future does (trial grace). Among qualifying rows the latest period end
// wins, which covers the transient provider-switch state where an old
// canceled row coexists with a fresh active one.
func Decide(subs []*models.Subscription, now time.Time) Decision {
	var d Decision
	for _, sub := range subs {
		if !sub.Current(now) {
			continue
		}
		d.Entitled = true
		if sub.CurrentPeriodEnd != nil &&
			(d.PeriodEnd == nil || sub.CurrentPeriodEnd.After(*d.PeriodEnd)) {
			d.PeriodEnd = sub.CurrentPeriodEnd
		}
	}
	return d
}

// Resolver answers entitlement questions for a user id. Callers must
// fail closed: an error means "deny", never "allow".
type Resolver interface {
	Resolve(ctx context.Context, userID string) (Decision, error)
}

type Service struct {
	store ledger.Store
	log   *zap.SugaredLogger
}

func NewService(store ledger.Store, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log}
}

// Resolve recomputes entitlement from the subscription ledger. It never
// consults the denormalized users.is_premium cache: the cache can lag
// the ledger by a webhook delivery and is only for display fast paths.
func (s *Service) Resolve(ctx context.Context, userID string) (Decision, error) {
	subs, err := s.store.SubscriptionsByUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return Decide(subs, time.Now()), nil
}

// Info shapes a decision for the subscription-status endpoint.
func (d Decision) Info() types.SubscriptionInfo {
	return types.SubscriptionInfo{Subscribed: d.Entitled, SubscriptionEnd: d.PeriodEnd}
}
