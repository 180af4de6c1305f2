package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/types"
)

func tp(t time.Time) *time.Time { return &t }

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name      string
		subs      []*models.Subscription
		entitled  bool
		periodEnd *time.Time
	}{
		{name: "no subscriptions", subs: nil, entitled: false},
		{
			name:      "active grants access",
			subs:      []*models.Subscription{{Status: types.SubscriptionStatusActive, CurrentPeriodEnd: tp(future)}},
			entitled:  true,
			periodEnd: tp(future),
		},
		{
			name:      "active without period end still grants",
			subs:      []*models.Subscription{{Status: types.SubscriptionStatusActive}},
			entitled:  true,
			periodEnd: nil,
		},
		{
			name:      "trialing with future period end grants",
			subs:      []*models.Subscription{{Status: types.SubscriptionStatusTrialing, CurrentPeriodEnd: tp(future)}},
			entitled:  true,
			periodEnd: tp(future),
		},
		{
			name:     "trialing with elapsed period end denies",
			subs:     []*models.Subscription{{Status: types.SubscriptionStatusTrialing, CurrentPeriodEnd: tp(past)}},
			entitled: false,
		},
		{
			name:     "trialing without period end denies",
			subs:     []*models.Subscription{{Status: types.SubscriptionStatusTrialing}},
			entitled: false,
		},
		{
			name:     "past_due denies",
			subs:     []*models.Subscription{{Status: types.SubscriptionStatusPastDue, CurrentPeriodEnd: tp(future)}},
			entitled: false,
		},
		{
			name:     "canceled denies even with future period end",
			subs:     []*models.Subscription{{Status: types.SubscriptionStatusCanceled, CurrentPeriodEnd: tp(future)}},
			entitled: false,
		},
		{
			name: "provider switch: canceled old row plus active new row grants",
			subs: []*models.Subscription{
				{Provider: types.PaymentProviderStripe, Status: types.SubscriptionStatusCanceled, CurrentPeriodEnd: tp(past)},
				{Provider: types.PaymentProviderPayPal, Status: types.SubscriptionStatusActive, CurrentPeriodEnd: tp(future)},
			},
			entitled:  true,
			periodEnd: tp(future),
		},
		{
			name: "latest qualifying period end wins",
			subs: []*models.Subscription{
				{Status: types.SubscriptionStatusActive, CurrentPeriodEnd: tp(now.Add(24 * time.Hour))},
				{Status: types.SubscriptionStatusTrialing, CurrentPeriodEnd: tp(future)},
			},
			entitled:  true,
			periodEnd: tp(future),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.subs, now)
			require.Equal(t, tc.entitled, d.Entitled)
			if tc.periodEnd == nil {
				require.Nil(t, d.PeriodEnd)
			} else {
				require.NotNil(t, d.PeriodEnd)
				require.True(t, tc.periodEnd.Equal(*d.PeriodEnd))
			}
		})
	}
}

type stubStore struct {
	ledger.Store
	subs []*models.Subscription
	err  error
}

func (s *stubStore) SubscriptionsByUser(_ context.Context, _ string) ([]*models.Subscription, error) {
	return s.subs, s.err
}

func TestResolveFromLedger(t *testing.T) {
	future := time.Now().Add(time.Hour)
	svc := NewService(&stubStore{subs: []*models.Subscription{
		{Status: types.SubscriptionStatusActive, CurrentPeriodEnd: &future},
	}}, zap.NewNop().Sugar())

	d, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, d.Entitled)

	info := d.Info()
	require.True(t, info.Subscribed)
	require.NotNil(t, info.SubscriptionEnd)
}

func TestResolveStorageErrorPropagates(t *testing.T) {
	svc := NewService(&stubStore{err: errors.New("db down")}, zap.NewNop().Sugar())
	_, err := svc.Resolve(context.Background(), "u1")
	require.Error(t, err)
}
