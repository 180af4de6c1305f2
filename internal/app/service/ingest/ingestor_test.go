package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/maxmarketing/backend/internal/app/service/ledger"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/tool"
	"github.com/maxmarketing/backend/pkg/types"
)

// memStore is an in-memory ledger.Store with transaction semantics:
// Tx runs the callback against a deep copy and only merges it back on
// success, mirroring the rollback behavior the ingestor relies on.
type memStore struct {
	users      map[string]*models.User
	subs       map[string]*models.Subscription
	events     map[string]*models.WebhookEvent
	txns       map[string]*models.PaymentTransaction
	failUpsert bool
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*models.User{},
		subs:   map[string]*models.Subscription{},
		events: map[string]*models.WebhookEvent{},
		txns:   map[string]*models.PaymentTransaction{},
	}
}

func subKey(provider types.PaymentProvider, id string) string { return string(provider) + "|" + id }

func (m *memStore) clone() *memStore {
	c := newMemStore()
	c.failUpsert = m.failUpsert
	for k, v := range m.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range m.subs {
		s := *v
		c.subs[k] = &s
	}
	for k, v := range m.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range m.txns {
		t := *v
		c.txns[k] = &t
	}
	return c
}

func (m *memStore) Tx(_ context.Context, fn func(ledger.Store) error) error {
	work := m.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.users, m.subs, m.events, m.txns = work.users, work.subs, work.events, work.txns
	return nil
}

func (m *memStore) ClaimEvent(_ context.Context, ev *models.WebhookEvent) (bool, error) {
	key := subKey(ev.Provider, ev.EventID)
	if _, ok := m.events[key]; ok {
		return false, nil
	}
	row := *ev
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	m.events[key] = &row
	return true, nil
}

func (m *memStore) MarkEventError(_ context.Context, provider types.PaymentProvider, eventID string, result []byte) error {
	ev, ok := m.events[subKey(provider, eventID)]
	if !ok {
		return ledger.ErrNotFound
	}
	ev.Status = models.WebhookEventStatusError
	res := datatypes.JSON(result)
	ev.Result = &res
	return nil
}

func (m *memStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	if m.failUpsert {
		return errors.New("storage unavailable")
	}
	key := subKey(sub.Provider, sub.ProviderSubscriptionID)
	if existing, ok := m.subs[key]; ok {
		existing.Status = sub.Status
		existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
		existing.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		existing.CanceledAt = sub.CanceledAt
		return nil
	}
	row := *sub
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	m.subs[key] = &row
	return nil
}

func (m *memStore) SubscriptionByProviderID(_ context.Context, provider types.PaymentProvider, id string) (*models.Subscription, error) {
	if s, ok := m.subs[subKey(provider, id)]; ok {
		row := *s
		return &row, nil
	}
	return nil, ledger.ErrNotFound
}

func (m *memStore) SubscriptionsByUser(_ context.Context, userID string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			row := *s
			out = append(out, &row)
		}
	}
	return out, nil
}

func (m *memStore) RecordTransaction(_ context.Context, txn *models.PaymentTransaction) error {
	key := subKey(txn.Provider, txn.ProviderTransactionID)
	if _, ok := m.txns[key]; ok {
		return nil
	}
	row := *txn
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	m.txns[key] = &row
	return nil
}

func (m *memStore) UserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		row := *u
		return &row, nil
	}
	return nil, ledger.ErrNotFound
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			row := *u
			return &row, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memStore) UserByCustomerID(_ context.Context, provider types.PaymentProvider, customerID string) (*models.User, error) {
	for _, u := range m.users {
		var linked *string
		switch provider {
		case types.PaymentProviderStripe:
			linked = u.StripeCustomerID
		case types.PaymentProviderPayPal:
			linked = u.PayPalCustomerID
		}
		if linked != nil && *linked == customerID {
			row := *u
			return &row, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memStore) LinkCustomer(_ context.Context, userID string, provider types.PaymentProvider, customerID string) error {
	u, ok := m.users[userID]
	if !ok {
		return ledger.ErrNotFound
	}
	if customerID == "" {
		return nil
	}
	switch provider {
	case types.PaymentProviderStripe:
		if u.StripeCustomerID == nil {
			u.StripeCustomerID = &customerID
		}
	case types.PaymentProviderPayPal:
		if u.PayPalCustomerID == nil {
			u.PayPalCustomerID = &customerID
		}
	}
	return nil
}

func (m *memStore) SetUserPremium(_ context.Context, userID string, premium bool) error {
	u, ok := m.users[userID]
	if !ok {
		return ledger.ErrNotFound
	}
	u.IsPremium = premium
	if premium && u.PremiumSince == nil {
		now := time.Now()
		u.PremiumSince = &now
	}
	return nil
}

type recordingNotifier struct {
	welcomes  []string
	cancels   []string
	receipts  []string
	failures  []string
}

func (n *recordingNotifier) WelcomePremium(email string) { n.welcomes = append(n.welcomes, email) }
func (n *recordingNotifier) SubscriptionCanceled(email string, _ *time.Time) {
	n.cancels = append(n.cancels, email)
}
func (n *recordingNotifier) PaymentReceipt(email string, _ int64, _ string) {
	n.receipts = append(n.receipts, email)
}
func (n *recordingNotifier) PaymentFailed(email string, _ int64, _ string) {
	n.failures = append(n.failures, email)
}

type fakeAdapter struct {
	provider     types.PaymentProvider
	eventID      string
	verifyErr    error
	event        *Event
	translateErr error
}

func (a *fakeAdapter) Provider() types.PaymentProvider { return a.provider }
func (a *fakeAdapter) Verify(context.Context, []byte, http.Header) (string, error) {
	return a.eventID, a.verifyErr
}
func (a *fakeAdapter) Translate(context.Context, json.RawMessage) (*Event, error) {
	return a.event, a.translateErr
}

func newTestService(store ledger.Store, notifier Notifier, adapter Adapter) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      zap.NewNop().Sugar(),
		adapters: map[types.PaymentProvider]Adapter{adapter.Provider(): adapter},
	}
}

func seedUser(store *memStore, email string) *models.User {
	u := &models.User{ID: tool.GenerateUUIDV7(), Email: email}
	store.users[u.ID] = u
	return u
}

func futureTime() *time.Time {
	t := time.Now().Add(30 * 24 * time.Hour)
	return &t
}

func TestCheckoutCompletedGrantsPremium(t *testing.T) {
	store := newMemStore()
	user := seedUser(store, "alice@example.com")
	notifier := &recordingNotifier{}

	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_1",
		event: &Event{
			Kind:          KindCheckoutCompleted,
			CustomerEmail: "alice@example.com",
			CustomerID:    "cus_1",
			Subscription: &SubscriptionSnapshot{
				ProviderSubscriptionID: "sub_1",
				Status:                 types.SubscriptionStatusActive,
				CurrentPeriodEnd:       futureTime(),
			},
		},
	}
	svc := newTestService(store, notifier, adapter)

	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.NoError(t, err)

	ev := store.events[subKey(types.PaymentProviderStripe, "evt_1")]
	require.NotNil(t, ev)
	require.Equal(t, models.WebhookEventStatusProcessed, ev.Status)

	sub := store.subs[subKey(types.PaymentProviderStripe, "sub_1")]
	require.NotNil(t, sub)
	require.Equal(t, user.ID, sub.UserID)
	require.Equal(t, types.SubscriptionStatusActive, sub.Status)

	u := store.users[user.ID]
	require.True(t, u.IsPremium)
	require.NotNil(t, u.PremiumSince)
	require.NotNil(t, u.StripeCustomerID)
	require.Equal(t, "cus_1", *u.StripeCustomerID)

	require.Equal(t, []string{"alice@example.com"}, notifier.welcomes)
}

func TestDuplicateDeliveryShortCircuits(t *testing.T) {
	store := newMemStore()
	seedUser(store, "alice@example.com")
	notifier := &recordingNotifier{}

	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_dup",
		event: &Event{
			Kind:          KindCheckoutCompleted,
			CustomerEmail: "alice@example.com",
			Subscription: &SubscriptionSnapshot{
				ProviderSubscriptionID: "sub_1",
				Status:                 types.SubscriptionStatusActive,
			},
		},
	}
	svc := newTestService(store, notifier, adapter)

	require.NoError(t, svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil))
	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.ErrorIs(t, err, ErrEventAlreadyProcessed)
	require.Len(t, notifier.welcomes, 1)
}

func TestMappingFailureRecordsErrorAndAcks(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	adapter := &fakeAdapter{
		provider:     types.PaymentProviderStripe,
		eventID:      "evt_bad",
		translateErr: mappingErrf("unknown status %q", "paused"),
	}
	svc := newTestService(store, notifier, adapter)

	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.NoError(t, err)

	ev := store.events[subKey(types.PaymentProviderStripe, "evt_bad")]
	require.NotNil(t, ev)
	require.Equal(t, models.WebhookEventStatusError, ev.Status)
	require.NotNil(t, ev.Result)
	require.Empty(t, store.subs)
	require.Empty(t, notifier.welcomes)
}

func TestUnresolvableUserIsMappingFailure(t *testing.T) {
	store := newMemStore()
	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_nouser",
		event: &Event{
			Kind:          KindCheckoutCompleted,
			CustomerEmail: "stranger@example.com",
			Subscription: &SubscriptionSnapshot{
				ProviderSubscriptionID: "sub_x",
				Status:                 types.SubscriptionStatusActive,
			},
		},
	}
	svc := newTestService(store, &recordingNotifier{}, adapter)

	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.NoError(t, err)
	ev := store.events[subKey(types.PaymentProviderStripe, "evt_nouser")]
	require.Equal(t, models.WebhookEventStatusError, ev.Status)
}

func TestStorageFailureRollsBackClaim(t *testing.T) {
	store := newMemStore()
	seedUser(store, "alice@example.com")
	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_retry",
		event: &Event{
			Kind:          KindSubscriptionSync,
			CustomerEmail: "alice@example.com",
			Subscription: &SubscriptionSnapshot{
				ProviderSubscriptionID: "sub_1",
				Status:                 types.SubscriptionStatusActive,
			},
		},
	}
	svc := newTestService(store, &recordingNotifier{}, adapter)

	store.failUpsert = true
	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEventAlreadyProcessed)
	// The claim rolled back with the transaction, so the retry is not
	// swallowed by the idempotency gate.
	require.Empty(t, store.events)

	store.failUpsert = false
	require.NoError(t, svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil))
	require.Len(t, store.subs, 1)
}

func TestSignatureFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	adapter := &fakeAdapter{
		provider:  types.PaymentProviderStripe,
		verifyErr: fmt.Errorf("%w: bad signature", ErrSignatureInvalid),
	}
	svc := newTestService(store, &recordingNotifier{}, adapter)

	err := svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	require.ErrorIs(t, err, ErrSignatureInvalid)
	require.Empty(t, store.events)
	require.Empty(t, store.subs)
}

func TestSnapshotReplayIsLastWriteWins(t *testing.T) {
	store := newMemStore()
	user := seedUser(store, "alice@example.com")
	notifier := &recordingNotifier{}

	deliver := func(eventID string, snap *SubscriptionSnapshot, kind EventKind) error {
		adapter := &fakeAdapter{
			provider: types.PaymentProviderStripe,
			eventID:  eventID,
			event: &Event{
				Kind:          kind,
				CustomerEmail: "alice@example.com",
				Subscription:  snap,
			},
		}
		return newTestService(store, notifier, adapter).Handle(
			context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil)
	}

	require.NoError(t, deliver("evt_a", &SubscriptionSnapshot{
		ProviderSubscriptionID: "sub_1",
		Status:                 types.SubscriptionStatusActive,
		CurrentPeriodEnd:       futureTime(),
	}, KindSubscriptionSync))
	require.True(t, store.users[user.ID].IsPremium)

	canceledAt := time.Now()
	require.NoError(t, deliver("evt_b", &SubscriptionSnapshot{
		ProviderSubscriptionID: "sub_1",
		Status:                 types.SubscriptionStatusCanceled,
		CanceledAt:             &canceledAt,
	}, KindSubscriptionCanceled))
	require.False(t, store.users[user.ID].IsPremium)
	require.Equal(t, types.SubscriptionStatusCanceled, store.subs[subKey(types.PaymentProviderStripe, "sub_1")].Status)
	require.Equal(t, []string{"alice@example.com"}, notifier.cancels)

	// A later snapshot reactivates; each event carries full state.
	require.NoError(t, deliver("evt_c", &SubscriptionSnapshot{
		ProviderSubscriptionID: "sub_1",
		Status:                 types.SubscriptionStatusActive,
		CurrentPeriodEnd:       futureTime(),
	}, KindSubscriptionSync))
	require.True(t, store.users[user.ID].IsPremium)
}

func TestPaymentFailedMarksPastDue(t *testing.T) {
	store := newMemStore()
	user := seedUser(store, "alice@example.com")
	user.IsPremium = true
	store.subs[subKey(types.PaymentProviderStripe, "sub_1")] = &models.Subscription{
		ID:                     tool.GenerateUUIDV7(),
		UserID:                 user.ID,
		Provider:               types.PaymentProviderStripe,
		ProviderSubscriptionID: "sub_1",
		Status:                 types.SubscriptionStatusActive,
		CurrentPeriodEnd:       futureTime(),
	}
	notifier := &recordingNotifier{}
	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_fail",
		event: &Event{
			Kind: KindPaymentFailed,
			Payment: &PaymentSnapshot{
				ProviderTransactionID:  "in_1",
				ProviderSubscriptionID: "sub_1",
				AmountCents:            1999,
				Currency:               "eur",
			},
		},
	}
	svc := newTestService(store, notifier, adapter)

	require.NoError(t, svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil))

	sub := store.subs[subKey(types.PaymentProviderStripe, "sub_1")]
	require.Equal(t, types.SubscriptionStatusPastDue, sub.Status)
	require.False(t, store.users[user.ID].IsPremium)

	txn := store.txns[subKey(types.PaymentProviderStripe, "in_1")]
	require.NotNil(t, txn)
	require.Equal(t, types.TransactionStatusFailed, txn.Status)
	require.Equal(t, []string{"alice@example.com"}, notifier.failures)
}

func TestPaymentSucceededRecordsTransaction(t *testing.T) {
	store := newMemStore()
	user := seedUser(store, "alice@example.com")
	store.subs[subKey(types.PaymentProviderStripe, "sub_1")] = &models.Subscription{
		ID:                     tool.GenerateUUIDV7(),
		UserID:                 user.ID,
		Provider:               types.PaymentProviderStripe,
		ProviderSubscriptionID: "sub_1",
		Status:                 types.SubscriptionStatusActive,
	}
	notifier := &recordingNotifier{}
	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_pay",
		event: &Event{
			Kind:          KindPaymentSucceeded,
			CustomerEmail: "alice@example.com",
			Payment: &PaymentSnapshot{
				ProviderTransactionID:  "in_2",
				ProviderSubscriptionID: "sub_1",
				AmountCents:            1999,
				Currency:               "eur",
				Payload:                []byte(`{"id":"in_2","amount_paid":1999}`),
			},
		},
	}
	svc := newTestService(store, notifier, adapter)

	require.NoError(t, svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil))

	txn := store.txns[subKey(types.PaymentProviderStripe, "in_2")]
	require.NotNil(t, txn)
	require.Equal(t, types.TransactionStatusCompleted, txn.Status)
	require.Equal(t, user.ID, txn.UserID)
	require.NotNil(t, txn.SubscriptionID)
	require.JSONEq(t, `{"id":"in_2","amount_paid":1999}`, string(txn.Payload))
	require.Equal(t, []string{"alice@example.com"}, notifier.receipts)
}

func TestIgnoredEventStillClaims(t *testing.T) {
	store := newMemStore()
	adapter := &fakeAdapter{
		provider: types.PaymentProviderStripe,
		eventID:  "evt_ignored",
		event:    &Event{Kind: KindIgnored},
	}
	svc := newTestService(store, &recordingNotifier{}, adapter)

	require.NoError(t, svc.Handle(context.Background(), types.PaymentProviderStripe, []byte(`{}`), nil))
	ev := store.events[subKey(types.PaymentProviderStripe, "evt_ignored")]
	require.NotNil(t, ev)
	require.Equal(t, models.WebhookEventStatusProcessed, ev.Status)
}
