package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/tool"
	"github.com/maxmarketing/backend/pkg/types"
)

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) ClaimEvent(ctx context.Context, ev *models.WebhookEvent) (bool, error) {
	if ev.ID == "" {
		ev.ID = tool.GenerateUUIDV7()
	}
	if ev.Status == "" {
		ev.Status = models.WebhookEventStatusProcessed
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
		DoNothing: true,
	}).Create(ev)
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim webhook event: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) MarkEventError(ctx context.Context, provider types.PaymentProvider, eventID string, result []byte) error {
	updates := map[string]any{"status": models.WebhookEventStatusError}
	if len(result) > 0 {
		updates["result"] = datatypes.JSON(result)
	}
	err := s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to mark webhook event error: %w", err)
	}
	return nil
}

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "current_period_end", "cancel_at_period_end", "canceled_at", "updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) SubscriptionByProviderID(ctx context.Context, provider types.PaymentProvider, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", provider, providerSubscriptionID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) SubscriptionsByUser(ctx context.Context, userID string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) RecordTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == "" {
		txn.ID = tool.GenerateUUIDV7()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_transaction_id"}},
		DoNothing: true,
	}).Create(txn).Error
	if err != nil {
		return fmt.Errorf("failed to record payment transaction: %w", err)
	}
	return nil
}

func (s *gormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}
	return &u, nil
}

func (s *gormStore) UserByCustomerID(ctx context.Context, provider types.PaymentProvider, customerID string) (*models.User, error) {
	var u models.User
	q := s.db.WithContext(ctx)
	switch provider {
	case types.PaymentProviderStripe:
		q = q.Where("stripe_customer_id = ?", customerID)
	case types.PaymentProviderPayPal:
		q = q.Where("paypal_customer_id = ?", customerID)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user by customer id: %w", err)
	}
	return &u, nil
}

func (s *gormStore) LinkCustomer(ctx context.Context, userID string, provider types.PaymentProvider, customerID string) error {
	if customerID == "" {
		return nil
	}
	var column string
	switch provider {
	case types.PaymentProviderStripe:
		column = "stripe_customer_id"
	case types.PaymentProviderPayPal:
		column = "paypal_customer_id"
	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND "+column+" IS NULL", userID).
		Update(column, customerID).Error
	if err != nil {
		return fmt.Errorf("failed to link customer id: %w", err)
	}
	return nil
}

func (s *gormStore) SetUserPremium(ctx context.Context, userID string, premium bool) error {
	updates := map[string]any{"is_premium": premium}
	if premium {
		// premium_since records the first grant only.
		updates["premium_since"] = gorm.Expr("COALESCE(premium_since, ?)", time.Now())
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update premium flag: %w", err)
	}
	return nil
}
