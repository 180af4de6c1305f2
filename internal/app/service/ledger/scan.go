package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/types"
)

// Admin listing over the audit tables, used by operators to page through
// charge history and to find webhook events stuck in status error.

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.PaymentTransaction `json:"items"`
	Total int64                        `json:"total"`
}

type ScanWebhookEventsResponse struct {
	Items []*models.WebhookEvent `json:"items"`
	Total int64                  `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *gormStore) scan(ctx context.Context, model any, req *ScanRequest, out any) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(model)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(out).Error; err != nil {
		return 0, fmt.Errorf("failed to list rows: %w", err)
	}
	return total, nil
}

// Scanner is the read-only admin listing surface.
type Scanner interface {
	ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanTransactionsResponse, error)
	ScanWebhookEvents(ctx context.Context, req *ScanRequest) (*ScanWebhookEventsResponse, error)
}

func NewScanner(db *gorm.DB) Scanner {
	return &gormStore{db: db}
}

func (s *gormStore) ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanTransactionsResponse, error) {
	var rows []*models.PaymentTransaction
	total, err := s.scan(ctx, &models.PaymentTransaction{}, req, &rows)
	if err != nil {
		return nil, err
	}
	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}

func (s *gormStore) ScanWebhookEvents(ctx context.Context, req *ScanRequest) (*ScanWebhookEventsResponse, error) {
	var rows []*models.WebhookEvent
	total, err := s.scan(ctx, &models.WebhookEvent{}, req, &rows)
	if err != nil {
		return nil, err
	}
	return &ScanWebhookEventsResponse{Items: rows, Total: total}, nil
}
