package history

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/tool"
	"github.com/maxmarketing/backend/pkg/types"
)

var ErrNotFound = errors.New("history not found")

// Service owns the generated-content history rows. Every operation is
// scoped to the owning user; there is no cross-user access path.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// List returns the user's history, newest first, optionally filtered to
// one generator module.
func (s *Service) List(ctx context.Context, userID string, module *types.GeneratorModule) ([]models.History, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if module != nil {
		q = q.Where("module = ?", *module)
	}
	var rows []models.History
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) Create(ctx context.Context, userID string, module types.GeneratorModule, content []byte) (*models.History, error) {
	row := &models.History{
		ID:      tool.GenerateUUIDV7(),
		UserID:  userID,
		Module:  module,
		Content: datatypes.JSON(content),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.History{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
