package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/maxmarketing/backend/pkg/types"
)

// History stores one generated piece of marketing content per row.
type History struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Module    types.GeneratorModule `gorm:"column:module;type:varchar(16);not null" json:"module"`
	Content   datatypes.JSON        `gorm:"column:content;type:jsonb;default:'{}'" json:"content"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func (History) TableName() string { return "histories" }
