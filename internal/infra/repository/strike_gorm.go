package repository

import (
	"context"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
)

type StrikeGormRepository struct {
	db *gorm.DB
}

func NewStrikeGormRepository(db *gorm.DB) *StrikeGormRepository {
	return &StrikeGormRepository{db: db}
}

func (r *StrikeGormRepository) Create(ctx context.Context, strike *model.Strike) error {
	return r.db.WithContext(ctx).Create(strike).Error
}

func (r *StrikeGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Strike, error) {
	var list []model.Strike
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&list).Error; err != nil {
		return []model.Strike{}, err
	}
	return list, nil
}
