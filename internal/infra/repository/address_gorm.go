package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

// 配送先として更新できる列（宛名・国際住所・連絡先）
var addressColumns = []string{
	"name", "company",
	"line1", "line2", "city", "region", "postal_code", "country",
	"phone",
	"updated_at",
}

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

// 最初の1件は自動でデフォルトになる
func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Address{}).Where("user_id = ?", address.UserID).Count(&n).Error; err != nil {
			return err
		}
		address.IsDefault = n == 0
		return tx.Create(&address).Error
	})
	if err != nil {
		return model.Address{}, err
	}
	return address, nil
}

// デフォルトが先頭、残りは最近更新した順
func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	var list []model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("updated_at DESC").
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	if err := r.db.WithContext(ctx).Where("id = ?", addressID).First(&a).Error; err != nil {
		return model.Address{}, translate(err)
	}
	return a, nil
}

// is_defaultは触らない（SetDefaultで切り替える）
func (r *addressGormRepository) Update(ctx context.Context, address model.Address) error {
	res := r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("id = ?", address.ID).
		Select(addressColumns).
		Updates(address)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// デフォルトを消したら最近更新した住所を繰り上げる
func (r *addressGormRepository) Delete(ctx context.Context, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Address
		if err := tx.Where("id = ?", addressID).First(&a).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&model.Address{}, a.ID).Error; err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}

		var next model.Address
		err := tx.Where("user_id = ?", a.UserID).Order("updated_at DESC").Order("id DESC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&model.Address{}).Where("id = ?", next.ID).UpdateColumn("is_default", true).Error
	})
}

// user内のdefaultを1回のUPDATEで1つにする
func (r *addressGormRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Address
		if err := tx.Where("id = ? AND user_id = ?", addressID, userID).First(&a).Error; err != nil {
			return translate(err)
		}
		return tx.Model(&model.Address{}).
			Where("user_id = ?", userID).
			UpdateColumn("is_default", gorm.Expr("id = ?", addressID)).Error
	})
}
