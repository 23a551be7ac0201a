package repository

import (
	"context"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// 在庫の現在値を設定し、調整履歴も残す。戻り値は差分
func (r *InventoryGormRepository) SetStock(ctx context.Context, actorUserID int64, productID int64, newStock int64, reason string) (int64, error) {
	var delta int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//現在の在庫を取得
		var p model.Product
		if err := tx.Select("id", "available_units", "total_units").Where("id = ?", productID).First(&p).Error; err != nil {
			return translate(err)
		}
		delta = newStock - p.AvailableUnits

		cols := map[string]any{"available_units": newStock}
		//入荷で総数を超えたら総数も合わせる
		if newStock > p.TotalUnits {
			cols["total_units"] = newStock
		}
		res := tx.Model(&model.Product{}).Where("id = ?", productID).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		adj := model.InventoryAdjustment{
			ProductID:   productID,
			ActorUserID: actorUserID,
			Delta:       delta,
			Reason:      reason,
		}
		return tx.Create(&adj).Error
	})
	if err != nil {
		return 0, err
	}
	return delta, nil
}

// 在庫が足りるときだけ減らす
// 条件付きUPDATE1本なので、同時に来ても在庫はマイナスにならない
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND available_units >= ?", productID, qty).
		UpdateColumn("available_units", gorm.Expr("available_units - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

func (r *InventoryGormRepository) DecreaseVariantStockIfEnough(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("product_id = ? AND variant_key = ? AND stock >= ?", productID, variantKey, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）
// 論理削除済みの商品にも戻す
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("available_units", gorm.Expr("available_units + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryGormRepository) IncreaseVariantStock(ctx context.Context, productID int64, variantKey string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 調整履歴（新しい順）
func (r *InventoryGormRepository) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	var list []model.InventoryAdjustment
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id desc").
		Find(&list).Error
	if err != nil {
		return []model.InventoryAdjustment{}, err
	}
	return list, nil
}
