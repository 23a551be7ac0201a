package repository

import (
	"context"

	"lotmarket/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫の現在値を設定（調整履歴も作成）
	SetStock(ctx context.Context, actorUserID int64, productID int64, newStock int64, reason string) (delta int64, err error)

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
	DecreaseVariantStockIfEnough(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error
	IncreaseVariantStock(ctx context.Context, productID int64, variantKey string, qty int64) error

	ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error)
}
