package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"lotmarket/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	SellerID *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	//出品者自身の一覧では非公開も含める
	IncludeInactive bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product, variants []model.ProductVariant) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	FindVariant(ctx context.Context, productID int64, variantKey string) (model.ProductVariant, error)
}
