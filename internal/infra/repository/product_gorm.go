package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 検索/価格帯/出品者/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// 公開（is_active=true）かつ、商品削除されていないものだけ
	if !q.IncludeInactive {
		tx = tx.Where("is_active = ?", true)
	}

	if q.SellerID != nil {
		tx = tx.Where("seller_id = ?", *q.SellerID)
	}

	// q titleとdescriptionを対象
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset, limit := pageOffset(q.Page, q.Limit)
	if err := tx.Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品とバリエーション在庫をまとめて作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product, variants []model.ProductVariant) (model.Product, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if len(variants) == 0 {
			return nil
		}
		for i := range variants {
			variants[i].ProductID = p.ID
		}
		return tx.Create(&variants).Error
	})
	if err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の更新（在庫は在庫APIで変える）
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"title":              p.Title,
		"description":        p.Description,
		"price":              p.Price,
		"min_order_quantity": p.MinOrderQuantity,
		"order_multiple":     p.OrderMultiple,
		"is_active":          p.IsActive,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	var list []model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("variant_key asc").
		Find(&list).Error
	if err != nil {
		return []model.ProductVariant{}, err
	}
	return list, nil
}

func (r *ProductGormRepository) FindVariant(ctx context.Context, productID int64, variantKey string) (model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		First(&v).Error
	if err != nil {
		return model.ProductVariant{}, translate(err)
	}
	return v, nil
}
