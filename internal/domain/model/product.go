package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 表示用のバリエーション定義（例: color → [red, blue]）
type Variation struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// 出品ロット
type Product struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID         int64           `gorm:"not null;index" json:"sellerId"`
	Title            string          `gorm:"type:varchar(255);not null" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	Price            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	AvailableUnits   int64           `gorm:"not null" json:"availableUnits"`
	TotalUnits       int64           `gorm:"not null" json:"totalUnits"`
	MinOrderQuantity int64           `gorm:"not null;default:1" json:"minOrderQuantity"`
	OrderMultiple    int64           `gorm:"not null;default:1" json:"orderMultiple"`
	IsActive         bool            `gorm:"not null;default:false" json:"isActive"`
	Variations       []Variation     `gorm:"type:text;serializer:json" json:"variations"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// バリエーションごとの在庫
// VariantKeyはVariationKeyで正規化した値
type ProductVariant struct {
	ID         int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64            `gorm:"not null;uniqueIndex:idx_product_variant_key" json:"productId"`
	VariantKey string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_product_variant_key" json:"variantKey"`
	Stock      int64            `gorm:"not null" json:"stock"`
	Price      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"price,omitempty"`
	CreatedAt  time.Time        `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time        `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// 数量がMOQと発注単位を満たすか
func (p Product) AcceptsQuantity(qty int64) bool {
	if qty < p.MinOrderQuantity {
		return false
	}
	if p.OrderMultiple > 1 && qty%p.OrderMultiple != 0 {
		return false
	}
	return true
}

// バリエーション価格があればそれを優先
func (p Product) EffectivePrice(v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}
