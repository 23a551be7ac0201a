package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 作成後は変更しない
type OrderItem struct {
	ID                 int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID            int64             `gorm:"not null;index" json:"orderId"`
	ProductID          int64             `gorm:"not null;index" json:"productId"`
	TitleSnapshot      string            `gorm:"type:varchar(255);not null" json:"title"`
	Quantity           int64             `gorm:"not null" json:"quantity"`
	UnitPrice          decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	TotalPrice         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"totalPrice"`
	SelectedVariations map[string]string `gorm:"type:text;serializer:json" json:"selectedVariations,omitempty"`
	VariantKey         string            `gorm:"type:varchar(255);not null;default:''" json:"variantKey,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;autoCreateTime" json:"createdAt"`
}
