package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 配送先のスナップショット
type ShippingDetails struct {
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// 支払い情報のスナップショット（カード番号などは持たない）
type PaymentDetails struct {
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

// 1チェックアウトでも出品者ごとに1注文
type Order struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code                  string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	BuyerID               int64           `gorm:"not null;index;uniqueIndex:idx_orders_idem" json:"buyerId"`
	SellerID              int64           `gorm:"not null;index;uniqueIndex:idx_orders_idem" json:"sellerId"`
	CheckoutID            string          `gorm:"type:varchar(36);not null;index" json:"checkoutId"`
	TotalAmount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	Status                OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippingDetails       ShippingDetails `gorm:"type:text;serializer:json" json:"shippingDetails"`
	PaymentDetails        PaymentDetails  `gorm:"type:text;serializer:json" json:"paymentDetails"`
	EstimatedDeliveryDate *time.Time      `json:"estimatedDeliveryDate"`
	IdempotencyKey        *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_idem" json:"-"`
	CreatedAt             time.Time       `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time       `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
