package repository

import (
	"context"
	"time"

	"lotmarket/internal/domain/model"
)

type OrderListFilter struct {
	Page     int
	Limit    int
	Status   string
	BuyerID  *int64
	SellerID *int64
	From     *time.Time
	To       *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	Create(ctx context.Context, order *model.Order) error
	UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error

	//同じキーなら同じ結果を返す
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) ([]model.Order, error)
}
