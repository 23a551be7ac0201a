package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

// 請求書の依頼先（Kafka / ログ）
type InvoiceNotifier interface {
	RequestInvoice(ctx context.Context, req model.InvoiceRequest) error
}

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	addresses  repo.AddressRepository
	users      repo.UserRepository
	notifier   InvoiceNotifier
	logger     *slog.Logger
	commission decimal.Decimal
	tracer     trace.Tracer

	now             func() time.Time
	newID           func() string
	dispatchTimeout time.Duration
	inflight        sync.WaitGroup
}

type OrderDeps struct {
	Tx         repo.TransactionManager
	Orders     repo.OrderRepository
	OrderItems repo.OrderItemRepository
	Addresses  repo.AddressRepository
	Users      repo.UserRepository
	Notifier   InvoiceNotifier
	Logger     *slog.Logger
	Commission decimal.Decimal
}

func NewOrderUsecase(d OrderDeps) *OrderUsecase {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderUsecase{
		tx:              d.Tx,
		orders:          d.Orders,
		orderItems:      d.OrderItems,
		addresses:       d.Addresses,
		users:           d.Users,
		notifier:        d.Notifier,
		logger:          logger.With("component", "order"),
		commission:      d.Commission,
		tracer:          otel.Tracer("lotmarket/usecase"),
		now:             time.Now,
		newID:           uuid.NewString,
		dispatchTimeout: 10 * time.Second,
	}
}

// 送信中の請求書依頼を待つ（シャットダウン時）
func (u *OrderUsecase) Wait() {
	u.inflight.Wait()
}

type OrderItemOutput struct {
	ID                 int64             `json:"id"`
	ProductID          int64             `json:"productId"`
	Title              string            `json:"title"`
	Quantity           int64             `json:"quantity"`
	UnitPrice          string            `json:"unitPrice"`
	TotalPrice         string            `json:"totalPrice"`
	SelectedVariations map[string]string `json:"selectedVariations,omitempty"`
	VariantKey         string            `json:"variantKey,omitempty"`
}

type OrderOutput struct {
	ID                    int64                 `json:"id"`
	Code                  string                `json:"code"`
	CheckoutID            string                `json:"checkoutId"`
	BuyerID               int64                 `json:"buyerId"`
	SellerID              int64                 `json:"sellerId"`
	Status                model.OrderStatus     `json:"status"`
	TotalAmount           string                `json:"totalAmount"`
	SellerPayout          string                `json:"sellerPayout,omitempty"`
	ShippingDetails       model.ShippingDetails `json:"shippingDetails"`
	PaymentDetails        model.PaymentDetails  `json:"paymentDetails"`
	EstimatedDeliveryDate *time.Time            `json:"estimatedDeliveryDate"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
	Items                 []OrderItemOutput     `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	From   *time.Time
	To     *time.Time
	//管理者のみ
	BuyerID  *int64
	SellerID *int64
}

// 買い手の注文一覧
func (u *OrderUsecase) ListMyOrders(ctx context.Context, buyerID int64, in ListOrdersInput) (OrderListOutput, error) {
	if buyerID <= 0 {
		return OrderListOutput{}, errUnauthorized()
	}
	in.BuyerID = &buyerID
	in.SellerID = nil
	return u.list(ctx, in, false)
}

// 出品者が受けた注文一覧
func (u *OrderUsecase) ListSellerOrders(ctx context.Context, sellerID int64, in ListOrdersInput) (OrderListOutput, error) {
	if sellerID <= 0 {
		return OrderListOutput{}, errUnauthorized()
	}
	in.SellerID = &sellerID
	in.BuyerID = nil
	return u.list(ctx, in, true)
}

// 管理者の注文一覧
func (u *OrderUsecase) AdminListOrders(ctx context.Context, in ListOrdersInput) (OrderListOutput, error) {
	return u.list(ctx, in, true)
}

func (u *OrderUsecase) list(ctx context.Context, in ListOrdersInput, withPayout bool) (OrderListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}
	if in.Status != "" && !model.OrderStatus(in.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	orders, total, err := u.orders.List(ctx, repo.OrderListFilter{
		Page:     page,
		Limit:    limit,
		Status:   in.Status,
		BuyerID:  in.BuyerID,
		SellerID: in.SellerID,
		From:     in.From,
		To:       in.To,
	})
	if err != nil {
		return OrderListOutput{}, errDB()
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, errDB()
		}
		outs = append(outs, u.toOrderOutput(o, items, withPayout))
	}

	return OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}, nil
}

// 注文詳細。関係者以外には存在しない扱い
func (u *OrderUsecase) GetOrder(ctx context.Context, actorID int64, role model.Role, orderID int64) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, errUnauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, errNotFound()
	}
	if err != nil {
		return OrderOutput{}, errDB()
	}

	withPayout := false
	switch role {
	case model.RoleAdmin:
		withPayout = true
	case model.RoleSeller:
		if o.SellerID == actorID {
			withPayout = true
		} else if o.BuyerID != actorID {
			return OrderOutput{}, errNotFound()
		}
	default:
		if o.BuyerID != actorID {
			return OrderOutput{}, errNotFound()
		}
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, errDB()
	}
	return u.toOrderOutput(o, items, withPayout), nil
}

// 手数料を引いた出品者の受取額
func (u *OrderUsecase) SellerPayout(total decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Sub(u.commission)).Round(2)
}

func (u *OrderUsecase) toOrderOutput(o model.Order, items []model.OrderItem, withPayout bool) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:                 it.ID,
			ProductID:          it.ProductID,
			Title:              it.TitleSnapshot,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice.StringFixed(2),
			TotalPrice:         it.TotalPrice.StringFixed(2),
			SelectedVariations: it.SelectedVariations,
			VariantKey:         it.VariantKey,
		})
	}

	out := OrderOutput{
		ID:                    o.ID,
		Code:                  o.Code,
		CheckoutID:            o.CheckoutID,
		BuyerID:               o.BuyerID,
		SellerID:              o.SellerID,
		Status:                o.Status,
		TotalAmount:           o.TotalAmount.StringFixed(2),
		ShippingDetails:       o.ShippingDetails,
		PaymentDetails:        o.PaymentDetails,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		Items:                 outItems,
	}
	if withPayout {
		out.SellerPayout = u.SellerPayout(o.TotalAmount).StringFixed(2)
	}
	return out
}
