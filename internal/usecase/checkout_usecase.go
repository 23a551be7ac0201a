package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type OrderItemInput struct {
	ProductID          int64             `json:"productId"`
	Quantity           int64             `json:"quantity"`
	UnitPrice          decimal.Decimal   `json:"unitPrice"`
	TotalPrice         *decimal.Decimal  `json:"totalPrice"`
	SelectedVariations map[string]string `json:"selectedVariations"`
}

// 出品者1人分の注文
type PlaceOrderInput struct {
	//省略時は商品の出品者
	SellerID              int64                  `json:"sellerId"`
	TotalAmount           *decimal.Decimal       `json:"totalAmount"`
	Status                model.OrderStatus      `json:"status"`
	AddressID             *int64                 `json:"addressId"`
	ShippingDetails       *model.ShippingDetails `json:"shippingDetails"`
	PaymentDetails        model.PaymentDetails   `json:"paymentDetails"`
	EstimatedDeliveryDate *time.Time             `json:"estimatedDeliveryDate"`
	Items                 []OrderItemInput       `json:"items"`
}

// 複数出品者にまたがるカート
type CheckoutInput struct {
	Orders []PlaceOrderInput `json:"orders"`
}

type CheckoutOutput struct {
	CheckoutID string        `json:"checkoutId"`
	Orders     []OrderOutput `json:"orders"`
	//Idempotency-Keyで既存注文を返したとき
	Replayed bool `json:"-"`
}

// 1注文分（POST /api/orders）
func (u *OrderUsecase) PlaceOrder(ctx context.Context, buyerID int64, idempotencyKey string, in PlaceOrderInput) (OrderOutput, bool, error) {
	out, err := u.Checkout(ctx, buyerID, idempotencyKey, CheckoutInput{Orders: []PlaceOrderInput{in}})
	if err != nil {
		return OrderOutput{}, false, err
	}
	if len(out.Orders) == 0 {
		return OrderOutput{}, false, errDB()
	}
	return out.Orders[0], out.Replayed, nil
}

// 計算・検証済みの明細
type checkoutLine struct {
	in         OrderItemInput
	totalPrice decimal.Decimal
	variantKey string
}

type checkoutGroup struct {
	in       PlaceOrderInput
	status   model.OrderStatus
	total    decimal.Decimal
	shipping model.ShippingDetails
	lines    []checkoutLine
}

// Checkout は出品者ごとに注文と明細を作り、在庫を減らす。
// すべて1トランザクションで、どれか1つでも失敗すれば何も残らない。
func (u *OrderUsecase) Checkout(ctx context.Context, buyerID int64, idempotencyKey string, in CheckoutInput) (CheckoutOutput, error) {
	ctx, span := u.tracer.Start(ctx, "order.checkout")
	defer span.End()

	if buyerID <= 0 {
		return CheckoutOutput{}, errUnauthorized()
	}
	key := strings.TrimSpace(idempotencyKey)
	if len(key) > 255 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	groups, err := u.prepareGroups(ctx, buyerID, in)
	if err != nil {
		return CheckoutOutput{}, err
	}
	span.SetAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.Int("checkout.orders", len(groups)),
	)

	buyer, err := u.users.FindByID(ctx, buyerID)
	if errors.Is(err, repo.ErrNotFound) {
		return CheckoutOutput{}, errUnauthorized()
	}
	if err != nil {
		return CheckoutOutput{}, errDB()
	}

	out := CheckoutOutput{CheckoutID: u.newID()}
	var invoices []model.InvoiceRequest

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, err := r.Orders().FindByIdempotencyKey(ctx, buyerID, key)
			if err != nil {
				return errDB()
			}
			if len(existing) > 0 {
				out.CheckoutID = existing[0].CheckoutID
				for _, o := range existing {
					items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
					if err != nil {
						return errDB()
					}
					out.Orders = append(out.Orders, u.toOrderOutput(o, items, false))
				}
				out.Replayed = true
				return nil
			}
		}

		now := u.now()
		sellers := make(map[int64]bool, len(groups))
		for _, g := range groups {
			order, items, invoice, err := u.createOrder(ctx, r, buyerID, key, out.CheckoutID, now, g, sellers)
			if err != nil {
				return err
			}
			invoice.BuyerEmail = buyer.Email
			invoices = append(invoices, invoice)
			out.Orders = append(out.Orders, u.toOrderOutput(order, items, false))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return CheckoutOutput{}, passHTTPError(err)
	}

	//コミット後に非同期で請求書を依頼（レスポンスには影響させない）
	if !out.Replayed {
		for _, inv := range invoices {
			u.dispatchInvoice(ctx, inv)
		}
	}
	return out, nil
}

// トランザクション前にできる検証（DB不要）
func (u *OrderUsecase) prepareGroups(ctx context.Context, buyerID int64, in CheckoutInput) ([]checkoutGroup, error) {
	if len(in.Orders) == 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "orders required")
	}

	sellers := map[int64]bool{}
	groups := make([]checkoutGroup, 0, len(in.Orders))
	for i, o := range in.Orders {
		if len(o.Items) == 0 {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d]: items required", i))
		}
		if o.SellerID < 0 {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d]: invalid sellerId", i))
		}
		if o.SellerID > 0 {
			if sellers[o.SellerID] {
				return nil, NewHTTPError(http.StatusBadRequest, "one order per seller")
			}
			sellers[o.SellerID] = true
		}

		status := o.Status
		if status == "" {
			status = model.OrderStatusOrdered
		}
		if !status.Initial() {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid initial status")
		}

		g := checkoutGroup{in: o, status: status, total: decimal.Zero}
		for j, it := range o.Items {
			if it.ProductID <= 0 {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d].items[%d]: invalid productId", i, j))
			}
			if it.Quantity <= 0 {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d].items[%d]: quantity must be > 0", i, j))
			}
			if it.UnitPrice.IsNegative() {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d].items[%d]: unitPrice must be >= 0", i, j))
			}
			lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
			if it.TotalPrice != nil && !it.TotalPrice.Equal(lineTotal) {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d].items[%d]: totalPrice mismatch", i, j))
			}
			vkey, err := model.VariationKey(it.SelectedVariations)
			if err != nil {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d].items[%d]: invalid variation", i, j))
			}
			g.lines = append(g.lines, checkoutLine{in: it, totalPrice: lineTotal, variantKey: vkey})
			g.total = g.total.Add(lineTotal)
		}
		if o.TotalAmount != nil && !o.TotalAmount.Equal(g.total) {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("orders[%d]: totalAmount mismatch", i))
		}

		shipping, err := u.resolveShipping(ctx, buyerID, o)
		if err != nil {
			return nil, err
		}
		g.shipping = shipping
		groups = append(groups, g)
	}
	return groups, nil
}

// 保存済み住所かインラインの配送先
func (u *OrderUsecase) resolveShipping(ctx context.Context, buyerID int64, o PlaceOrderInput) (model.ShippingDetails, error) {
	if o.AddressID != nil {
		addr, err := u.addresses.FindByID(ctx, *o.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.ShippingDetails{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		if err != nil {
			return model.ShippingDetails{}, errDB()
		}
		//他人の住所
		if addr.UserID != buyerID {
			return model.ShippingDetails{}, errForbidden()
		}
		return addr.Snapshot(), nil
	}

	if o.ShippingDetails == nil {
		return model.ShippingDetails{}, NewHTTPError(http.StatusBadRequest, "shippingDetails or addressId required")
	}
	s := *o.ShippingDetails
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Line1) == "" || strings.TrimSpace(s.City) == "" ||
		strings.TrimSpace(s.PostalCode) == "" || strings.TrimSpace(s.Country) == "" {
		return model.ShippingDetails{}, NewHTTPError(http.StatusBadRequest, "incomplete shippingDetails")
	}
	return s, nil
}

// 1出品者分の注文をトランザクション内で作る
func (u *OrderUsecase) createOrder(
	ctx context.Context,
	r repo.TxRepos,
	buyerID int64,
	key string,
	checkoutID string,
	now time.Time,
	g checkoutGroup,
	sellers map[int64]bool,
) (model.Order, []model.OrderItem, model.InvoiceRequest, error) {
	sellerID := g.in.SellerID
	items := make([]model.OrderItem, 0, len(g.lines))
	invoiceItems := make([]model.InvoiceItem, 0, len(g.lines))

	for _, line := range g.lines {
		p, err := r.Products().FindByID(ctx, line.in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d not found", line.in.ProductID))
		}
		if err != nil {
			return model.Order{}, nil, model.InvoiceRequest{}, errDB()
		}
		if sellerID == 0 {
			sellerID = p.SellerID
		}
		if !p.IsActive {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d is not available", p.ID))
		}
		if p.SellerID != sellerID {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d does not belong to seller %d", p.ID, sellerID))
		}

		//MOQ・発注単位
		if line.in.Quantity < p.MinOrderQuantity {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d: minimum order quantity is %d", p.ID, p.MinOrderQuantity))
		}
		if !p.AcceptsQuantity(line.in.Quantity) {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d: quantity must be a multiple of %d", p.ID, p.OrderMultiple))
		}

		variant, err := resolveVariant(ctx, r, p.ID, line.variantKey)
		if err != nil {
			return model.Order{}, nil, model.InvoiceRequest{}, err
		}

		//価格が変わっていたら買い手に再確認させる
		if !p.EffectivePrice(variant).Equal(line.in.UnitPrice) {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d: price changed", p.ID))
		}

		//在庫減算（足りないなら false）
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, line.in.Quantity)
		if err != nil {
			return model.Order{}, nil, model.InvoiceRequest{}, errDB()
		}
		if !ok {
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d: insufficient stock", p.ID))
		}
		if variant != nil {
			ok, err := r.Inventory().DecreaseVariantStockIfEnough(ctx, p.ID, line.variantKey, line.in.Quantity)
			if err != nil {
				return model.Order{}, nil, model.InvoiceRequest{}, errDB()
			}
			if !ok {
				return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d: insufficient stock for variation", p.ID))
			}
		}

		//スナップショット
		items = append(items, model.OrderItem{
			ProductID:          p.ID,
			TitleSnapshot:      p.Title,
			Quantity:           line.in.Quantity,
			UnitPrice:          line.in.UnitPrice,
			TotalPrice:         line.totalPrice,
			SelectedVariations: line.in.SelectedVariations,
			VariantKey:         line.variantKey,
			CreatedAt:          now,
		})
		invoiceItems = append(invoiceItems, model.InvoiceItem{
			Title:      p.Title,
			Quantity:   line.in.Quantity,
			UnitPrice:  line.in.UnitPrice,
			TotalPrice: line.totalPrice,
		})
	}

	//sellerId省略時は商品から決まるので、ここで出品者の重複を見る
	if sellers[sellerID] {
		return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusBadRequest, "one order per seller")
	}
	sellers[sellerID] = true

	order := model.Order{
		Code:                  u.orderCode(now),
		BuyerID:               buyerID,
		SellerID:              sellerID,
		CheckoutID:            checkoutID,
		TotalAmount:           g.total,
		Status:                g.status,
		ShippingDetails:       g.shipping,
		PaymentDetails:        g.in.PaymentDetails,
		EstimatedDeliveryDate: g.in.EstimatedDeliveryDate,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if key != "" {
		k := key
		order.IdempotencyKey = &k
	}

	if err := r.Orders().Create(ctx, &order); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			//同じキーの同時リクエスト
			return model.Order{}, nil, model.InvoiceRequest{}, NewHTTPError(http.StatusConflict, "duplicate order request")
		}
		return model.Order{}, nil, model.InvoiceRequest{}, errDB()
	}

	//注文明細一括作成
	if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
		return model.Order{}, nil, model.InvoiceRequest{}, errDB()
	}

	return order, items, model.InvoiceRequest{Order: order, Items: invoiceItems}, nil
}

// バリエーションがある商品は選択必須、ない商品は選択不可
func resolveVariant(ctx context.Context, r repo.TxRepos, productID int64, variantKey string) (*model.ProductVariant, error) {
	if variantKey == "" {
		variants, err := r.Products().ListVariants(ctx, productID)
		if err != nil {
			return nil, errDB()
		}
		if len(variants) > 0 {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d: variation selection required", productID))
		}
		return nil, nil
	}

	v, err := r.Products().FindVariant(ctx, productID, variantKey)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d: unknown variation", productID))
	}
	if err != nil {
		return nil, errDB()
	}
	return &v, nil
}

// LQ-YYYYMMDD-XXXXXX
func (u *OrderUsecase) orderCode(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(u.newID(), "-", ""))
	if len(id) > 6 {
		id = id[:6]
	}
	return fmt.Sprintf("LQ-%s-%s", now.UTC().Format("20060102"), id)
}

// リクエストのcontextから切り離し、タイムアウト付きで送る
func (u *OrderUsecase) dispatchInvoice(ctx context.Context, req model.InvoiceRequest) {
	if u.notifier == nil {
		return
	}
	u.inflight.Add(1)
	go func() {
		defer u.inflight.Done()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.dispatchTimeout)
		defer cancel()

		if err := u.notifier.RequestInvoice(dctx, req); err != nil {
			u.logger.ErrorContext(dctx, "invoice request failed",
				slog.String("order_code", req.Order.Code),
				slog.Any("error", err),
			)
		}
	}()
}
