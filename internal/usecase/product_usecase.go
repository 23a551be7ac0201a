package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	now         func() time.Time
}

// DI
func NewProductUsecase(tx repo.TransactionManager, productRepo repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{
		tx:          tx,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	SellerID *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductDetailOutput struct {
	model.Product
	Variants []model.ProductVariant `json:"variants"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	return u.list(ctx, in, false)
}

// 出品者自身の一覧（非公開も含む）
func (u *ProductUsecase) ListSellerProducts(ctx context.Context, sellerID int64, in ListProductsInput) (ProductListOutput, error) {
	if sellerID <= 0 {
		return ProductListOutput{}, errUnauthorized()
	}
	in.SellerID = &sellerID
	return u.list(ctx, in, true)
}

func (u *ProductUsecase) list(ctx context.Context, in ListProductsInput, includeInactive bool) (ProductListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "minPrice must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "maxPrice must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "minPrice must be <= maxPrice")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:            page,
		Limit:           limit,
		Q:               strings.TrimSpace(in.Q),
		SellerID:        in.SellerID,
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		Sort:            in.Sort,
		IncludeInactive: includeInactive,
	})
	if err != nil {
		return ProductListOutput{}, errDB()
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductDetailOutput, error) {
	if productID <= 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductDetailOutput{}, errNotFound()
	}
	if err != nil {
		return ProductDetailOutput{}, errDB()
	}

	//非公開は存在しない扱い
	if !p.IsActive {
		return ProductDetailOutput{}, errNotFound()
	}

	variants, err := u.productRepo.ListVariants(ctx, productID)
	if err != nil {
		return ProductDetailOutput{}, errDB()
	}
	return ProductDetailOutput{Product: p, Variants: variants}, nil
}

type VariantInput struct {
	Selection map[string]string `json:"selection"`
	Stock     int64             `json:"stock"`
	Price     *decimal.Decimal  `json:"price"`
}

type CreateProductInput struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Price            decimal.Decimal   `json:"price"`
	TotalUnits       int64             `json:"totalUnits"`
	MinOrderQuantity int64             `json:"minOrderQuantity"`
	OrderMultiple    int64             `json:"orderMultiple"`
	IsActive         bool              `json:"isActive"`
	Variations       []model.Variation `json:"variations"`
	Variants         []VariantInput    `json:"variants"`
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, sellerID int64, in CreateProductInput) (ProductDetailOutput, error) {
	if sellerID <= 0 {
		return ProductDetailOutput{}, errUnauthorized()
	}
	if strings.TrimSpace(in.Title) == "" {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "title required")
	}
	if in.Price.IsNegative() {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.TotalUnits < 0 {
		return ProductDetailOutput{}, NewHTTPError(http.StatusBadRequest, "totalUnits must be >= 0")
	}
	moq, multiple, err := orderRules(in.MinOrderQuantity, in.OrderMultiple)
	if err != nil {
		return ProductDetailOutput{}, err
	}

	variants, err := buildVariants(in.Variants)
	if err != nil {
		return ProductDetailOutput{}, err
	}

	now := u.now()
	p, err := u.productRepo.Create(ctx, model.Product{
		SellerID:         sellerID,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Price:            in.Price.Round(2),
		AvailableUnits:   in.TotalUnits,
		TotalUnits:       in.TotalUnits,
		MinOrderQuantity: moq,
		OrderMultiple:    multiple,
		IsActive:         in.IsActive,
		Variations:       in.Variations,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, variants)
	if errors.Is(err, repo.ErrConflict) {
		return ProductDetailOutput{}, NewHTTPError(http.StatusConflict, "duplicate variant")
	}
	if err != nil {
		return ProductDetailOutput{}, errDB()
	}

	for i := range variants {
		variants[i].ProductID = p.ID
	}
	return ProductDetailOutput{Product: p, Variants: variants}, nil
}

type UpdateProductInput struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	MinOrderQuantity int64           `json:"minOrderQuantity"`
	OrderMultiple    int64           `json:"orderMultiple"`
	IsActive         bool            `json:"isActive"`
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, actorID int64, role model.Role, productID int64, in UpdateProductInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return NewHTTPError(http.StatusBadRequest, "title required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	moq, multiple, err := orderRules(in.MinOrderQuantity, in.OrderMultiple)
	if err != nil {
		return err
	}
	if _, err := u.ownedProduct(ctx, actorID, role, productID); err != nil {
		return err
	}

	err = u.productRepo.Update(ctx, model.Product{
		ID:               productID,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Price:            in.Price.Round(2),
		MinOrderQuantity: moq,
		OrderMultiple:    multiple,
		IsActive:         in.IsActive,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}
	if err != nil {
		return errDB()
	}
	return nil
}

func (u *ProductUsecase) DeleteProduct(ctx context.Context, actorID int64, role model.Role, productID int64) error {
	if _, err := u.ownedProduct(ctx, actorID, role, productID); err != nil {
		return err
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}
	if err != nil {
		return errDB()
	}
	return nil
}

type UpdateStockInput struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

// 在庫の現在値を更新し、調整履歴と監査ログを残す
func (u *ProductUsecase) UpdateStock(ctx context.Context, actorID int64, role model.Role, productID int64, in UpdateStockInput) error {
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return NewHTTPError(http.StatusBadRequest, "reason required")
	}
	if actorID <= 0 {
		return errUnauthorized()
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if role != model.RoleAdmin && p.SellerID != actorID {
			return errForbidden()
		}

		if _, err := r.Inventory().SetStock(ctx, actorID, productID, in.Stock, reason); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}

		//監査ログを作成（在庫更新）
		//「誰が」「何を」「どの対象に」「どう変えたか」を残す
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"availableUnits":%d}`, p.AvailableUnits),
			AfterJSON:    fmt.Sprintf(`{"availableUnits":%d}`, in.Stock),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}
		return nil
	})
	return passHTTPError(err)
}

// 在庫調整の履歴（新しい順）
func (u *ProductUsecase) ListStockAdjustments(ctx context.Context, actorID int64, role model.Role, productID int64) ([]model.InventoryAdjustment, error) {
	if _, err := u.ownedProduct(ctx, actorID, role, productID); err != nil {
		return nil, err
	}

	var list []model.InventoryAdjustment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		list, err = r.Inventory().ListAdjustments(ctx, productID)
		return err
	})
	if err != nil {
		return nil, errDB()
	}
	return list, nil
}

// 出品者本人（または管理者）の商品か
func (u *ProductUsecase) ownedProduct(ctx context.Context, actorID int64, role model.Role, productID int64) (model.Product, error) {
	if actorID <= 0 {
		return model.Product{}, errUnauthorized()
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errNotFound()
	}
	if err != nil {
		return model.Product{}, errDB()
	}
	if role != model.RoleAdmin && p.SellerID != actorID {
		return model.Product{}, errForbidden()
	}
	return p, nil
}

// MOQ・発注単位の既定値は1
func orderRules(moq, multiple int64) (int64, int64, error) {
	if moq == 0 {
		moq = 1
	}
	if multiple == 0 {
		multiple = 1
	}
	if moq < 1 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "minOrderQuantity must be >= 1")
	}
	if multiple < 1 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "orderMultiple must be >= 1")
	}
	return moq, multiple, nil
}

func buildVariants(in []VariantInput) ([]model.ProductVariant, error) {
	out := make([]model.ProductVariant, 0, len(in))
	seen := map[string]bool{}
	for i, v := range in {
		key, err := model.VariationKey(v.Selection)
		if err != nil || key == "" {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: invalid selection", i))
		}
		if seen[key] {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: duplicate selection", i))
		}
		seen[key] = true
		if v.Stock < 0 {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: stock must be >= 0", i))
		}
		var price *decimal.Decimal
		if v.Price != nil {
			if v.Price.IsNegative() {
				return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("variants[%d]: price must be >= 0", i))
			}
			p := v.Price.Round(2)
			price = &p
		}
		out = append(out, model.ProductVariant{VariantKey: key, Stock: v.Stock, Price: price})
	}
	return out, nil
}
