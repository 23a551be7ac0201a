package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
)

// /products の公開APIと /seller/products
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(r Routes) {
	r.API.GET("/products", h.list)
	r.API.GET("/products/:id", h.detail)

	seller := r.Group("/seller", middleware.RoleGuard(model.RoleSeller, model.RoleAdmin))
	seller.GET("/products", h.sellerList)
	seller.POST("/products", h.create, middleware.RoleGuard(model.RoleSeller))
	seller.PUT("/products/:id", h.update)
	seller.DELETE("/products/:id", h.delete)
	seller.PUT("/products/:id/stock", h.updateStock)
	seller.GET("/products/:id/stock/adjustments", h.stockAdjustments)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, err := listProductsInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if in.SellerID, err = queryInt64Ptr(c, "sellerId"); err != nil {
		return badRequest(c, "invalid sellerId")
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) sellerList(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, err := listProductsInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.ListSellerProducts(c.Request().Context(), sellerID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) create(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req usecase.CreateProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreateProduct(c.Request().Context(), sellerID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req usecase.UpdateProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.UpdateProduct(c.Request().Context(), actorID, getRoleFromContext(c), id, req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *ProductHandler) delete(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), actorID, getRoleFromContext(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *ProductHandler) updateStock(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req usecase.UpdateStockInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	if err := h.uc.UpdateStock(c.Request().Context(), actorID, getRoleFromContext(c), id, req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "stock updated"})
}

func listProductsInput(c echo.Context) (usecase.ListProductsInput, error) {
	page, limit, err := queryPage(c)
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	in := usecase.ListProductsInput{
		Page:  page,
		Limit: limit,
		Q:     c.QueryParam("q"),
		Sort:  c.QueryParam("sort"),
	}
	if in.MinPrice, err = queryDecimalPtr(c, "minPrice"); err != nil {
		return usecase.ListProductsInput{}, errInvalidQuery("minPrice")
	}
	if in.MaxPrice, err = queryDecimalPtr(c, "maxPrice"); err != nil {
		return usecase.ListProductsInput{}, errInvalidQuery("maxPrice")
	}
	return in, nil
}

func (h *ProductHandler) stockAdjustments(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	list, err := h.uc.ListStockAdjustments(c.Request().Context(), actorID, getRoleFromContext(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
