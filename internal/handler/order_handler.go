package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
)

const idempotencyHeader = "Idempotency-Key"

// 注文ボディのスキーマ検証
type OrderSchemaValidator interface {
	ValidateOrder(raw []byte) error
	ValidateCheckout(raw []byte) error
}

type OrderHandler struct {
	uc     *usecase.OrderUsecase
	schema OrderSchemaValidator
}

func NewOrderHandler(uc *usecase.OrderUsecase, schema OrderSchemaValidator) *OrderHandler {
	return &OrderHandler{uc: uc, schema: schema}
}

func (h *OrderHandler) RegisterRoutes(r Routes) {
	buyerOnly := middleware.RoleGuard(model.RoleBuyer)

	g := r.Group("/orders")
	g.POST("", h.create, buyerOnly)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/status", h.updateStatus, middleware.RoleGuard(model.RoleSeller, model.RoleAdmin))

	r.Group("/checkout").POST("", h.checkout, buyerOnly)

	r.Group("/seller", middleware.RoleGuard(model.RoleSeller)).GET("/orders", h.sellerList)
	r.Group("/admin", middleware.AdminRoleGuard()).GET("/orders", h.adminList)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.schema.ValidateOrder(raw); err != nil {
		return writeError(c, err)
	}

	var req usecase.PlaceOrderInput
	if err := json.Unmarshal(raw, &req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get(idempotencyHeader)

	out, replayed, err := h.uc.PlaceOrder(c.Request().Context(), userID, idemKey, req)
	if err != nil {
		return writeError(c, err)
	}
	if replayed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.schema.ValidateCheckout(raw); err != nil {
		return writeError(c, err)
	}

	var req usecase.CheckoutInput
	if err := json.Unmarshal(raw, &req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Checkout(c.Request().Context(), userID, c.Request().Header.Get(idempotencyHeader), req)
	if err != nil {
		return writeError(c, err)
	}
	if out.Replayed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, err := listOrdersInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) sellerList(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	in, err := listOrdersInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.ListSellerOrders(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) adminList(c echo.Context) error {
	in, err := listOrdersInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if in.BuyerID, err = queryInt64Ptr(c, "buyerId"); err != nil {
		return badRequest(c, "invalid buyerId")
	}
	if in.SellerID, err = queryInt64Ptr(c, "sellerId"); err != nil {
		return badRequest(c, "invalid sellerId")
	}

	out, err := h.uc.AdminListOrders(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetOrder(c.Request().Context(), userID, getRoleFromContext(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req usecase.UpdateOrderStatusInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), userID, getRoleFromContext(c), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func listOrdersInput(c echo.Context) (usecase.ListOrdersInput, error) {
	page, limit, err := queryPage(c)
	if err != nil {
		return usecase.ListOrdersInput{}, err
	}
	in := usecase.ListOrdersInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}
	if in.From, err = queryTimePtr(c, "from"); err != nil {
		return usecase.ListOrdersInput{}, errInvalidQuery("from")
	}
	if in.To, err = queryTimePtr(c, "to"); err != nil {
		return usecase.ListOrdersInput{}, errInvalidQuery("to")
	}
	return in, nil
}
