package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/infra/db"
	infrarepo "lotmarket/internal/infra/repository"
	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
	"lotmarket/internal/validator"
)

type orderAPI struct {
	e       *echo.Echo
	gdb     *gorm.DB
	buyer   model.User
	seller  model.User
	product model.Product
}

// X-Test-User / X-Test-Role をcontextへ入れる
func testAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Request().Header.Get("X-Test-User"), 10, 64)
		if err != nil {
			return unauthorized(c)
		}
		c.Set(middleware.CtxUserIDKey, id)
		c.Set(middleware.CtxUserRoleKey, c.Request().Header.Get("X-Test-Role"))
		return next(c)
	}
}

func newOrderAPI(t *testing.T) *orderAPI {
	t.Helper()
	gdb, err := db.Connect("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := infrarepo.NewUserGormRepository(gdb)
	products := infrarepo.NewProductGormRepository(gdb)
	ctx := context.Background()

	a := &orderAPI{gdb: gdb}
	a.buyer = model.User{Email: "buyer@example.com", PasswordHash: "x", Role: model.RoleBuyer, IsActive: true}
	a.seller = model.User{Email: "seller@example.com", PasswordHash: "x", Role: model.RoleSeller, IsActive: true}
	require.NoError(t, users.Create(ctx, &a.buyer))
	require.NoError(t, users.Create(ctx, &a.seller))
	a.product, err = products.Create(ctx, model.Product{
		SellerID:         a.seller.ID,
		Title:            "Returned electronics",
		Price:            decimal.RequireFromString("12.50"),
		AvailableUnits:   10,
		TotalUnits:       10,
		MinOrderQuantity: 1,
		OrderMultiple:    1,
		IsActive:         true,
	}, nil)
	require.NoError(t, err)

	uc := usecase.NewOrderUsecase(usecase.OrderDeps{
		Tx:         infrarepo.NewTxManagerGorm(gdb),
		Orders:     infrarepo.NewOrderGormRepository(gdb),
		OrderItems: infrarepo.NewOrderItemGormRepository(gdb),
		Addresses:  infrarepo.NewAddressGormRepository(gdb),
		Users:      users,
		Commission: decimal.RequireFromString("0.10"),
	})

	a.e = echo.New()
	NewOrderHandler(uc, validator.MustOrderSchema()).RegisterRoutes(Routes{
		API:  a.e.Group("/api"),
		Auth: []echo.MiddlewareFunc{testAuth},
	})
	return a
}

func (a *orderAPI) do(method, path, body string, user model.User, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", strconv.FormatInt(user.ID, 10))
	req.Header.Set("X-Test-Role", string(user.Role))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *orderAPI) orderBody(qty int) string {
	return `{
  "shippingDetails": {"name": "Dock 4", "line1": "1 Harbor Rd", "city": "Osaka", "postalCode": "550-0001", "country": "JP"},
  "items": [{"productId": ` + strconv.FormatInt(a.product.ID, 10) + `, "quantity": ` + strconv.Itoa(qty) + `, "unitPrice": "12.50"}]
}`
}

func TestCreateOrder_Created(t *testing.T) {
	a := newOrderAPI(t)

	rec := a.do(http.MethodPost, "/api/orders", a.orderBody(2), a.buyer)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out usecase.OrderOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "25.00", out.TotalAmount)
	assert.Equal(t, model.OrderStatusOrdered, out.Status)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Returned electronics", out.Items[0].Title)
}

func TestCreateOrder_ReplayReturns200(t *testing.T) {
	a := newOrderAPI(t)

	first := a.do(http.MethodPost, "/api/orders", a.orderBody(1), a.buyer, idempotencyHeader, "abc")
	second := a.do(http.MethodPost, "/api/orders", a.orderBody(1), a.buyer, idempotencyHeader, "abc")

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var o1, o2 usecase.OrderOutput
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &o1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &o2))
	assert.Equal(t, o1.ID, o2.ID)

	var n int64
	require.NoError(t, a.gdb.Model(&model.Order{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateOrder_SchemaErrors(t *testing.T) {
	a := newOrderAPI(t)

	rec := a.do(http.MethodPost, "/api/orders", a.orderBody(0), a.buyer)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "/items/0/quantity", body.Fields[0].Field)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	a := newOrderAPI(t)

	rec := a.do(http.MethodPost, "/api/orders", a.orderBody(11), a.buyer)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateOrder_SellerForbidden(t *testing.T) {
	a := newOrderAPI(t)

	rec := a.do(http.MethodPost, "/api/orders", a.orderBody(1), a.seller)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckout_Created(t *testing.T) {
	a := newOrderAPI(t)

	rec := a.do(http.MethodPost, "/api/checkout", `{"orders": [`+a.orderBody(3)+`]}`, a.buyer)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out usecase.CheckoutOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.CheckoutID)
	require.Len(t, out.Orders, 1)
	assert.Equal(t, "37.50", out.Orders[0].TotalAmount)
}

func TestUpdateOrderStatus_SellerShips(t *testing.T) {
	a := newOrderAPI(t)

	created := a.do(http.MethodPost, "/api/orders", a.orderBody(1), a.buyer)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var o usecase.OrderOutput
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &o))
	path := "/api/orders/" + strconv.FormatInt(o.ID, 10)

	rec := a.do(http.MethodPut, path+"/status", `{"status":"shipped"}`, a.seller)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out usecase.OrderOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, model.OrderStatusShipped, out.Status)
	assert.Equal(t, "11.25", out.SellerPayout)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPut, path+"/status", `{"status":"delivered"}`, a.buyer).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, path, "", a.buyer).Code)
}
