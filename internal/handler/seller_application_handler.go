package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
)

type SellerApplicationHandler struct {
	uc *usecase.SellerApplicationUsecase
}

func NewSellerApplicationHandler(uc *usecase.SellerApplicationUsecase) *SellerApplicationHandler {
	return &SellerApplicationHandler{uc: uc}
}

func (h *SellerApplicationHandler) RegisterRoutes(r Routes) {
	g := r.Group("/seller-applications")
	g.POST("", h.apply)
	g.GET("/me", h.mine)

	admin := r.Group("/admin/seller-applications", middleware.AdminRoleGuard())
	admin.GET("", h.list)
	admin.PUT("/:id/approve", h.approve)
	admin.PUT("/:id/reject", h.reject)
}

func (h *SellerApplicationHandler) apply(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req usecase.ApplySellerInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	app, err := h.uc.Apply(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

func (h *SellerApplicationHandler) mine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	app, err := h.uc.Mine(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

func (h *SellerApplicationHandler) list(c echo.Context) error {
	page, limit, err := queryPage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.List(c.Request().Context(), c.QueryParam("status"), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerApplicationHandler) approve(c echo.Context) error {
	return h.review(c, h.uc.Approve)
}

func (h *SellerApplicationHandler) reject(c echo.Context) error {
	return h.review(c, h.uc.Reject)
}

type reviewFunc func(ctx context.Context, adminID, appID int64, in usecase.ReviewSellerApplicationInput) (model.SellerApplication, error)

func (h *SellerApplicationHandler) review(c echo.Context, fn reviewFunc) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req usecase.ReviewSellerApplicationInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	app, err := fn(c.Request().Context(), adminID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}
