package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
)

// /admin 配下のユーザー管理と監査ログ
type AdminUserHandler struct {
	uc *usecase.AdminUsecase
}

func NewAdminUserHandler(uc *usecase.AdminUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(r Routes) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := r.Group("/admin", middleware.AdminRoleGuard())

	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/role", h.ChangeRole)
	admin.POST("/users/:id/strikes", h.IssueStrike)
	admin.GET("/users/:id/strikes", h.ListStrikes)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
	admin.GET("/audit-logs", h.ListAuditLogs)
}

func (h *AdminUserHandler) ListUsers(c echo.Context) error {
	page, limit, err := queryPage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	active, err := queryBoolPtr(c, "isActive")
	if err != nil {
		return badRequest(c, "invalid isActive")
	}

	out, err := h.uc.ListUsers(c.Request().Context(), usecase.ListUsersInput{
		Role:     c.QueryParam("role"),
		IsActive: active,
		Q:        c.QueryParam("q"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) ChangeRole(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	var req usecase.ChangeRoleInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.ChangeRole(c.Request().Context(), adminID, userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) IssueStrike(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	var req usecase.IssueStrikeInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.IssueStrike(c.Request().Context(), adminID, userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminUserHandler) ListStrikes(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	out, err := h.uc.ListStrikes(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) ListAuditLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return badRequest(c, "invalid offset")
	}

	in := usecase.ListAuditLogsInput{
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resourceType"),
		Limit:        limit,
		Offset:       offset,
	}
	if in.ActorUserID, err = queryInt64Ptr(c, "actorUserId"); err != nil {
		return badRequest(c, "invalid actorUserId")
	}
	if in.ResourceID, err = queryInt64Ptr(c, "resourceId"); err != nil {
		return badRequest(c, "invalid resourceId")
	}
	if in.From, err = queryTimePtr(c, "from"); err != nil {
		return badRequest(c, "invalid from")
	}
	if in.To, err = queryTimePtr(c, "to"); err != nil {
		return badRequest(c, "invalid to")
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
