package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/usecase"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// gは /auth（レート制限付き）
func (h *AuthHandler) RegisterRoutes(g *echo.Group, auth ...echo.MiddlewareFunc) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", h.Me, auth...)
	g.POST("/password-reset/request", h.RequestPasswordReset)
	g.POST("/password-reset/confirm", h.ConfirmPasswordReset)
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "validation error")
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "validation error")
	}

	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 登録有無に関わらず202
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req usecase.PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "validation error")
	}

	if err := h.uc.RequestPasswordReset(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, SuccessResponse{Message: "if the account exists, a reset code has been sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req usecase.PasswordResetConfirm
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "validation error")
	}

	if err := h.uc.ConfirmPasswordReset(c.Request().Context(), req); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "password updated"})
}
