package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/middleware"
	"lotmarket/internal/usecase"
)

type ErrorResponse struct {
	Error  string               `json:"error"`
	Fields []usecase.FieldError `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ルート登録に使う共通部品
type Routes struct {
	API *echo.Group
	// JWT + token_version
	Auth []echo.MiddlewareFunc
}

// 認証必須のグループ
func (r Routes) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	mw := make([]echo.MiddlewareFunc, 0, len(r.Auth)+len(m))
	mw = append(mw, r.Auth...)
	mw = append(mw, m...)
	return r.API.Group(prefix, mw...)
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Fields: he.Fields})
	}

	switch {
	case errors.Is(err, usecase.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation error"})
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, usecase.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, usecase.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, usecase.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict"})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	return id, ok && id > 0
}

func getRoleFromContext(c echo.Context) model.Role {
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return model.Role(role)
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 未指定は0
func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func queryDecimalPtr(c echo.Context, name string) (*decimal.Decimal, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RFC3339
func queryTimePtr(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryBoolPtr(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// page / limit
func queryPage(c echo.Context) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, errors.New("invalid limit")
	}
	return page, limit, nil
}

type queryError struct{ name string }

func (e queryError) Error() string { return "invalid " + e.name }

func errInvalidQuery(name string) error {
	return queryError{name: name}
}
