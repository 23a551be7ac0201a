package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// 入力エラーの項目（JSON Pointer形式のfield）
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type HTTPError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 400 + 項目ごとのエラー
func NewValidationError(fields []FieldError) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "validation error",
		Fields:  fields,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func errDB() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

func errUnauthorized() error {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func errNotFound() error {
	return NewHTTPError(http.StatusNotFound, "not found")
}

func errForbidden() error {
	return NewHTTPError(http.StatusForbidden, "forbidden")
}

// HTTPErrorならそのまま、それ以外は500
func passHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return errDB()
}

// ページングの既定値
func normalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return page, limit, nil
}
