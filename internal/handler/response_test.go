package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotmarket/internal/usecase"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"http error", usecase.NewHTTPError(http.StatusConflict, "product 3: insufficient stock"), http.StatusConflict, "product 3: insufficient stock"},
		{"wrapped http error", fmt.Errorf("checkout: %w", usecase.NewHTTPError(http.StatusNotFound, "address not found")), http.StatusNotFound, "address not found"},
		{"validation", usecase.ErrValidation, http.StatusBadRequest, "validation error"},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", usecase.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", usecase.ErrNotFound, http.StatusNotFound, "not found"},
		{"conflict", usecase.ErrConflict, http.StatusConflict, "conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tc.err))

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body.Error)
			assert.Empty(t, body.Fields)
		})
	}
}

func TestWriteError_Fields(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := usecase.NewValidationError([]usecase.FieldError{{Field: "/items/0/quantity", Message: "must be >= 1"}})
	require.NoError(t, writeError(c, err))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation error","fields":[{"field":"/items/0/quantity","message":"must be >= 1"}]}`, rec.Body.String())
}

func TestQueryHelpers(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/?page=2&limit=x&minPrice=1.50&active=true&from=2024-05-01T00:00:00Z", nil), httptest.NewRecorder())

	page, err := queryInt(c, "page")
	require.NoError(t, err)
	assert.Equal(t, 2, page)

	_, _, err = queryPage(c)
	assert.EqualError(t, err, "invalid limit")

	d, err := queryDecimalPtr(c, "minPrice")
	require.NoError(t, err)
	assert.Equal(t, "1.5", d.String())

	b, err := queryBoolPtr(c, "active")
	require.NoError(t, err)
	assert.True(t, *b)

	from, err := queryTimePtr(c, "from")
	require.NoError(t, err)
	assert.Equal(t, 2024, from.Year())

	missing, err := queryInt64Ptr(c, "sellerId")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
