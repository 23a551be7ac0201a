package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/repository/mocks"
)

const testSecret = "middleware-test-secret"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "5",
		"role": "buyer",
		"tv":   2,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
}

// ミドルウェアを通ったらcontextの値を返すハンドラ
func serve(t *testing.T, authz string, m ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	require.NoError(t, h(c))
	return rec, c
}

func TestAuthJWT_SetsContext(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, validClaims())

	rec, c := serve(t, "Bearer "+token, AuthJWT(testSecret))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(5), c.Get(CtxUserIDKey))
	assert.Equal(t, "buyer", c.Get(CtxUserRoleKey))
	assert.Equal(t, 2, c.Get(CtxTokenVersionKey))
}

func TestAuthJWT_Rejects(t *testing.T) {
	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := validClaims()
	delete(noExp, "exp")
	noRole := validClaims()
	delete(noRole, "role")
	badSub := validClaims()
	badSub["sub"] = "abc"

	cases := []struct {
		name  string
		authz string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage", "Bearer not.a.jwt"},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, expired)},
		{"no exp", "Bearer " + sign(t, jwt.SigningMethodHS256, noExp)},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS512, validClaims())},
		{"no role", "Bearer " + sign(t, jwt.SigningMethodHS256, noRole)},
		{"bad sub", "Bearer " + sign(t, jwt.SigningMethodHS256, badSub)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serve(t, tc.authz, AuthJWT(testSecret))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthJWT_WrongSecret(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, validClaims())
	rec, _ := serve(t, "Bearer "+token, AuthJWT("other-secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard(t *testing.T) {
	cases := []struct {
		name   string
		user   model.User
		err    error
		status int
		role   string
	}{
		{"match", model.User{ID: 5, TokenVersion: 2, IsActive: true, Role: model.RoleSeller}, nil, http.StatusNoContent, "seller"},
		{"stale token", model.User{ID: 5, TokenVersion: 3, IsActive: true, Role: model.RoleBuyer}, nil, http.StatusUnauthorized, "buyer"},
		{"disabled", model.User{ID: 5, TokenVersion: 2, IsActive: false, Role: model.RoleBuyer}, nil, http.StatusForbidden, "buyer"},
		{"gone", model.User{}, errors.New("not found"), http.StatusUnauthorized, "buyer"},
	}
	token := sign(t, jwt.SigningMethodHS256, validClaims())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := new(mocks.UserRepoMock)
			users.On("FindByID", mock.Anything, int64(5)).Return(tc.user, tc.err)

			rec, c := serve(t, "Bearer "+token, AuthJWT(testSecret), TokenVersionGuard(users))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.role, c.Get(CtxUserRoleKey))
		})
	}
}

func TestRoleGuard(t *testing.T) {
	setRole := func(role string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if role != "" {
					c.Set(CtxUserRoleKey, role)
				}
				return next(c)
			}
		}
	}

	cases := []struct {
		role   string
		guard  echo.MiddlewareFunc
		status int
	}{
		{"seller", RoleGuard(model.RoleSeller, model.RoleAdmin), http.StatusNoContent},
		{"buyer", RoleGuard(model.RoleSeller, model.RoleAdmin), http.StatusForbidden},
		{"", RoleGuard(model.RoleBuyer), http.StatusUnauthorized},
		{"admin", AdminRoleGuard(), http.StatusNoContent},
		{"seller", AdminRoleGuard(), http.StatusForbidden},
	}
	for _, tc := range cases {
		rec, _ := serve(t, "", setRole(tc.role), tc.guard)
		assert.Equal(t, tc.status, rec.Code, "role=%q", tc.role)
	}
}
