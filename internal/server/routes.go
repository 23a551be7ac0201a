package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"lotmarket/internal/handler"
	"lotmarket/internal/middleware"
	"lotmarket/internal/repository"
)

type Handlers struct {
	Auth               *handler.AuthHandler
	Products           *handler.ProductHandler
	Orders             *handler.OrderHandler
	Addresses          *handler.AddressHandler
	Messages           *handler.MessageHandler
	SellerApplications *handler.SellerApplicationHandler
	AdminUsers         *handler.AdminUserHandler
}

type RouteConfig struct {
	JWTSecret    string
	RateLimitRPS float64
	Users        repository.UserRepository
}

// /api 配下をまとめて登録
func RegisterRoutes(e *echo.Echo, cfg RouteConfig, h Handlers) {
	api := e.Group("/api")

	r := handler.Routes{
		API: api,
		Auth: []echo.MiddlewareFunc{
			middleware.AuthJWT(cfg.JWTSecret),
			middleware.TokenVersionGuard(cfg.Users),
		},
	}

	//認証系はIP単位でレート制限
	limiter := echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitRPS)))
	h.Auth.RegisterRoutes(api.Group("/auth", limiter), r.Auth...)

	h.Products.RegisterRoutes(r)
	h.Orders.RegisterRoutes(r)
	h.Addresses.RegisterRoutes(r)
	h.Messages.RegisterRoutes(r)
	h.SellerApplications.RegisterRoutes(r)
	h.AdminUsers.RegisterRoutes(r)
}
