// Package router wires handlers and middleware into an echo instance.
package router

import (
	"context"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/newsroom-rundown/internal/config"
	"github.com/iliyamo/newsroom-rundown/internal/handler"
	"github.com/iliyamo/newsroom-rundown/internal/middleware"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Cfg      config.Config
	Log      logrus.FieldLogger
	Redis    *redis.Client // nil disables cache and the shared rate limit
	Ping     func(ctx context.Context) error
	Auth     *handler.AuthHandler
	Rundowns *handler.RundownHandler
	Shows    *handler.ShowHandler
	Stories  *handler.StoryHandler
	Wire     *handler.WireHandler
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))

	limiter := middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log)
	cache := middleware.NewRedisCache(d.Cfg.Cache, d.Redis)
	invalidate := middleware.InvalidateStationCache(d.Cfg.Cache, d.Redis)

	RegisterRoutes(e, d.Ping)
	RegisterAuth(e, d.Auth, d.Cfg.JWTSecret, limiter)
	RegisterNewsroom(e, d, limiter, cache, invalidate)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, ping func(ctx context.Context) error) {
	e.GET("/healthz", handler.Health(ping))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and logout are public; /v1/me needs a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), limiter)
}
