// Package router wires HTTP routes to handlers.  Public endpoints are
// registered directly on the Echo instance; everything else lives in a
// /v1 group behind the JWT middleware, with role checks applied per
// route group rather than inside handlers where possible.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aliyevr/timetrack/internal/config"
	"github.com/aliyevr/timetrack/internal/handler"
	"github.com/aliyevr/timetrack/internal/middleware"
)

// RegisterPublic registers the routes that need no session: the health
// probe and the bootstrap endpoint that creates the first superuser on
// an empty installation.
func RegisterPublic(e *echo.Echo, u *handler.UserHandler) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/users/init", u.Init)
}

// RegisterAuth registers the authentication endpoints and returns the
// protected /v1 group every authenticated area hangs off.  The auth
// group gets an IP-keyed rate limiter so credential stuffing is
// throttled; the protected group installs the limiter after JWTAuth,
// which makes the authenticated user part of the bucket key.  A nil
// Redis client disables both.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) *echo.Group {
	limit := middleware.RateLimit(rl, rdb)

	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret), limit)
	auth.GET("/auth/me", a.Me)
	// Behind JWT the same handler revokes all sessions when no refresh
	// token is presented.
	auth.POST("/auth/logout", a.Logout)
	return auth
}
